package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"caseassist/internal/config"
	"caseassist/internal/domain"
	"caseassist/internal/embedding/hashing"
	"caseassist/internal/embedding/openai"
	"caseassist/internal/ingest"
	"caseassist/internal/insights"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "Path to config YAML")
	out := flag.String("out", "", "Output knowledge base path (defaults to config knowledge_base)")
	flag.Parse()
	inputs := flag.Args()
	if len(inputs) != 1 {
		fmt.Println("Usage: caseassist-index [--config=config.yaml] [--out=knowledge_base.json] chat_export.json")
		os.Exit(1)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	outPath := *out
	if outPath == "" {
		outPath = cfg.KnowledgeBase
	}

	emb := buildEmbedder(cfg)

	msgs, err := ingest.LoadExport(inputs[0])
	if err != nil {
		log.Fatalf("load chat export: %v", err)
	}
	convs := ingest.GroupConversations(msgs)
	st, err := ingest.BuildStore(context.Background(), emb, convs)
	if err != nil {
		log.Fatalf("build knowledge base: %v", err)
	}
	if err := st.Save(outPath); err != nil {
		log.Fatalf("save knowledge base: %v", err)
	}
	fmt.Printf("Saved %d cases (dim %d, embedder %s) to %s\n\n", st.Len(), st.Dimension(), emb.Name(), outPath)

	for _, r := range insights.ByTopic(st.All(), cfg.Insights.TopTerms) {
		fmt.Printf("%-10s cases=%-4d resolved=%-4d escalated=%-4d resolution=%.0f%% avg_duration=%s\n",
			r.Topic, r.TotalCases, r.ResolvedCases, r.EscalatedCases,
			r.ResolutionRate*100, (time.Duration(r.AvgDurationSec) * time.Second).String())
		if len(r.CommonTerms) > 0 {
			fmt.Printf("           terms: %v\n", r.CommonTerms)
		}
	}
}

func buildEmbedder(cfg *config.AppConfig) domain.Embedder {
	switch cfg.Embedder.Type {
	case "hashing", "":
		return hashing.New(cfg.Embedder.Dimension)
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			log.Fatalf("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			log.Fatalf("openai embedder init failed: %v", err)
		}
		return client
	default:
		log.Fatalf("unknown embedder: %s", cfg.Embedder.Type)
		return nil
	}
}
