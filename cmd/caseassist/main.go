package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"caseassist/internal/config"
	"caseassist/internal/domain"
	"caseassist/internal/embedding/hashing"
	"caseassist/internal/embedding/openai"
	"caseassist/internal/engine"
	"caseassist/internal/index"
	"caseassist/internal/ingest"
	"caseassist/internal/store"
	"caseassist/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, kbPath, exportPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/caseassist/config.yaml if not provided)")
	flag.StringVar(&kbPath, "kb", "", "Path to a saved knowledge base (overrides config)")
	flag.StringVar(&exportPath, "ingest", "", "Chat export JSON to ingest instead of loading a knowledge base")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if kbPath == "" {
		kbPath = cfg.KnowledgeBase
	}

	emb := buildEmbedder(cfg)

	var st *store.Store
	switch {
	case exportPath != "":
		msgs, err := ingest.LoadExport(exportPath)
		if err != nil {
			log.Fatalf("load chat export: %v", err)
		}
		convs := ingest.GroupConversations(msgs)
		st, err = ingest.BuildStore(context.Background(), emb, convs)
		if err != nil {
			log.Fatalf("build knowledge base: %v", err)
		}
	default:
		st, err = store.Load(kbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot load knowledge base %s: %v\n", kbPath, err)
			fmt.Fprintln(os.Stderr, "Usage: caseassist [--config=config.yaml] [--kb=knowledge_base.json | --ingest=chat_export.json]")
			os.Exit(1)
		}
	}

	idx := index.NewFlat()
	if err := idx.Build(st.All()); err != nil {
		log.Fatalf("build index: %v", err)
	}

	eng := engine.New(emb, st, idx, engine.Options{
		TopK:            cfg.Retrieval.TopK,
		Threshold:       cfg.Retrieval.Threshold,
		OverFetchFactor: cfg.Retrieval.OverFetchFactor,
		EmbedTimeout:    time.Duration(cfg.Retrieval.EmbedTimeoutSecs) * time.Second,
		ExcerptRunes:    cfg.Retrieval.ExcerptRunes,
	})

	header := fmt.Sprintf("%d historical cases, embedder %s (dim %d)", st.Len(), emb.Name(), st.Dimension())
	m := tui.New(eng, header)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
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
