package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type      string                `yaml:"type"`
	Dimension int                   `yaml:"dimension,omitempty"`
	OpenAI    *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// RetrievalConfig holds the engine's ranking and filtering defaults.
// The similarity threshold and over-fetch factor are empirically chosen
// constants carried over from the original system; they are exposed here
// rather than hard-coded.
type RetrievalConfig struct {
	TopK             int     `yaml:"top_k"`
	Threshold        float64 `yaml:"threshold"`
	OverFetchFactor  int     `yaml:"over_fetch_factor"`
	EmbedTimeoutSecs int     `yaml:"embed_timeout_secs"`
	ExcerptRunes     int     `yaml:"excerpt_runes"`
}

// InsightsConfig configures the per-topic statistics report.
type InsightsConfig struct {
	TopTerms int `yaml:"top_terms"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder      EmbedderConfig  `yaml:"embedder"`
	Retrieval     RetrievalConfig `yaml:"retrieval"`
	Insights      InsightsConfig  `yaml:"insights"`
	KnowledgeBase string          `yaml:"knowledge_base"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/caseassist/config.yaml.
// If neither exists, it writes defaults to ~/.config/caseassist/config.yaml
// and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "caseassist", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Embedder: EmbedderConfig{Type: "hashing", Dimension: 256},
		Retrieval: RetrievalConfig{
			TopK:             5,
			Threshold:        0.7,
			OverFetchFactor:  3,
			EmbedTimeoutSecs: 10,
			ExcerptRunes:     240,
		},
		Insights:      InsightsConfig{TopTerms: 10},
		KnowledgeBase: "knowledge_base.json",
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hashing"
	}
	if cfg.Embedder.Type == "hashing" && cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = 256
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.Threshold == 0 {
		cfg.Retrieval.Threshold = 0.7
	}
	if cfg.Retrieval.OverFetchFactor == 0 {
		cfg.Retrieval.OverFetchFactor = 3
	}
	if cfg.Retrieval.EmbedTimeoutSecs == 0 {
		cfg.Retrieval.EmbedTimeoutSecs = 10
	}
	if cfg.Retrieval.ExcerptRunes == 0 {
		cfg.Retrieval.ExcerptRunes = 240
	}
	if cfg.Insights.TopTerms == 0 {
		cfg.Insights.TopTerms = 10
	}
	if cfg.KnowledgeBase == "" {
		cfg.KnowledgeBase = "knowledge_base.json"
	}
}
