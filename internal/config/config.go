// Package config loads the sowdata configuration from TOML.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/terasky-int/sow-dataset/internal/logger"
)

// FileName is the config file looked up in the working directory before
// falling back to the home directory location.
const FileName = "sowdata.toml"

// Config is the full application configuration. Zero values fall back
// to defaults at load time, so a partial file is fine.
type Config struct {
	// DataDir holds the ingestion tracker database.
	// Defaults to ~/.sowdata/data.
	DataDir string `toml:"data_dir"`

	Chunking    Chunking    `toml:"chunking"`
	Embedding   Embedding   `toml:"embedding"`
	LLM         LLM         `toml:"llm"`
	Qdrant      Qdrant      `toml:"qdrant"`
	Metadata    Metadata    `toml:"metadata"`
	Collections Collections `toml:"collections"`
	Query       Query       `toml:"query"`
	Ingest      Ingest      `toml:"ingest"`
}

// Chunking controls how extracted text is split.
type Chunking struct {
	// Size is the target chunk length in characters.
	Size int `toml:"size"`

	// Overlap is carried between adjacent chunks. Zero means size/10.
	Overlap int `toml:"overlap"`
}

// Embedding configures the Ollama embedding model.
type Embedding struct {
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	Dimensions     int     `toml:"dimensions"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RatePerSecond  float64 `toml:"rate_per_second"`
}

// LLM configures the Ollama generation model.
type LLM struct {
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxTokens      int    `toml:"max_tokens"`
}

// Qdrant configures the vector store. An empty URL selects the
// in-process store, which is useful for trying the pipeline without a
// running Qdrant instance.
type Qdrant struct {
	URL            string `toml:"url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRetries     int    `toml:"max_retries"`
}

// Metadata configures folder-convention resolution and classification.
type Metadata struct {
	// Root anchors the clients/<client>/<year>/<project> convention.
	Root string `toml:"root"`

	// Classifier selects "keyword" (default) or "llm".
	Classifier string `toml:"classifier"`
}

// Collections maps categories to collection names.
type Collections struct {
	// Default receives documents with an unmapped category.
	Default string `toml:"default"`

	// Mapping is category name to collection name.
	Mapping map[string]string `toml:"mapping"`
}

// Query tunes retrieval and answer generation.
type Query struct {
	TopK         int     `toml:"top_k"`
	MinScore     float64 `toml:"min_score"`
	PromptBudget int     `toml:"prompt_budget"`
}

// Ingest tunes batch ingestion.
type Ingest struct {
	// Parallelism bounds concurrent file ingestion.
	Parallelism int `toml:"parallelism"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Chunking: Chunking{Size: 500},
		Embedding: Embedding{
			BaseURL:        "http://localhost:11434",
			Model:          "all-minilm",
			Dimensions:     384,
			TimeoutSeconds: 30,
		},
		LLM: LLM{
			BaseURL:        "http://localhost:11434",
			Model:          "llama3.2",
			TimeoutSeconds: 120,
			MaxTokens:      1024,
		},
		Qdrant: Qdrant{
			URL:            "http://localhost:6333",
			TimeoutSeconds: 30,
			MaxRetries:     3,
		},
		Metadata: Metadata{Classifier: "keyword"},
		Collections: Collections{
			Default: "documents",
			Mapping: map[string]string{
				"SOW":      "sows",
				"POC":      "pocs",
				"Legal":    "legal",
				"Finance":  "finance",
				"Purchase": "purchases",
				"Orders":   "orders",
			},
		},
		Query: Query{
			TopK:         5,
			MinScore:     0.3,
			PromptBudget: 8000,
		},
		Ingest: Ingest{Parallelism: 4},
	}
}

// Load reads configuration from path. An empty path searches the
// working directory for sowdata.toml, then ~/.sowdata/config.toml. When
// neither exists the defaults are written to the home location, so the
// first run leaves a file the user can edit.
func Load(path string) (*Config, error) {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			cfg := Default()
			if dst := defaultConfigPath(); dst != "" {
				if err := cfg.Save(dst); err != nil {
					logger.Warn("could not write default config to %s: %v", dst, err)
				} else {
					logger.Debug("wrote default config to %s", dst)
				}
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults backfills zero values so a partial file still works.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Chunking.Size <= 0 {
		c.Chunking.Size = def.Chunking.Size
	}
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = def.Embedding.BaseURL
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = def.Embedding.Model
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = def.Embedding.Dimensions
	}
	if c.Embedding.TimeoutSeconds <= 0 {
		c.Embedding.TimeoutSeconds = def.Embedding.TimeoutSeconds
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = def.LLM.BaseURL
	}
	if c.LLM.Model == "" {
		c.LLM.Model = def.LLM.Model
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = def.LLM.TimeoutSeconds
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = def.LLM.MaxTokens
	}
	if c.Qdrant.TimeoutSeconds <= 0 {
		c.Qdrant.TimeoutSeconds = def.Qdrant.TimeoutSeconds
	}
	if c.Qdrant.MaxRetries <= 0 {
		c.Qdrant.MaxRetries = def.Qdrant.MaxRetries
	}
	if c.Metadata.Classifier == "" {
		c.Metadata.Classifier = def.Metadata.Classifier
	}
	if c.Collections.Default == "" {
		c.Collections.Default = def.Collections.Default
	}
	if c.Collections.Mapping == nil {
		c.Collections.Mapping = def.Collections.Mapping
	}
	if c.Query.TopK <= 0 {
		c.Query.TopK = def.Query.TopK
	}
	if c.Query.MinScore <= 0 {
		c.Query.MinScore = def.Query.MinScore
	}
	if c.Query.PromptBudget <= 0 {
		c.Query.PromptBudget = def.Query.PromptBudget
	}
	if c.Ingest.Parallelism <= 0 {
		c.Ingest.Parallelism = def.Ingest.Parallelism
	}
}

// findConfigFile returns the first existing config file location.
func findConfigFile() string {
	if _, err := os.Stat(FileName); err == nil {
		return FileName
	}
	if path := defaultConfigPath(); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// defaultConfigPath is the home directory config location.
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".sowdata", "config.toml")
}
