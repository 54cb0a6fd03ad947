// Package config provides configuration loading and structs for cookcut.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Dataset   DatasetConfig   `yaml:"dataset"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Store     StoreConfig     `yaml:"store"`
	Storage   StorageConfig   `yaml:"storage"`
	Keyword   KeywordConfig   `yaml:"keyword"`
	Search    SearchConfig    `yaml:"search"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatasetConfig selects the recipe source. An empty path with format "hf" reads
// from the Hugging Face datasets server.
type DatasetConfig struct {
	Path      string `yaml:"path"`
	Format    string `yaml:"format"`
	HFDataset string `yaml:"hf_dataset"`
	HFConfig  string `yaml:"hf_config"`
	HFSplit   string `yaml:"hf_split"`
	HFToken   string `yaml:"hf_token"`
	PageSize  int    `yaml:"page_size"`
	Limit     int    `yaml:"limit"`
}

// ChunkingConfig controls how instructions are split. Overlap is a pointer so
// that an explicit 0 survives defaulting.
type ChunkingConfig struct {
	MaxLength    int  `yaml:"max_length"`
	Overlap      *int `yaml:"overlap"`
	SearchWindow int  `yaml:"search_window"`
}

// OverlapOrDefault returns the configured overlap, or 100 when unset.
func (c *ChunkingConfig) OverlapOrDefault() int {
	if c.Overlap != nil {
		return *c.Overlap
	}
	return defaultChunkOverlap
}

// EmbeddingConfig holds provider and retry settings.
type EmbeddingConfig struct {
	Provider          string        `yaml:"provider"`
	Model             string        `yaml:"model"`
	Dimensions        int           `yaml:"dimensions"`
	APIKey            string        `yaml:"api_key"`
	BaseURL           string        `yaml:"base_url"`
	MaxAttempts       int           `yaml:"max_attempts"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	Exponential       bool          `yaml:"exponential"`
	MaxDelay          time.Duration `yaml:"max_delay"`
	BatchSize         int           `yaml:"batch_size"`
	MaxInFlight       int           `yaml:"max_in_flight"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	CacheSize         int           `yaml:"cache_size"`
}

// PipelineConfig sizes ingest batches.
type PipelineConfig struct {
	BatchSize       int `yaml:"batch_size"`
	UpsertBatchSize int `yaml:"upsert_batch_size"`
	Workers         int `yaml:"workers"`
}

// StoreConfig selects the vector store backend.
type StoreConfig struct {
	Provider  string        `yaml:"provider"`
	Path      string        `yaml:"path"`
	DSN       string        `yaml:"dsn"`
	Table     string        `yaml:"table"`
	Namespace string        `yaml:"namespace"`
	Metric    string        `yaml:"metric"`
	IndexHost string        `yaml:"index_host"`
	IndexName string        `yaml:"index_name"`
	APIKey    string        `yaml:"api_key"`
	Timeout   time.Duration `yaml:"timeout"`
}

// StorageConfig holds the recipe catalog path.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// KeywordConfig holds the Bleve index settings.
type KeywordConfig struct {
	Enabled   *bool  `yaml:"enabled"`
	IndexPath string `yaml:"index_path"`
}

// EnabledOrDefault returns whether keyword indexing is on; defaults to true when unset.
func (k *KeywordConfig) EnabledOrDefault() bool {
	if k.Enabled != nil {
		return *k.Enabled
	}
	return true
}

// SearchConfig holds query defaults and hybrid fusion weights.
type SearchConfig struct {
	DefaultTopK         int     `yaml:"default_top_k"`
	KeywordWeight       float64 `yaml:"keyword_weight"`
	SemanticWeight      float64 `yaml:"semantic_weight"`
	CandidateMultiplier int     `yaml:"candidate_multiplier"`
	TitleBoost          float64 `yaml:"title_boost"`
	Fuzzy               bool    `yaml:"fuzzy"`
}

// WatchConfig holds dataset watch settings.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Load reads and parses the config file at path, applies defaults and environment
// overrides, and expands paths. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	ApplyEnv(&cfg)
	cfg.expandPaths(filepath.Dir(path))
	return &cfg, nil
}

// Default returns the configuration used when no config file exists.
// Relative paths resolve against the working directory.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	ApplyEnv(&cfg)
	if wd, err := os.Getwd(); err == nil {
		cfg.expandPaths(wd)
	}
	return &cfg
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ApplyEnv fills secrets and endpoints left blank in the file from the environment.
func ApplyEnv(cfg *Config) {
	setFromEnv(&cfg.Embedding.APIKey, "OPENAI_API_KEY")
	setFromEnv(&cfg.Dataset.HFToken, "HF_TOKEN")
	setFromEnv(&cfg.Store.APIKey, "PINECONE_API_KEY")
	setFromEnv(&cfg.Store.IndexHost, "PINECONE_INDEX_HOST")
	setFromEnv(&cfg.Store.IndexName, "PINECONE_INDEX_NAME")
	switch cfg.Store.Provider {
	case "pgvector":
		setFromEnv(&cfg.Store.DSN, "COOKCUT_PG_DSN")
	case "redis":
		setFromEnv(&cfg.Store.DSN, "COOKCUT_REDIS_URL")
	}
}

func setFromEnv(dst *string, key string) {
	if *dst != "" {
		return
	}
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// Validate reports settings that would make components fail to start.
func (c *Config) Validate() error {
	var errs []error
	if c.Chunking.MaxLength <= 0 {
		errs = append(errs, fmt.Errorf("chunking.max_length must be positive"))
	}
	if overlap := c.Chunking.OverlapOrDefault(); overlap < 0 || overlap >= c.Chunking.MaxLength {
		errs = append(errs, fmt.Errorf("chunking.overlap must be in [0, max_length)"))
	}
	if c.Embedding.Dimensions <= 0 {
		errs = append(errs, fmt.Errorf("embedding.dimensions must be positive"))
	}
	if c.Embedding.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("embedding.max_attempts must be positive"))
	}
	if c.Embedding.Provider == "openai" && c.Embedding.APIKey == "" {
		errs = append(errs, fmt.Errorf("embedding.api_key or OPENAI_API_KEY is required for the openai provider"))
	}
	if c.Store.Metric != "" && c.Store.Metric != "cosine" {
		errs = append(errs, fmt.Errorf("store.metric %q is not supported, only cosine", c.Store.Metric))
	}
	switch c.Store.Provider {
	case "pgvector", "redis":
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for the %s provider", c.Store.Provider))
		}
	case "pinecone":
		if c.Store.IndexHost == "" || c.Store.APIKey == "" {
			errs = append(errs, fmt.Errorf("store.index_host and store.api_key are required for the pinecone provider"))
		}
	}
	return errors.Join(errs...)
}

// Addr returns host:port for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (c *Config) expandPaths(configDir string) {
	c.Dataset.Path = expandPath(c.Dataset.Path, configDir)
	c.Store.Path = expandPath(c.Store.Path, configDir)
	c.Storage.DatabasePath = expandPath(c.Storage.DatabasePath, configDir)
	c.Keyword.IndexPath = expandPath(c.Keyword.IndexPath, configDir)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty stays empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
