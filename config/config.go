package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/clausemark/ai"
)

// Storage backends.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CLAUSEMARK_"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// StorageConfig selects where documents are stored.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Host             string `yaml:"host"`
	Model            string `yaml:"model"`
	IndexPath        string `yaml:"index_path"`
	MockDimension    int    `yaml:"mock_dimension"`
	ProbeTimeoutSecs int    `yaml:"probe_timeout_secs"`
}

// AuditConfig points at an optional rule file replacing the built-in rules.
type AuditConfig struct {
	RulesFile string `yaml:"rules_file"`
}

// WebhookConfig configures audit notifications. An empty URL disables them.
type WebhookConfig struct {
	URL           string  `yaml:"url"`
	TimeoutSecs   int     `yaml:"timeout_secs"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`
	Workers       int     `yaml:"workers"`
}

// IngestionConfig tunes background processing.
type IngestionConfig struct {
	Workers      int `yaml:"workers"`
	MaxRetries   int `yaml:"max_retries"`
	RetryDelayMs int `yaml:"retry_delay_ms"`
	SampleSize   int `yaml:"sample_size"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
	MaxTopK     int    `yaml:"max_top_k"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	LogLevel  string          `yaml:"log_level"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Audit     AuditConfig     `yaml:"audit"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Server    ServerConfig    `yaml:"server"`
}

// Default returns the configuration used when no file exists.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

// Load reads a config from path and applies defaults and environment
// overrides. A missing file yields the defaults.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	applyDefaults(cfg)
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to path, creating directories as needed.
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

func applyDefaults(cfg *AppConfig) {
	aiDefaults := ai.DefaultConfig()
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendBadger
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "clausemark.db"
	}
	if cfg.Embedding.Host == "" {
		cfg.Embedding.Host = aiDefaults.EmbeddingHost
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = aiDefaults.EmbeddingModel
	}
	if cfg.Embedding.IndexPath == "" {
		cfg.Embedding.IndexPath = aiDefaults.IndexPath
	}
	if cfg.Embedding.MockDimension == 0 {
		cfg.Embedding.MockDimension = aiDefaults.MockDimension
	}
	if cfg.Embedding.ProbeTimeoutSecs == 0 {
		cfg.Embedding.ProbeTimeoutSecs = int(aiDefaults.ProbeTimeout / time.Second)
	}
	if cfg.Webhook.TimeoutSecs == 0 {
		cfg.Webhook.TimeoutSecs = 5
	}
	if cfg.Webhook.RatePerSecond == 0 {
		cfg.Webhook.RatePerSecond = 10
	}
	if cfg.Webhook.Burst == 0 {
		cfg.Webhook.Burst = 10
	}
	if cfg.Webhook.Workers == 0 {
		cfg.Webhook.Workers = 4
	}
	if cfg.Ingestion.MaxRetries == 0 {
		cfg.Ingestion.MaxRetries = 3
	}
	if cfg.Ingestion.RetryDelayMs == 0 {
		cfg.Ingestion.RetryDelayMs = 1000
	}
	if cfg.Ingestion.SampleSize == 0 {
		cfg.Ingestion.SampleSize = 3
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 32
	}
	if cfg.Server.MaxTopK == 0 {
		cfg.Server.MaxTopK = 100
	}
}

// ApplyEnv overrides fields from CLAUSEMARK_* variables found by lookup.
func (c *AppConfig) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"LOG_LEVEL":       &c.LogLevel,
		"STORAGE_BACKEND": &c.Storage.Backend,
		"STORAGE_PATH":    &c.Storage.Path,
		"EMBEDDING_HOST":  &c.Embedding.Host,
		"EMBEDDING_MODEL": &c.Embedding.Model,
		"INDEX_PATH":      &c.Embedding.IndexPath,
		"RULES_FILE":      &c.Audit.RulesFile,
		"WEBHOOK_URL":     &c.Webhook.URL,
		"SERVER_ADDR":     &c.Server.Addr,
	}
	for name, field := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*field = v
		}
	}

	ints := map[string]*int{
		"MOCK_DIMENSION":     &c.Embedding.MockDimension,
		"PROBE_TIMEOUT_SECS": &c.Embedding.ProbeTimeoutSecs,
		"WORKERS":            &c.Ingestion.Workers,
		"MAX_TOP_K":          &c.Server.MaxTopK,
	}
	for name, field := range ints {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s: %w", ErrInvalidConfig, EnvPrefix, name, err)
		}
		*field = n
	}
	return nil
}

// Validate checks the configuration for values no component can use.
func (c *AppConfig) Validate() error {
	switch c.Storage.Backend {
	case BackendBadger, BackendSQLite:
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}
	if c.Webhook.TimeoutSecs <= 0 {
		return fmt.Errorf("%w: webhook timeout must be positive", ErrInvalidConfig)
	}
	if c.Ingestion.MaxRetries <= 0 {
		return fmt.Errorf("%w: max_retries must be positive", ErrInvalidConfig)
	}
	if c.Server.MaxTopK < 0 {
		return fmt.Errorf("%w: max_top_k must be positive", ErrInvalidConfig)
	}
	if err := c.AIConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// AIConfig returns the embedding provider configuration.
func (c *AppConfig) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.Embedding.Host),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithIndexPath(c.Embedding.IndexPath),
		ai.WithMockDimension(c.Embedding.MockDimension),
		ai.WithProbeTimeout(time.Duration(c.Embedding.ProbeTimeoutSecs)*time.Second),
	)
}

// RetryDelay returns the ingestion backoff base delay.
func (c *AppConfig) RetryDelay() time.Duration {
	return time.Duration(c.Ingestion.RetryDelayMs) * time.Millisecond
}

// WebhookTimeout returns the per-delivery timeout.
func (c *AppConfig) WebhookTimeout() time.Duration {
	return time.Duration(c.Webhook.TimeoutSecs) * time.Second
}
