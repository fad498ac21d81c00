package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, BackendBadger, cfg.Storage.Backend)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Embedding.Host)
	assert.Equal(t, 32, cfg.Embedding.MockDimension)
	assert.Equal(t, 5*time.Second, cfg.WebhookTimeout())
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 100, cfg.Server.MaxTopK)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clausemark.yaml")
	data := `storage:
  backend: sqlite
  path: /tmp/docs.sqlite
embedding:
  model: text-embedding-3-small
webhook:
  url: http://hooks.local/audit
ingestion:
  retry_delay_ms: 250
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "/tmp/docs.sqlite", cfg.Storage.Path)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, "http://hooks.local/audit", cfg.Webhook.URL)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryDelay())
	assert.Equal(t, "all-minilm", Default().Embedding.Model)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage: [unclosed"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"CLAUSEMARK_STORAGE_BACKEND": "sqlite",
		"CLAUSEMARK_WEBHOOK_URL":     "http://example.test/hook",
		"CLAUSEMARK_MOCK_DIMENSION":  "64",
		"CLAUSEMARK_MAX_TOP_K":       "20",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "http://example.test/hook", cfg.Webhook.URL)
	assert.Equal(t, 64, cfg.Embedding.MockDimension)
	assert.Equal(t, 20, cfg.Server.MaxTopK)

	env["CLAUSEMARK_WORKERS"] = "many"
	assert.ErrorIs(t, cfg.ApplyEnv(lookup), ErrInvalidConfig)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("CLAUSEMARK_SERVER_ADDR", "127.0.0.1:9000")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = "postgres"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = Default()
	cfg.Embedding.MockDimension = -1
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = Default()
	cfg.Server.MaxTopK = -5
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cfg.yaml")
	cfg := Default()
	cfg.Audit.RulesFile = "rules.yaml"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestAIConfig(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Host = "http://embed:8000"
	aiCfg := cfg.AIConfig()
	require.NoError(t, aiCfg.Validate())
	assert.Equal(t, "http://embed:8000/v1", aiCfg.EmbeddingHost)
}
