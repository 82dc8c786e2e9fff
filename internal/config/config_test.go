package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FocuswithJustin/Linegra/core/errors"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LINEGRA_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.False(t, cfg.Database.Postgres())
	assert.Equal(t, "local", cfg.Storage.Provider)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 32, cfg.Import.CacheSize)
	assert.Equal(t, "xz", cfg.Import.Compression)
	assert.Equal(t, []string{"*.ged", "*.GED"}, cfg.Watch.Patterns)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
	assert.Empty(t, cfg.Server.APIKey)
	assert.Zero(t, cfg.Server.RateLimit)
	assert.Empty(t, cfg.Server.AllowedOrigins)
	assert.Equal(t, 100, cfg.Server.JobRetention)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "linegra.yaml")
	yaml := `
server:
  addr: ":9090"
database:
  driver: postgres
  dsn: postgres://linegra@localhost/linegra
log:
  level: debug
watch:
  patterns:
    - "*.ged"
    - "inbox-*.txt"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))
	t.Setenv("LINEGRA_LOG_FORMAT", "text")
	t.Setenv("LINEGRA_IMPORT_COMPRESSION", "gzip")
	t.Setenv("LINEGRA_SERVER_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.True(t, cfg.Database.Postgres())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "gzip", cfg.Import.Compression)
	assert.Equal(t, []string{"*.ged", "inbox-*.txt"}, cfg.Watch.Patterns)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestLoadConfigFromEnvPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":7070\"\n"), 0644))
	t.Setenv("LINEGRA_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("LINEGRA_CONFIG", "")
	base := func(t *testing.T) *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"dsn", func(c *Config) { c.Database.DSN = "" }, "database.dsn"},
		{"provider", func(c *Config) { c.Storage.Provider = "ftp" }, "storage.provider"},
		{"s3 endpoint", func(c *Config) { c.Storage.Provider = "s3" }, "storage.endpoint"},
		{"compression", func(c *Config) { c.Import.Compression = "zstd" }, "import.compression"},
		{"cache", func(c *Config) { c.Import.CacheSize = 0 }, "import.cache_size"},
		{"api key", func(c *Config) { c.Server.APIKey = "short" }, "server.api_key"},
		{"rate limit", func(c *Config) { c.Server.RateLimit = -1 }, "server.rate_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			var verr *errors.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList([]string{"a, b", " c "}))
	assert.Nil(t, splitList([]string{" , "}))
}
