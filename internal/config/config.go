// Package config loads Linegra's layered configuration: built-in defaults,
// an optional YAML file, then LINEGRA_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/FocuswithJustin/Linegra/core/capsule"
	"github.com/FocuswithJustin/Linegra/core/errors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LINEGRA"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Log      LogConfig
	Import   ImportConfig
	Watch    WatchConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	// APIKey, when set, is required in the X-API-Key header.
	APIKey         string   `mapstructure:"api_key"`
	RateLimit      int      `mapstructure:"rate_limit"` // requests per minute, 0 disables
	RateBurst      int      `mapstructure:"rate_burst"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// JobRetention bounds how many finished import jobs are kept.
	JobRetention int `mapstructure:"job_retention"`
}

// DatabaseConfig selects and tunes the archive database.
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// Postgres reports whether the PostgreSQL driver is selected.
func (d DatabaseConfig) Postgres() bool {
	return d.Driver == "postgres"
}

// StorageConfig selects where import bundles are kept.
type StorageConfig struct {
	Provider  string `mapstructure:"provider"`
	Dir       string `mapstructure:"dir"`
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ImportConfig tunes the import pipeline.
type ImportConfig struct {
	CacheSize   int    `mapstructure:"cache_size"`
	Compression string `mapstructure:"compression"`
	Actor       string `mapstructure:"actor"`
}

// WatchConfig tunes the inbox watcher.
type WatchConfig struct {
	Patterns []string      `mapstructure:"patterns"`
	Debounce time.Duration `mapstructure:"debounce"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.max_upload_bytes", 64<<20)
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("server.rate_burst", 10)
	v.SetDefault("server.allowed_origins", "")
	v.SetDefault("server.job_retention", 100)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "linegra.db")
	v.SetDefault("database.max_open_conns", 1)

	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.dir", "bundles")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.bucket", "linegra-bundles")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.use_ssl", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("import.cache_size", 32)
	v.SetDefault("import.compression", "xz")
	v.SetDefault("import.actor", "linegra")

	v.SetDefault("watch.patterns", "*.ged,*.GED")
	v.SetDefault("watch.debounce", "500ms")
}

// Load reads configuration. path names an optional YAML file; when empty,
// LINEGRA_CONFIG is consulted.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:           v.GetString("server.addr"),
			ReadTimeout:    v.GetDuration("server.read_timeout"),
			WriteTimeout:   v.GetDuration("server.write_timeout"),
			MaxUploadBytes: v.GetInt64("server.max_upload_bytes"),
			APIKey:         v.GetString("server.api_key"),
			RateLimit:      v.GetInt("server.rate_limit"),
			RateBurst:      v.GetInt("server.rate_burst"),
			AllowedOrigins: splitList(v.GetStringSlice("server.allowed_origins")),
			JobRetention:   v.GetInt("server.job_retention"),
		},
		Database: DatabaseConfig{
			Driver:       strings.ToLower(v.GetString("database.driver")),
			DSN:          v.GetString("database.dsn"),
			MaxOpenConns: v.GetInt("database.max_open_conns"),
		},
		Storage: StorageConfig{
			Provider:  strings.ToLower(v.GetString("storage.provider")),
			Dir:       v.GetString("storage.dir"),
			Endpoint:  v.GetString("storage.endpoint"),
			Bucket:    v.GetString("storage.bucket"),
			Region:    v.GetString("storage.region"),
			AccessKey: v.GetString("storage.access_key"),
			SecretKey: v.GetString("storage.secret_key"),
			UseSSL:    v.GetBool("storage.use_ssl"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Import: ImportConfig{
			CacheSize:   v.GetInt("import.cache_size"),
			Compression: v.GetString("import.compression"),
			Actor:       v.GetString("import.actor"),
		},
		Watch: WatchConfig{
			Patterns: splitList(v.GetStringSlice("watch.patterns")),
			Debounce: v.GetDuration("watch.debounce"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitList accepts both YAML lists and comma-separated env values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return errors.NewValidation("database.driver", fmt.Sprintf("unknown driver %q (want sqlite or postgres)", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		return errors.NewValidation("database.dsn", "required")
	}
	switch c.Storage.Provider {
	case "local":
		if c.Storage.Dir == "" {
			return errors.NewValidation("storage.dir", "required for local storage")
		}
	case "s3":
		if c.Storage.Endpoint == "" || c.Storage.Bucket == "" {
			return errors.NewValidation("storage.endpoint", "endpoint and bucket are required for s3 storage")
		}
	default:
		return errors.NewValidation("storage.provider", fmt.Sprintf("unknown provider %q (want local or s3)", c.Storage.Provider))
	}
	if _, err := capsule.ParseCompression(c.Import.Compression); err != nil {
		return errors.NewValidation("import.compression", err.Error())
	}
	if c.Import.CacheSize < 1 {
		return errors.NewValidation("import.cache_size", "must be at least 1")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.NewValidation("server.max_upload_bytes", "must be positive")
	}
	if c.Server.APIKey != "" && len(c.Server.APIKey) < 16 {
		return errors.NewValidation("server.api_key", fmt.Sprintf("must be at least 16 characters (got %d)", len(c.Server.APIKey)))
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return errors.NewValidation("server.rate_limit", "must not be negative")
	}
	if c.Server.JobRetention < 0 {
		return errors.NewValidation("server.job_retention", "must not be negative")
	}
	return nil
}
