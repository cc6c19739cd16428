// Package config loads the catalog service configuration from environment
// variables (CATALOG_ prefix), flags and optional YAML files.
package config

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

const (
	envPrefix   = "CATALOG"
	defaultAddr = ":8082"
)

// Storage backends.
const (
	StorageFile   = "file"
	StorageMemory = "memory"
)

// DefaultFiles are read in order; missing files are skipped.
var DefaultFiles = []string{"catalog.yaml", "/etc/catalog/config.yaml"}

type Config struct {
	Addr            string        `default:":8082" usage:"HTTP listen address" env:"ADDR" flag:"addr" yaml:"addr"`
	Storage         string        `default:"file" usage:"Catalog storage backend (file, memory)" env:"STORAGE" flag:"storage" yaml:"storage"`
	DataFile        string        `default:"products.json" usage:"Catalog backing file when storage is file" env:"DATA_FILE" flag:"data-file" yaml:"data_file"`
	MinProducts     int           `default:"10" usage:"Products required before catalog reads are served" env:"MIN_PRODUCTS" flag:"min-products" yaml:"min_products"`
	LogLevel        string        `default:"info" usage:"Log level (debug, info, warn, error)" env:"LOG_LEVEL" flag:"log-level" yaml:"log_level"`
	ShutdownTimeout time.Duration `default:"10s" usage:"Maximum graceful shutdown duration" env:"SHUTDOWN_TIMEOUT" flag:"shutdown-timeout" yaml:"shutdown_timeout"`
	Metrics         MetricsConfig
	CORS            CORSConfig
	RateLimit       RateLimitConfig
}

// MetricsConfig controls the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `default:"true" usage:"Expose /metrics" env:"ENABLED" flag:"enabled" yaml:"enabled"`
	Token   string `usage:"Bearer token required on /metrics" env:"TOKEN" flag:"token" yaml:"token"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins []string `default:"*" usage:"Allowed CORS origins" env:"ORIGINS" flag:"origins" yaml:"origins"`
}

// RateLimitConfig limits mutating requests per client IP.
type RateLimitConfig struct {
	Writes int           `default:"0" usage:"Max mutating requests per window per client, 0 disables" env:"WRITES" flag:"writes" yaml:"writes"`
	Window time.Duration `default:"1m" usage:"Rate limit window" env:"WINDOW" flag:"window" yaml:"window"`
}

// Load reads configuration. args are command-line flags without the program
// name; a -config flag names an extra YAML file.
func Load(args []string, files ...string) (*Config, error) {
	if files == nil {
		files = DefaultFiles
	}
	if args == nil {
		args = []string{}
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix:        envPrefix,
		AllowUnknownEnvs: true,
		Args:             args,
		FileFlag:         "config",
		Files:            files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
			".yml":  aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage {
	case StorageFile:
		if c.DataFile == "" {
			return errors.New("data file is required for file storage")
		}
	case StorageMemory:
	default:
		return errors.Errorf("unknown storage %q", c.Storage)
	}
	if c.MinProducts < 0 {
		return errors.Errorf("min products %d is negative", c.MinProducts)
	}
	if _, err := zap.ParseAtomicLevel(c.LogLevel); err != nil {
		return errors.Wrapf(err, "log level %q", c.LogLevel)
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.RateLimit.Writes < 0 {
		return errors.Errorf("rate limit writes %d is negative", c.RateLimit.Writes)
	}
	if c.RateLimit.Writes > 0 && c.RateLimit.Window <= 0 {
		return errors.New("rate limit window must be positive")
	}
	return nil
}

// applyPlatformDefaults honours the conventional PORT variable set by hosting
// platforms when no address was configured explicitly.
func (c *Config) applyPlatformDefaults() {
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = ":" + port
	}
}
