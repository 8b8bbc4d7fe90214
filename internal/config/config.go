// Package config provides unified configuration loading for pdf-diff.
// Supports YAML and TOML files, a .env file, and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/spherical/pdf-diff/internal/domain"
)

const envPrefix = "PDFDIFF_"

// Config holds all configuration for pdf-diff.
type Config struct {
	Diff          DiffConfig          `yaml:"diff" toml:"diff"`
	Extract       ExtractConfig       `yaml:"extract" toml:"extract"`
	Cache         CacheConfig         `yaml:"cache" toml:"cache"`
	History       HistoryConfig       `yaml:"history" toml:"history"`
	Server        ServerConfig        `yaml:"server" toml:"server"`
	Batch         BatchConfig         `yaml:"batch" toml:"batch"`
	Observability ObservabilityConfig `yaml:"observability" toml:"observability"`
	Output        OutputConfig        `yaml:"output" toml:"output"`
}

// DiffConfig holds alignment settings.
type DiffConfig struct {
	Strategy          string `yaml:"strategy" toml:"strategy"` // ratcliff or myers
	ExemptBoilerplate bool   `yaml:"exempt_boilerplate" toml:"exempt_boilerplate"`
}

// ExtractConfig holds tokenizer settings.
type ExtractConfig struct {
	RowTolerance      float64 `yaml:"row_tolerance" toml:"row_tolerance"`
	WordGapMultiplier float64 `yaml:"word_gap_multiplier" toml:"word_gap_multiplier"`
	FlipY             bool    `yaml:"flip_y" toml:"flip_y"`
}

// CacheConfig holds token-stream cache settings.
type CacheConfig struct {
	Driver    string        `yaml:"driver" toml:"driver"` // none, memory, badger or redis
	TTL       time.Duration `yaml:"ttl" toml:"ttl"`
	BadgerDir string        `yaml:"badger_dir" toml:"badger_dir"`
	Redis     RedisConfig   `yaml:"redis" toml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr" toml:"addr"`
	Password string `yaml:"password" toml:"password"`
	DB       int    `yaml:"db" toml:"db"`
	PoolSize int    `yaml:"pool_size" toml:"pool_size"`
}

// HistoryConfig holds run-history database settings.
type HistoryConfig struct {
	Driver      string `yaml:"driver" toml:"driver"` // none, sqlite or postgres
	SQLitePath  string `yaml:"sqlite_path" toml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn" toml:"postgres_dsn"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host" toml:"host"`
	Port             int           `yaml:"port" toml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout" toml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout" toml:"idle_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout" toml:"request_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown" toml:"graceful_shutdown"`
	MaxBodyBytes     int64         `yaml:"max_body_bytes" toml:"max_body_bytes"`
}

// BatchConfig holds worker pool settings.
type BatchConfig struct {
	Workers int `yaml:"workers" toml:"workers"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level" toml:"log_level"`
	LogFormat string `yaml:"log_format" toml:"log_format"`
}

// OutputConfig controls which artifacts a comparison writes.
type OutputConfig struct {
	AnnotationDir string `yaml:"annotation_dir" toml:"annotation_dir"`
	ReportDir     string `yaml:"report_dir" toml:"report_dir"`
	PageDiff      bool   `yaml:"page_diff" toml:"page_diff"`
}

// Load reads configuration from a YAML or TOML file and applies environment overrides.
// An empty path yields the defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := loadDotEnv(".env"); err != nil {
		return nil, domain.ConfigError("load .env", err)
	}

	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, domain.ConfigError("apply environment", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, domain.ConfigError("validate config", err)
	}

	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ConfigError("read config file", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return domain.ConfigError("parse toml config", err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return domain.ConfigError("parse yaml config", err)
		}
	default:
		return domain.ConfigError(fmt.Sprintf("unsupported config extension %q", filepath.Ext(path)), nil)
	}
	return nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// DefaultConfig returns a configuration with sensible defaults for local use.
func DefaultConfig() *Config {
	return &Config{
		Diff: DiffConfig{
			Strategy:          "ratcliff",
			ExemptBoilerplate: true,
		},
		Extract: ExtractConfig{
			RowTolerance:      3.0,
			WordGapMultiplier: 0.3,
			FlipY:             true,
		},
		Cache: CacheConfig{
			Driver:    "badger",
			TTL:       7 * 24 * time.Hour,
			BadgerDir: filepath.Join(xdg.CacheHome, "pdf-diff", "tokens"),
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				PoolSize: 10,
			},
		},
		History: HistoryConfig{
			Driver:     "sqlite",
			SQLitePath: filepath.Join(xdg.DataHome, "pdf-diff", "history.db"),
		},
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8086,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     60 * time.Second,
			IdleTimeout:      120 * time.Second,
			RequestTimeout:   60 * time.Second,
			GracefulShutdown: 10 * time.Second,
			MaxBodyBytes:     32 << 20,
		},
		Batch: BatchConfig{
			Workers: 4,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "console",
		},
		Output: OutputConfig{
			AnnotationDir: ".",
			ReportDir:     ".",
			PageDiff:      false,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Diff.Strategy {
	case "ratcliff", "myers":
	default:
		return fmt.Errorf("invalid diff strategy: %s", c.Diff.Strategy)
	}

	if c.Extract.RowTolerance < 0 {
		return fmt.Errorf("row_tolerance must not be negative")
	}
	if c.Extract.WordGapMultiplier <= 0 {
		return fmt.Errorf("word_gap_multiplier must be positive")
	}

	switch c.Cache.Driver {
	case "none", "memory":
	case "badger":
		if c.Cache.BadgerDir == "" {
			return fmt.Errorf("cache.badger_dir is required for the badger driver")
		}
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	switch c.History.Driver {
	case "none":
	case "sqlite":
		if c.History.SQLitePath == "" {
			return fmt.Errorf("history.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if c.History.PostgresDSN == "" {
			return fmt.Errorf("history.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("invalid history driver: %s", c.History.Driver)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be at least 1")
	}

	return nil
}

// HistoryDSN returns the connection string for the configured history driver.
func (c *Config) HistoryDSN() string {
	if c.History.Driver == "postgres" {
		return c.History.PostgresDSN
	}
	return c.History.SQLitePath
}

// ServerAddr returns host:port for the HTTP listener.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// applyEnvOverrides applies PDFDIFF_* environment variables to cfg.
func applyEnvOverrides(cfg *Config) error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	boolean := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(envPrefix + key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := os.LookupEnv(envPrefix + key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(envPrefix + key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	str("DIFF_STRATEGY", &cfg.Diff.Strategy)
	boolean("EXEMPT_BOILERPLATE", &cfg.Diff.ExemptBoilerplate)

	str("CACHE_DRIVER", &cfg.Cache.Driver)
	duration("CACHE_TTL", &cfg.Cache.TTL)
	str("CACHE_DIR", &cfg.Cache.BadgerDir)
	if v := os.Getenv(envPrefix + "REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}
	str("REDIS_PASSWORD", &cfg.Cache.Redis.Password)

	if v := os.Getenv(envPrefix + "DATABASE_URL"); v != "" {
		if strings.HasPrefix(v, "sqlite:") {
			cfg.History.Driver = "sqlite"
			cfg.History.SQLitePath = strings.TrimPrefix(v, "sqlite:")
		} else if strings.HasPrefix(v, "postgres") {
			cfg.History.Driver = "postgres"
			cfg.History.PostgresDSN = v
		}
	}
	str("HISTORY_DRIVER", &cfg.History.Driver)

	str("SERVER_HOST", &cfg.Server.Host)
	integer("SERVER_PORT", &cfg.Server.Port)
	integer("WORKERS", &cfg.Batch.Workers)

	str("LOG_LEVEL", &cfg.Observability.LogLevel)
	str("LOG_FORMAT", &cfg.Observability.LogFormat)

	str("ANNOTATION_DIR", &cfg.Output.AnnotationDir)
	str("REPORT_DIR", &cfg.Output.ReportDir)

	return errors.Join(errs...)
}
