package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Content   ContentConfig   `mapstructure:"content"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Search    SearchConfig    `mapstructure:"search"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug, release
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ContentConfig selects and tunes the content repository collaborator
type ContentConfig struct {
	Source          string        `mapstructure:"source"` // cosmic, fixture
	Endpoint        string        `mapstructure:"endpoint"`
	Bucket          string        `mapstructure:"bucket"`
	ReadKey         string        `mapstructure:"read_key"`
	Timeout         time.Duration `mapstructure:"timeout"`
	PerTypeLimit    int           `mapstructure:"per_type_limit"`
	PageSize        int           `mapstructure:"page_size"`
	FixturePath     string        `mapstructure:"fixture_path"`
	WatchFixture    bool          `mapstructure:"watch_fixture"`
	RefreshSchedule string        `mapstructure:"refresh_schedule"` // cron spec, empty disables
}

// CacheConfig contains snapshot cache configuration
type CacheConfig struct {
	Backend       string        `mapstructure:"backend"` // badger, redis, memory, none
	TTL           time.Duration `mapstructure:"ttl"`
	Namespace     string        `mapstructure:"namespace"`
	BadgerPath    string        `mapstructure:"badger_path"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	MemorySize    int           `mapstructure:"memory_size"`
}

// SearchConfig tunes the fuzzy index and result paging
type SearchConfig struct {
	Threshold      float64       `mapstructure:"threshold"`
	Fuzziness      string        `mapstructure:"fuzziness"` // auto, 0, 1, 2
	DefaultLimit   int           `mapstructure:"default_limit"`
	MaxLimit       int           `mapstructure:"max_limit"`
	Debounce       time.Duration `mapstructure:"debounce"`
	QueryCacheSize int           `mapstructure:"query_cache_size"`
}

// AuthConfig contains admin token configuration
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	JWTExpiry time.Duration `mapstructure:"jwt_expiry"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

// CORSConfig contains CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load loads configuration from file and environment variables.
// Priority: ENV vars > config file > defaults. An explicit path overrides the search paths.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.SetEnvPrefix("STATIONSEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Content defaults
	v.SetDefault("content.source", "cosmic")
	v.SetDefault("content.endpoint", "https://api.cosmicjs.com/v3")
	v.SetDefault("content.timeout", "20s")
	v.SetDefault("content.per_type_limit", 1000)
	v.SetDefault("content.page_size", 100)
	v.SetDefault("content.fixture_path", "./data/content.json")
	v.SetDefault("content.watch_fixture", false)
	v.SetDefault("content.refresh_schedule", "@every 15m")

	// Cache defaults
	v.SetDefault("cache.backend", "badger")
	v.SetDefault("cache.ttl", "15m")
	v.SetDefault("cache.namespace", "stationsearch:v1")
	v.SetDefault("cache.badger_path", "./data/cache")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.memory_size", 16)

	// Search defaults
	v.SetDefault("search.threshold", 0.9)
	v.SetDefault("search.fuzziness", "auto")
	v.SetDefault("search.default_limit", 24)
	v.SetDefault("search.max_limit", 100)
	v.SetDefault("search.debounce", "250ms")
	v.SetDefault("search.query_cache_size", 256)

	// Auth defaults
	v.SetDefault("auth.jwt_expiry", "1h")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Rate limit defaults
	v.SetDefault("rate_limit.requests_per_minute", 600)
	v.SetDefault("rate_limit.burst", 60)

	// CORS defaults
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.Server.Mode != "debug" && cfg.Server.Mode != "release" {
		return fmt.Errorf("server.mode must be 'debug' or 'release', got: %s", cfg.Server.Mode)
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got: %d", cfg.Server.Port)
	}

	switch cfg.Content.Source {
	case "cosmic":
		if cfg.Content.Endpoint == "" {
			return fmt.Errorf("content.endpoint is required for the cosmic source")
		}
		if cfg.Content.Bucket == "" {
			return fmt.Errorf("content.bucket is required for the cosmic source")
		}
	case "fixture":
		if cfg.Content.FixturePath == "" {
			return fmt.Errorf("content.fixture_path is required for the fixture source")
		}
	default:
		return fmt.Errorf("content.source must be 'cosmic' or 'fixture', got: %s", cfg.Content.Source)
	}
	if cfg.Content.PerTypeLimit < 1 {
		return fmt.Errorf("content.per_type_limit must be positive, got: %d", cfg.Content.PerTypeLimit)
	}
	if cfg.Content.PageSize < 1 || cfg.Content.PageSize > 1000 {
		return fmt.Errorf("content.page_size must be between 1 and 1000, got: %d", cfg.Content.PageSize)
	}
	if cfg.Content.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Content.RefreshSchedule); err != nil {
			return fmt.Errorf("content.refresh_schedule is not a valid cron spec: %w", err)
		}
	}

	switch cfg.Cache.Backend {
	case "badger":
		if cfg.Cache.BadgerPath == "" {
			return fmt.Errorf("cache.badger_path is required for the badger backend")
		}
	case "redis":
		if cfg.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required for the redis backend")
		}
	case "memory", "none":
	default:
		return fmt.Errorf("cache.backend must be one of: badger, redis, memory, none, got: %s", cfg.Cache.Backend)
	}
	if cfg.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got: %s", cfg.Cache.TTL)
	}

	if cfg.Search.Threshold < 0 || cfg.Search.Threshold > 1 {
		return fmt.Errorf("search.threshold must be between 0 and 1, got: %v", cfg.Search.Threshold)
	}
	if _, err := ParseFuzziness(cfg.Search.Fuzziness); err != nil {
		return err
	}
	if cfg.Search.DefaultLimit < 1 || cfg.Search.MaxLimit < cfg.Search.DefaultLimit {
		return fmt.Errorf("search.default_limit must be >= 1 and <= search.max_limit, got: %d/%d",
			cfg.Search.DefaultLimit, cfg.Search.MaxLimit)
	}

	if cfg.Auth.JWTSecret != "" && len(cfg.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters long")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error, got: %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "text" {
		return fmt.Errorf("logging.format must be 'json' or 'text', got: %s", cfg.Logging.Format)
	}

	return nil
}

// ParseFuzziness maps the fuzziness setting to an edit distance; -1 means auto
func ParseFuzziness(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return -1, nil
	case "0":
		return 0, nil
	case "1":
		return 1, nil
	case "2":
		return 2, nil
	}
	return 0, fmt.Errorf("search.fuzziness must be one of: auto, 0, 1, 2, got: %s", s)
}
