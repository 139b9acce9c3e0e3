// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Session backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds the service configuration.
type Config struct {
	// Catalog API
	BaseURL           string        `env:"POKEAPI_BASE_URL" env-default:"https://pokeapi.co/api/v2" env-description:"catalog API base URL"`
	PageSize          int           `env:"PAGE_SIZE" env-default:"20" env-description:"entries per page"`
	UserAgent         string        `env:"USER_AGENT" env-default:"pokedex-browser/0.1.0" env-description:"User-Agent sent to the catalog API"`
	HTTPTimeout       time.Duration `env:"HTTP_TIMEOUT" env-default:"15s" env-description:"timeout per catalog request"`
	MaxAttempts       int           `env:"MAX_ATTEMPTS" env-default:"1" env-description:"attempts per catalog request for 5xx/network failures"`
	DetailConcurrency int           `env:"DETAIL_CONCURRENCY" env-default:"0" env-description:"parallel detail lookups per page, 0 for the whole page"`

	// Server
	Port      string `env:"PORT" env-default:"8080" env-description:"HTTP listen port"`
	LogLevel  string `env:"LOG_LEVEL" env-default:"info" env-description:"debug, info, warn or error"`
	LogPretty bool   `env:"LOG_PRETTY" env-default:"false" env-description:"human-readable console logs"`

	// Sessions
	SessionBackend string        `env:"SESSION_BACKEND" env-default:"memory" env-description:"memory or redis"`
	SessionTTL     time.Duration `env:"SESSION_TTL" env-default:"30m" env-description:"idle session lifetime"`
	RedisURL       string        `env:"REDIS_URL" env-default:"localhost:6379" env-description:"Redis address for the redis backend"`
}

// Load reads an optional .env file, then the environment.
func Load() (Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges cleanenv cannot express.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("POKEAPI_BASE_URL is required")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be > 0 (got %d)", c.PageSize)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("MAX_ATTEMPTS must be >= 1 (got %d)", c.MaxAttempts)
	}
	if c.DetailConcurrency < 0 {
		return fmt.Errorf("DETAIL_CONCURRENCY must be >= 0 (got %d)", c.DetailConcurrency)
	}
	switch c.SessionBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend)
	}
	return nil
}

// Usage returns the environment variable help text.
func Usage() string {
	var cfg Config
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return text
}
