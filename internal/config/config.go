package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	SourceHTTP     = "http"
	SourcePostgres = "postgres"
	SourceMemory   = "memory"
)

type Config struct {
	APIURL            string  `env:"BACKOFFICE_API_URL"`
	APIToken          string  `env:"BACKOFFICE_API_TOKEN"`
	TokenSecret       string  `env:"BACKOFFICE_TOKEN_SECRET"`
	Source            string  `env:"BACKOFFICE_SOURCE"`
	DatabaseURL       string  `env:"DATABASE_URL"`
	RedisAddr         string  `env:"REDIS_ADDR"`
	RedisPassword     string  `env:"REDIS_PASSWORD"`
	RedisDB           int     `env:"REDIS_DB" env-default:"0"`
	CacheTTLSeconds   int     `env:"CACHE_TTL_SECONDS" env-default:"20"`
	SearchDebounceMS  int     `env:"SEARCH_DEBOUNCE_MS" env-default:"300"`
	DefaultPerPage    int     `env:"DEFAULT_PER_PAGE" env-default:"10"`
	MaxPerPage        int     `env:"MAX_PER_PAGE" env-default:"100"`
	RequestsPerSecond float64 `env:"REQUESTS_PER_SECOND" env-default:"5"`
	ScreensFile       string  `env:"BACKOFFICE_SCREENS_FILE"`
	LogFormat         string  `env:"LOG_FORMAT" env-default:"json"`
	LogLevel          string  `env:"LOG_LEVEL" env-default:"info"`
}

func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	cfg.sanitize()
	return cfg, nil
}

// sanitize falls back to defaults for out-of-range values instead of
// refusing to start.
func (c *Config) sanitize() {
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	c.APIToken = strings.TrimSpace(c.APIToken)
	c.TokenSecret = strings.TrimSpace(c.TokenSecret)
	c.Source = strings.ToLower(strings.TrimSpace(c.Source))
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.RedisAddr = strings.TrimSpace(c.RedisAddr)

	if c.RedisDB < 0 {
		c.RedisDB = 0
	}
	if c.CacheTTLSeconds < 1 {
		c.CacheTTLSeconds = 20
	}
	if c.SearchDebounceMS < 0 {
		c.SearchDebounceMS = 300
	}
	if c.MaxPerPage < 1 {
		c.MaxPerPage = 100
	}
	if c.DefaultPerPage < 1 {
		c.DefaultPerPage = 10
	}
	if c.DefaultPerPage > c.MaxPerPage {
		c.DefaultPerPage = c.MaxPerPage
	}
	if c.RequestsPerSecond < 0 {
		c.RequestsPerSecond = 0
	}
}

// SourceKind is the configured list source, or the first one that has
// connection settings: API, then database, then the seeded memory data.
func (c Config) SourceKind() string {
	if c.Source != "" {
		return c.Source
	}
	switch {
	case c.APIURL != "":
		return SourceHTTP
	case c.DatabaseURL != "":
		return SourcePostgres
	default:
		return SourceMemory
	}
}

func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c Config) SearchDebounce() time.Duration {
	return time.Duration(c.SearchDebounceMS) * time.Millisecond
}
