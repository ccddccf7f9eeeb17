package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds the play server's settings, read from the environment.
type Config struct {
	// Game service
	ServiceURL     string        `env:"GAME_SERVICE_URL" envDefault:"http://localhost:8000"`
	Difficulty     string        `env:"DIFFICULTY" envDefault:"medium"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	ServiceRPS     float64       `env:"SERVICE_RPS" envDefault:"5"`
	ServiceBurst   int           `env:"SERVICE_BURST" envDefault:"5"`

	// Session timers
	ClueDisplay      time.Duration `env:"CLUE_DISPLAY_DURATION" envDefault:"10s"`
	CelebrationDelay time.Duration `env:"CELEBRATION_DELAY" envDefault:"500ms"`

	// Play server
	Port           int           `env:"PORT" envDefault:"8080"`
	Environment    string        `env:"ENV" envDefault:"development"`
	GinMode        string        `env:"GIN_MODE"`
	RateLimitRPS   int           `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int           `env:"RATE_LIMIT_BURST" envDefault:"10"`
	StaticCacheAge time.Duration `env:"STATIC_CACHE_AGE" envDefault:"5m"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"LOG_JSON" envDefault:"false"`
}

// Load reads a .env file when one exists, then parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("no .env file loaded: %v", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config from environment: %w", err)
	}
	return cfg, nil
}

// IsProduction reports whether release settings should apply.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release" || c.Environment == "production"
}

// Validate checks values env parsing cannot.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServiceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid GAME_SERVICE_URL: %q", c.ServiceURL)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT: %d (must be 1-65535)", c.Port)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %v", c.RequestTimeout)
	}
	if c.ClueDisplay <= 0 {
		return fmt.Errorf("CLUE_DISPLAY_DURATION must be positive, got %v", c.ClueDisplay)
	}
	if c.CelebrationDelay < 0 {
		return fmt.Errorf("CELEBRATION_DELAY must not be negative, got %v", c.CelebrationDelay)
	}
	if c.RateLimitRPS < 1 || c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be at least 1")
	}
	if c.ServiceRPS < 0 {
		return fmt.Errorf("SERVICE_RPS must not be negative, got %v", c.ServiceRPS)
	}
	return nil
}
