// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every setting the service reads at startup.
type Config struct {
	// APIToken authenticates against the actor platform. Empty is a
	// supported mode: every scrape serves synthetic data.
	APIToken string `env:"APIFY_API_TOKEN"`
	BaseURL  string `env:"APIFY_BASE_URL" envDefault:"https://api.apify.com/v2"`
	ActorID  string `env:"ADSCOUT_ACTOR_ID" envDefault:"curious_coder~facebook-ads-library-scraper"`

	PollInterval time.Duration `env:"ADSCOUT_POLL_INTERVAL" envDefault:"5s"`
	PollBudget   time.Duration `env:"ADSCOUT_POLL_BUDGET" envDefault:"2m"`
	CacheTTL     time.Duration `env:"ADSCOUT_CACHE_TTL" envDefault:"10m"`
	HTTPTimeout  time.Duration `env:"ADSCOUT_HTTP_TIMEOUT" envDefault:"30s"`

	HTTPAddr string `env:"ADSCOUT_HTTP_ADDR" envDefault:":8080"`

	LogLevel string `env:"ADSCOUT_LOG_LEVEL" envDefault:"info"`
	LogDir   string `env:"ADSCOUT_LOG_DIR"`

	OTelEndpoint string `env:"ADSCOUT_OTEL_ENDPOINT"`
}

// HasCredentials reports whether the actor platform can be called.
func (c Config) HasCredentials() bool {
	return c.APIToken != ""
}

// Load reads optional dotenv files, then parses the environment into a
// Config. Variables already set in the environment win over dotenv values.
func Load(dotenvFiles ...string) (Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.PollInterval <= 0 || cfg.PollBudget <= 0 || cfg.CacheTTL <= 0 {
		return Config{}, fmt.Errorf("parse env: poll interval, poll budget and cache ttl must be positive")
	}
	return cfg, nil
}
