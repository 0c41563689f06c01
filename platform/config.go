package platform

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	// LLM settings
	LLMEndpoint   string        `env:"LLM_API_ENDPOINT"`
	LLMAPIKey     string        `env:"LLM_API_KEY"`
	StreamTimeout time.Duration `env:"STREAM_TIMEOUT" envDefault:"5m"`

	// Database settings
	SQLHost     string `env:"SQL_HOST" envDefault:"127.0.0.1"`
	SQLPort     string `env:"SQL_PORT" envDefault:"3306"`
	SQLUser     string `env:"SQL_USER"`
	SQLPassword string `env:"SQL_PASSWORD"`
	SQLDBName   string `env:"SQL_DBNAME" envDefault:"chatbot"`
}

// LoadConfig parses the environment into a Config. A missing LLM endpoint or
// API key is fatal at startup.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if cfg.LLMEndpoint == "" {
		return nil, errors.New("LLM_API_ENDPOINT is not configured")
	}
	if cfg.LLMAPIKey == "" {
		return nil, errors.New("LLM_API_KEY is not configured")
	}
	return cfg, nil
}
