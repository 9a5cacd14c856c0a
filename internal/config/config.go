// Package config handles loading and parsing application configuration.
// It supports two sources for the YAML file (in priority order):
//  1. A command-line flag:      --config=/path/to/config.yaml
//  2. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//
// With neither set, the configuration is built from defaults and the
// environment alone. An optional .env file in the working directory is
// loaded first, so its values behave like real environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config is the root configuration structure.
// Every field maps to a key in the YAML file AND can be overridden
// by the corresponding environment variable (env:"...").
type Config struct {
	// Env controls log format and verbosity.
	// Valid values: "dev", "staging", "prod"
	Env string `yaml:"env" env:"ENV" env-default:"dev"`

	// LogLevel overrides the level implied by Env when set
	// ("debug", "info", "warn", "error").
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	// StoragePath is the filesystem path to the SQLite file that keeps
	// browser session state between restarts.
	StoragePath string `yaml:"storage_path" env:"STORAGE_PATH" env-default:"storage/sessions.db"`

	API        API `yaml:"api"`
	HTTPServer `yaml:"http_server"`
}

// API describes the remote users collection endpoint.
type API struct {
	// BaseURL is the backend root; requests go to BaseURL + "/users".
	BaseURL string `yaml:"base_url" env:"API_BASE_URL" env-default:"http://localhost:8080"`

	// PageSize is the fixed number of users requested per page.
	PageSize int `yaml:"page_size" env:"API_PAGE_SIZE" env-default:"10"`

	Timeout time.Duration `yaml:"timeout" env:"API_TIMEOUT" env-default:"10s"`
}

// HTTPServer holds settings for the browser admin screen.
type HTTPServer struct {
	// Addr is the TCP address the server listens on, e.g. "localhost:8082".
	Addr string `yaml:"address" env:"HTTP_SERVER_ADDR" env-default:"localhost:8082"`

	// SessionTTL is how long an idle browser session stays in memory.
	SessionTTL time.Duration `yaml:"session_ttl" env:"HTTP_SESSION_TTL" env-default:"30m"`

	// SecureCookies marks the session cookie Secure (HTTPS only).
	SecureCookies bool `yaml:"secure_cookies" env:"HTTP_SECURE_COOKIES" env-default:"false"`
}

// Load reads the configuration. configPath may be empty, in which case
// CONFIG_PATH is consulted and then the environment alone is used.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}

	var cfg Config
	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("read config from env: %w", err)
		}
	} else {
		// Verify the file exists first so a typo gives a clear message
		// rather than a cryptic "open: no such file" later.
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configPath)
		}
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Env {
	case "dev", "staging", "prod":
	default:
		return fmt.Errorf("invalid env %q: want dev, staging or prod", c.Env)
	}
	if c.API.BaseURL == "" {
		return errors.New("api.base_url must not be empty")
	}
	if c.API.PageSize < 1 {
		return fmt.Errorf("api.page_size must be at least 1, got %d", c.API.PageSize)
	}
	return nil
}
