// Package config loads server configuration.
// Source priority (highest to lowest):
// 1. Command line flags
// 2. Environment variables (PORT, DOCUMENTS_DIR, PUBLIC_URL, ...)
// 3. YAML file given via --config
// 4. Defaults
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port int    `yaml:"port" env:"PORT"`
	Host string `yaml:"host" env:"HOST"`

	// DocumentsDir holds saved .txt documents.
	DocumentsDir string `yaml:"documents_dir" env:"DOCUMENTS_DIR"`

	// StaticDir serves the browser client. Empty disables static serving.
	StaticDir string `yaml:"static_dir" env:"STATIC_DIR"`

	// PublicURL is the base of share links, e.g. https://pad.example.com.
	// Empty derives it from each request.
	PublicURL string `yaml:"public_url" env:"PUBLIC_URL"`

	// SessionExpiry is how long a session without participants survives.
	SessionExpiry time.Duration `yaml:"session_expiry" env:"SESSION_EXPIRY"`

	DevMode   bool   `yaml:"dev_mode" env:"DEV_MODE"`
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"`
}

func Default() Config {
	return Config{
		Port:          3000,
		DocumentsDir:  "documents",
		SessionExpiry: time.Hour,
		LogLevel:      "info",
	}
}

// Load applies the YAML file at path (if any) and then the environment on top
// of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.DocumentsDir == "" {
		errs = append(errs, errors.New("documents_dir is required"))
	}
	if c.SessionExpiry <= 0 {
		errs = append(errs, fmt.Errorf("session_expiry must be positive, got %s", c.SessionExpiry))
	}
	if c.PublicURL != "" {
		u, err := url.Parse(c.PublicURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("public_url %q must be an absolute http(s) URL", c.PublicURL))
		}
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format %q must be text or json", c.LogFormat))
	}
	return errors.Join(errs...)
}
