// Package config loads the bot's YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Account holds one game account's credentials.
type Account struct {
	Name      string `yaml:"name"`
	Key       string `yaml:"key"`
	SessionID string `yaml:"session_id"`
}

// Config is the bot's top-level configuration.
type Config struct {
	BaseURL           string        `yaml:"base_url"`
	DBPath            string        `yaml:"db_path"`
	RequestInterval   time.Duration `yaml:"request_interval"`
	MaxRetries        int           `yaml:"max_retries"`
	PreferredPartners []string      `yaml:"preferred_partners"`
	Accounts          []Account     `yaml:"accounts"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		BaseURL:         "http://117.72.123.195",
		DBPath:          "pantry.db",
		RequestInterval: time.Second,
		MaxRetries:      3,
	}
}

// Load reads the YAML config at path, filling unset fields with defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = Default().BaseURL
	}
	if cfg.DBPath == "" {
		cfg.DBPath = Default().DBPath
	}
	if cfg.RequestInterval <= 0 {
		cfg.RequestInterval = Default().RequestInterval
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = Default().MaxRetries
	}
	return cfg, nil
}

// Account returns the named account, or the first one when name is empty.
func (c *Config) Account(name string) (Account, error) {
	if len(c.Accounts) == 0 {
		return Account{}, fmt.Errorf("no accounts configured")
	}
	if name == "" {
		return c.Accounts[0], nil
	}
	for _, acct := range c.Accounts {
		if acct.Name == name {
			return acct, nil
		}
	}
	return Account{}, fmt.Errorf("account %q not found", name)
}
