package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	NATS struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`
	Auth struct {
		JWTSecret   string   `yaml:"jwtSecret"`
		TokenTTL    string   `yaml:"tokenTtl"`
		AdminEmails []string `yaml:"adminEmails"`
	} `yaml:"auth"`
	Proctor struct {
		UnlockPassphrase string `yaml:"unlockPassphrase"`
		MaxWarnings      int    `yaml:"maxWarnings"`
	} `yaml:"proctor"`
	Cache struct {
		TTL string `yaml:"ttl"`
	} `yaml:"cache"`
	Sweep struct {
		Schedule string `yaml:"schedule"`
	} `yaml:"sweep"`
	Rounds map[string]RoundOverride `yaml:"rounds"`
}

// RoundOverride lets operators set per-round gates without touching seed data.
type RoundOverride struct {
	Password  string `yaml:"password"`
	TimeLimit int    `yaml:"timeLimit"`
	IsActive  *bool  `yaml:"isActive"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwtSecret must be set")
	}
	if c.Proctor.UnlockPassphrase == "" {
		return fmt.Errorf("proctor.unlockPassphrase must be set")
	}
	return nil
}

// MaxWarnings returns the configured warning threshold, defaulting to 3
// (the 4th violation locks the screen).
func (c Config) MaxWarnings() int {
	if c.Proctor.MaxWarnings > 0 {
		return c.Proctor.MaxWarnings
	}
	return 3
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
