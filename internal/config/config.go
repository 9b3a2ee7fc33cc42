package config

import (
	"fmt"
	"strings"
	"time"

	_ "time/tzdata"

	"github.com/Netflix/go-env"
)

type Config struct {
	BackendURL         string `env:"BACKEND_URL,required=true"`
	BackendTimeoutSec  int    `env:"BACKEND_TIMEOUT_SEC,default=10"`
	ConsolePort        int    `env:"CONSOLE_PORT,default=8090"`
	LogLevel           string `env:"LOG_LEVEL,default=info"`
	RedisURL           string `env:"REDIS_URL"`
	RefreshIntervalSec int    `env:"REFRESH_INTERVAL_SEC,default=30"`
	BannerTTLSec       int    `env:"BANNER_TTL_SEC,default=5"`
	SessionIdleTTLSec  int    `env:"SESSION_IDLE_TTL_SEC,default=1800"`
	TimeZone           string `env:"TIME_ZONE,default=Local"`
	ListLayout         string `env:"LIST_LAYOUT,default=cards"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.BackendURL) == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	if c.ConsolePort <= 0 || c.ConsolePort > 65535 {
		return fmt.Errorf("CONSOLE_PORT must be between 1 and 65535, got %d", c.ConsolePort)
	}

	positive := map[string]int{
		"BACKEND_TIMEOUT_SEC":  c.BackendTimeoutSec,
		"REFRESH_INTERVAL_SEC": c.RefreshIntervalSec,
		"BANNER_TTL_SEC":       c.BannerTTLSec,
		"SESSION_IDLE_TTL_SEC": c.SessionIdleTTLSec,
	}
	for name, value := range positive {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, value)
		}
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.BackendTimeoutSec) * time.Second
}

func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSec) * time.Second
}

func (c *Config) BannerTTL() time.Duration {
	return time.Duration(c.BannerTTLSec) * time.Second
}

func (c *Config) SessionIdleTTL() time.Duration {
	return time.Duration(c.SessionIdleTTLSec) * time.Second
}

// Location is the zone operators enter and read times in.
func (c *Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.TimeZone)
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid TIME_ZONE %q: %w", c.TimeZone, err)
	}
	return loc, nil
}
