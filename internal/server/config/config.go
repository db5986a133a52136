package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/OCharnyshevich/planet-texture-server/pkg/texture"
)

// Config holds the server configuration.
type Config struct {
	Port         int               `json:"port"`
	Size         int               `json:"size"`    // texture edge length in pixels
	Workers      int               `json:"workers"` // 0 = GOMAXPROCS
	DataDir      string            `json:"-"`
	FetchTimeout Duration          `json:"fetch_timeout"`
	References   map[string]string `json:"references"` // biome -> go-getter source
	AllowOrigin  string            `json:"allow_origin"`
	RateLimit    float64           `json:"rate_limit"` // renders per second, 0 = unlimited
	RateBurst    int               `json:"rate_burst"`
	MaxBodyBytes int64             `json:"max_body_bytes"`
	LogLevel     string            `json:"log_level"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:         5000,
		Size:         texture.DefaultSize,
		DataDir:      "data",
		FetchTimeout: Duration(30 * time.Second),
		References:   map[string]string{},
		AllowOrigin:  "*",
		RateLimit:    4,
		RateBurst:    8,
		MaxBodyBytes: 1 << 20,
		LogLevel:     "info",
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Size <= 0 {
		return fmt.Errorf("size must be positive, got %d", c.Size)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.RateLimit < 0 || c.RateBurst < 0 {
		return errors.New("rate limit and burst must not be negative")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive, got %d", c.MaxBodyBytes)
	}
	for key := range c.References {
		if _, err := texture.ParseBiome(key); err != nil {
			return fmt.Errorf("references: %w", err)
		}
	}
	return nil
}

// Merge applies file-loaded config values into cfg, but only for fields
// that were NOT explicitly set via CLI flags. explicitFlags contains the
// flag names that were explicitly provided on the command line.
func Merge(cfg *Config, fromFile *Config, explicitFlags map[string]bool) {
	if !explicitFlags["port"] {
		cfg.Port = fromFile.Port
	}
	if !explicitFlags["size"] {
		cfg.Size = fromFile.Size
	}
	if !explicitFlags["workers"] {
		cfg.Workers = fromFile.Workers
	}
	if !explicitFlags["fetch-timeout"] {
		cfg.FetchTimeout = fromFile.FetchTimeout
	}
	if !explicitFlags["allow-origin"] {
		cfg.AllowOrigin = fromFile.AllowOrigin
	}
	if !explicitFlags["rate-limit"] {
		cfg.RateLimit = fromFile.RateLimit
	}
	if !explicitFlags["rate-burst"] {
		cfg.RateBurst = fromFile.RateBurst
	}
	if !explicitFlags["max-body-bytes"] {
		cfg.MaxBodyBytes = fromFile.MaxBodyBytes
	}
	if !explicitFlags["log-level"] {
		cfg.LogLevel = fromFile.LogLevel
	}
	for biome, src := range fromFile.References {
		if explicitFlags["ref-"+biome] {
			continue
		}
		if cfg.References == nil {
			cfg.References = map[string]string{}
		}
		cfg.References[biome] = src
	}
}
