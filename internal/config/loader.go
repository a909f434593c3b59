package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if AEGIS_CONFIG is set
//  3. env (prefix AEGIS_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("AEGIS_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: AEGIS_ADDR, AEGIS_NORMAL_INTERVAL_MS, ...
	// Map env keys like AEGIS_NORMAL_INTERVAL_MS -> normal_interval_ms
	// (flat keys). Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("AEGIS_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "aegis_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.NormalIntervalMS <= 0 || c.EmergencyIntervalMS <= 0 {
		return fmt.Errorf("%w: tracking intervals must be positive", ErrInvalidConfig)
	}
	if c.AccuracyCeilingM <= 0 {
		return fmt.Errorf("%w: accuracy ceiling must be positive", ErrInvalidConfig)
	}
	if c.DeliveryAttempts < 1 {
		return fmt.Errorf("%w: delivery attempts must be at least 1", ErrInvalidConfig)
	}
	if c.AreaFreshnessMS < 0 {
		return fmt.Errorf("%w: area freshness must not be negative", ErrInvalidConfig)
	}
	for id, w := range c.ScoreWeights {
		if w < 0 {
			return fmt.Errorf("%w: weight for %q must not be negative", ErrInvalidConfig, id)
		}
	}
	return nil
}
