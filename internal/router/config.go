// File path: internal/router/config.go
package router

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the routing thresholds. They are deliberate configuration, not
// constants: tests inject deterministic values and operators tune them via
// environment without code changes.
type Config struct {
	// HighConfidence is the minimum top score for auto-selection.
	HighConfidence float64 `json:"high_confidence"`
	// Separation is the minimum gap to the runner-up for a clear winner;
	// scores within this gap of the top are treated as a near-tie.
	Separation float64 `json:"separation"`
	// RelevanceFloor is the minimum score for a dataset to be considered
	// relevant at all.
	RelevanceFloor float64 `json:"relevance_floor"`
	// MaxChoices caps the disambiguation list.
	MaxChoices int `json:"max_choices"`
}

func DefaultConfig() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.HighConfidence <= 0 {
		c.HighConfidence = 0.60
	}
	if c.Separation <= 0 {
		// Matches the disambiguation threshold the service has always used.
		c.Separation = 0.15
	}
	if c.RelevanceFloor <= 0 {
		c.RelevanceFloor = 0.05
	}
	if c.MaxChoices <= 0 {
		c.MaxChoices = 3
	}
}

func LoadConfig() (Config, error) {
	cfg := Config{}
	var err error
	if cfg.HighConfidence, err = floatEnv("ROUTER_HIGH_CONFIDENCE"); err != nil {
		return Config{}, err
	}
	if cfg.Separation, err = floatEnv("ROUTER_SEPARATION"); err != nil {
		return Config{}, err
	}
	if cfg.RelevanceFloor, err = floatEnv("ROUTER_RELEVANCE_FLOOR"); err != nil {
		return Config{}, err
	}
	if raw := strings.TrimSpace(os.Getenv("ROUTER_MAX_CHOICES")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse ROUTER_MAX_CHOICES: %w", err)
		}
		cfg.MaxChoices = value
	}
	cfg.applyDefaults()
	return cfg, nil
}

func floatEnv(name string) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return value, nil
}
