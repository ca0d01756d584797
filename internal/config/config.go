// Package config loads and validates the single immutable configuration
// value the whole run is constructed from. Validation failures here are
// the only fatal error category; everything downstream degrades instead
// of failing.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/sawpanic/altbasket/internal/basket"
	"github.com/sawpanic/altbasket/internal/beta"
	"github.com/sawpanic/altbasket/internal/hedge"
	"github.com/sawpanic/altbasket/internal/regime"
	"github.com/sawpanic/altbasket/internal/risk"
	"github.com/sawpanic/altbasket/internal/sim"
)

// Config is the full run configuration, one section per component.
type Config struct {
	Regime regime.Config `yaml:"regime"`
	Beta   beta.Config   `yaml:"beta"`
	Basket basket.Config `yaml:"basket"`
	Hedge  hedge.Config  `yaml:"hedge"`
	Risk   risk.Config   `yaml:"risk"`
	Sim    sim.Config    `yaml:"sim"`
}

// Default returns the full production default configuration.
func Default() Config {
	return Config{
		Regime: regime.DefaultConfig(),
		Beta:   beta.DefaultConfig(),
		Basket: basket.DefaultConfig(),
		Hedge:  hedge.DefaultConfig(),
		Risk:   risk.DefaultConfig(),
		Sim:    sim.DefaultConfig(),
	}
}

// Load reads a YAML config file over the defaults and validates the
// result. Missing keys keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate runs every component's startup check.
func (c Config) Validate() error {
	if err := c.Regime.Validate(); err != nil {
		return err
	}
	if err := c.Beta.Validate(); err != nil {
		return err
	}
	if err := c.Basket.Validate(); err != nil {
		return err
	}
	if err := c.Hedge.Validate(); err != nil {
		return err
	}
	if err := c.Risk.Validate(); err != nil {
		return err
	}
	return c.Sim.Validate()
}
