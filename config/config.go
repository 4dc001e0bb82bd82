// Package config loads and validates chain and controller configuration.
// A chain configuration is an ordered list of (component factory name,
// constructor parameters) pairs resolved exactly once at assembly time.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/openscripts/carrot2/errors"
)

// ComponentConfig names a component factory and its constructor parameters.
type ComponentConfig struct {
	Name   string         `yaml:"name" json:"name"`
	Params map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
}

// ChainConfig describes one executable pipeline: its name, the ordered
// component list, and the terminal capabilities the last component must
// expose.
type ChainConfig struct {
	Name       string            `yaml:"name" json:"name"`
	Terminal   []string          `yaml:"terminal,omitempty" json:"terminal,omitempty"`
	Components []ComponentConfig `yaml:"components" json:"components"`
}

// ControllerConfig holds the caching controller's tunables.
type ControllerConfig struct {
	// CacheCapacity bounds the number of memoized results
	CacheCapacity int `yaml:"cache_capacity" json:"cache_capacity"`
	// WaitTimeout bounds how long a coalesced caller waits for a result
	WaitTimeout time.Duration `yaml:"wait_timeout" json:"wait_timeout"`
	// ShutdownGrace bounds how long Close waits for in-flight executions
	ShutdownGrace time.Duration `yaml:"shutdown_grace" json:"shutdown_grace"`
	// StopTimeout bounds each component's Stop hook during teardown
	StopTimeout time.Duration `yaml:"stop_timeout" json:"stop_timeout"`
}

// UnmarshalYAML accepts duration fields either as Go duration strings
// ("30s", "1m") or as integer nanoseconds.
func (cc *ControllerConfig) UnmarshalYAML(unmarshal func(any) error) error {
	var raw struct {
		CacheCapacity int `yaml:"cache_capacity"`
		WaitTimeout   any `yaml:"wait_timeout"`
		ShutdownGrace any `yaml:"shutdown_grace"`
		StopTimeout   any `yaml:"stop_timeout"`
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}

	cc.CacheCapacity = raw.CacheCapacity
	for _, field := range []struct {
		name string
		raw  any
		dst  *time.Duration
	}{
		{"wait_timeout", raw.WaitTimeout, &cc.WaitTimeout},
		{"shutdown_grace", raw.ShutdownGrace, &cc.ShutdownGrace},
		{"stop_timeout", raw.StopTimeout, &cc.StopTimeout},
	} {
		d, err := parseDuration(field.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.dst = d
	}
	return nil
}

// parseDuration converts a YAML scalar into a duration.
func parseDuration(v any) (time.Duration, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case string:
		return time.ParseDuration(t)
	case int:
		return time.Duration(t), nil
	case int64:
		return time.Duration(t), nil
	default:
		return 0, fmt.Errorf("unsupported duration value %v (%T)", v, v)
	}
}

// Config is the complete application configuration.
type Config struct {
	Controller ControllerConfig `yaml:"controller" json:"controller"`
	Chains     []ChainConfig    `yaml:"chains" json:"chains"`
}

// Default configuration values
const (
	DefaultCacheCapacity = 64
	DefaultWaitTimeout   = 30 * time.Second
	DefaultShutdownGrace = 10 * time.Second
	DefaultStopTimeout   = 10 * time.Second
)

// DefaultControllerConfig returns controller settings with all defaults applied.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		CacheCapacity: DefaultCacheCapacity,
		WaitTimeout:   DefaultWaitTimeout,
		ShutdownGrace: DefaultShutdownGrace,
		StopTimeout:   DefaultStopTimeout,
	}
}

// Load reads and validates a YAML configuration file. Absent controller
// settings receive defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapInvalid(errors.ErrConfigNotFound, "config", "Load", "read file")
		}
		return nil, errors.WrapTransient(err, "config", "Load", "read file")
	}
	return Parse(data)
}

// Parse unmarshals and validates YAML configuration bytes. The raw
// document is checked against the configuration meta-schema before the
// structural validation runs.
func Parse(data []byte) (*Config, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapInvalid(err, "config", "Parse", "yaml unmarshal")
	}
	if err := ValidateDocument(doc); err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WrapInvalid(err, "config", "Parse", "yaml unmarshal")
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills zero-valued controller settings.
func (c *Config) applyDefaults() {
	if c.Controller.CacheCapacity == 0 {
		c.Controller.CacheCapacity = DefaultCacheCapacity
	}
	if c.Controller.WaitTimeout == 0 {
		c.Controller.WaitTimeout = DefaultWaitTimeout
	}
	if c.Controller.ShutdownGrace == 0 {
		c.Controller.ShutdownGrace = DefaultShutdownGrace
	}
	if c.Controller.StopTimeout == 0 {
		c.Controller.StopTimeout = DefaultStopTimeout
	}
}

// Validate checks structural requirements across the configuration.
func (c *Config) Validate() error {
	if c.Controller.CacheCapacity < 1 {
		return errors.WrapInvalid(
			fmt.Errorf("cache_capacity must be positive, got %d", c.Controller.CacheCapacity),
			"config", "Validate", "controller validation")
	}

	seen := make(map[string]bool, len(c.Chains))
	for i, chain := range c.Chains {
		if chain.Name == "" {
			return errors.WrapInvalid(
				fmt.Errorf("chain %d has no name", i),
				"config", "Validate", "chain validation")
		}
		if seen[chain.Name] {
			return errors.WrapInvalid(
				fmt.Errorf("duplicate chain name %q", chain.Name),
				"config", "Validate", "chain validation")
		}
		seen[chain.Name] = true

		if len(chain.Components) == 0 {
			return errors.WrapInvalid(
				fmt.Errorf("chain %q: %w", chain.Name, errors.ErrEmptyChain),
				"config", "Validate", "chain validation")
		}
		for j, comp := range chain.Components {
			if comp.Name == "" {
				return errors.WrapInvalid(
					fmt.Errorf("chain %q component %d has no factory name", chain.Name, j),
					"config", "Validate", "component validation")
			}
		}
	}
	return nil
}

// Chain returns the chain configuration with the given name.
func (c *Config) Chain(name string) (ChainConfig, bool) {
	for _, chain := range c.Chains {
		if chain.Name == name {
			return chain, true
		}
	}
	return ChainConfig{}, false
}
