package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/coopt/core/history"
	"github.com/kilianp07/coopt/core/metrics"
	"github.com/kilianp07/coopt/infra/mqtt"
)

type Config struct {
	Log       LogConfig       `json:"log"`
	Optimizer OptimizerConfig `json:"optimizer"`
	Session   SessionConfig   `json:"session"`
	API       APIConfig       `json:"api"`
	Mock      MockConfig      `json:"mock"`
	Metrics   metrics.Config  `json:"metrics"`
	History   history.Config  `json:"history"`
	MQTT      mqtt.Config     `json:"mqtt"`
	Sentry    SentryConfig    `json:"sentry"`
}

// Load reads the YAML or JSON file at path, applies K_-prefixed environment
// overrides (K_OPTIMIZER__BASE_URL sets optimizer.base_url), fills defaults
// and validates every section. An empty path loads the environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Log.SetDefaults()
	c.Optimizer.SetDefaults()
	c.Session.SetDefaults()
	c.API.SetDefaults()
	c.Mock.SetDefaults()
	c.History.SetDefaults()
	c.Sentry.SetDefaults()
	if c.MQTT.Enabled() {
		c.MQTT.SetDefaults()
	}
}

// Validate checks every section and names the first one that fails.
func (c Config) Validate() error {
	for _, s := range []struct {
		name string
		fn   func() error
	}{
		{"log", c.Log.Validate},
		{"optimizer", c.Optimizer.Validate},
		{"session", c.Session.Validate},
		{"api", c.API.Validate},
		{"mock", c.Mock.Validate},
		{"history", c.History.Validate},
		{"mqtt", c.MQTT.Validate},
		{"sentry", c.Sentry.Validate},
	} {
		if err := s.fn(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}
