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

	"github.com/kilianp07/roamnet/core/factory"
	"github.com/kilianp07/roamnet/core/metrics"
	"github.com/kilianp07/roamnet/infra/mqtt"
)

type Config struct {
	Network  NetworkConfig        `json:"network"`
	Dispatch DispatchConfig       `json:"dispatch"`
	Metrics  metrics.Config       `json:"metrics"`
	Audit    AuditConfig          `json:"audit"`
	CDRStore factory.ModuleConfig `json:"cdr_store"`
	MQTT     mqtt.Config          `json:"mqtt"`
	Sentry   SentryConfig         `json:"sentry"`
	Backends BackendsConfig       `json:"backends"`
}

// Load reads a YAML or JSON file, applies K_ prefixed environment
// overrides (K_DISPATCH__CDR_WORKERS=4 sets dispatch.cdr_workers), fills
// defaults and validates every section.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
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
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
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

// SetDefaults fills zero fields of every section.
func (c *Config) SetDefaults() {
	c.Network.SetDefaults()
	c.Dispatch.SetDefaults()
	c.Metrics.SetDefaults()
	c.Audit.SetDefaults()
	if c.CDRStore.Type == "" {
		c.CDRStore.Type = "memory"
	}
	if c.MQTT.Enabled {
		c.MQTT.SetDefaults()
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Network.Validate(); err != nil {
		return err
	}
	if err := c.Dispatch.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	if err := c.Audit.Validate(); err != nil {
		return err
	}
	if err := c.Backends.Validate(); err != nil {
		return err
	}
	return c.MQTT.Validate()
}
