package config

import "fmt"

// BackendConfig declares one backend instance. A zero Priority appends the
// backend after the highest priority in use.
type BackendConfig struct {
	Type     string         `json:"type"`
	Priority uint32         `json:"priority"`
	Conf     map[string]any `json:"conf"`
}

// BackendsConfig lists the backends registered at start-up.
type BackendsConfig struct {
	Operators      []BackendConfig `json:"operators"`
	Authenticators []BackendConfig `json:"authenticators"`
	EMobility      []BackendConfig `json:"emobility"`
}

// Validate checks that every backend names a type.
func (c BackendsConfig) Validate() error {
	for kind, list := range map[string][]BackendConfig{
		"operators":      c.Operators,
		"authenticators": c.Authenticators,
		"emobility":      c.EMobility,
	} {
		for i, b := range list {
			if b.Type == "" {
				return fmt.Errorf("backends.%s[%d]: type required", kind, i)
			}
		}
	}
	return nil
}
