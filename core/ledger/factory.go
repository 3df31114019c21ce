package ledger

import "github.com/kilianp07/roamnet/core/factory"

var cdrStores = factory.NewRegistry[CDRStore]("cdr store")

func init() {
	_ = RegisterCDRStore("memory", func(map[string]any) (CDRStore, error) {
		return NewMemoryCDRStore(), nil
	})
}

// RegisterCDRStore adds a CDR store factory identified by name.
func RegisterCDRStore(name string, f factory.Factory[CDRStore]) error {
	return cdrStores.Register(name, f)
}

// NewCDRStore creates a CDRStore from configuration. An empty type selects
// the in-memory store.
func NewCDRStore(cfg factory.ModuleConfig) (CDRStore, error) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	return cdrStores.Create(cfg)
}
