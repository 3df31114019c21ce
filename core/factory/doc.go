// Package factory provides a small generic registry used to instantiate modules
// from configuration. Modules are defined by a type string and a map of raw
// settings. Factories decode the settings into typed structs and return the
// concrete implementation.
//
// roamnet uses it for metrics sinks and charge detail record stores:
//
//	reg := factory.NewRegistry[ledger.CDRStore]("cdr store")
//	reg.Register("memory", func(map[string]any) (ledger.CDRStore, error) {
//	    return ledger.NewMemoryCDRStore(), nil
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "memory"})
package factory
