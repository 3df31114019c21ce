// Package plugins maps backend type names from the configuration to the
// constructors of operators, authentication providers and e-mobility
// providers.
package plugins

import (
	"fmt"

	"github.com/kilianp07/roamnet/config"
	"github.com/kilianp07/roamnet/core/dispatch"
	"github.com/kilianp07/roamnet/core/logger"
	"github.com/kilianp07/roamnet/core/topology"
)

// Deps carries the shared objects a backend may act on.
type Deps struct {
	Topology *topology.Network
	Logger   func(component string) logger.Logger
}

func (d Deps) logger(component string) logger.Logger {
	if d.Logger == nil {
		return logger.Nop{}
	}
	return d.Logger(component)
}

// OperatorFactory builds an operator backend from raw config.
type OperatorFactory func(conf map[string]any, deps Deps) (dispatch.Operator, error)

// AuthenticatorFactory builds an authentication provider from raw config.
type AuthenticatorFactory func(conf map[string]any, deps Deps) (dispatch.AuthenticationProvider, error)

// EMobilityFactory builds an e-mobility provider from raw config.
type EMobilityFactory func(conf map[string]any, deps Deps) (dispatch.EMobilityProvider, error)

var (
	Operators      = map[string]OperatorFactory{}
	Authenticators = map[string]AuthenticatorFactory{}
	EMobility      = map[string]EMobilityFactory{}
)

func RegisterOperator(name string, f OperatorFactory)           { Operators[name] = f }
func RegisterAuthenticator(name string, f AuthenticatorFactory) { Authenticators[name] = f }
func RegisterEMobility(name string, f EMobilityFactory)         { EMobility[name] = f }

// Build instantiates every configured backend and registers it with reg.
// It stops at the first failure.
func Build(cfg config.BackendsConfig, deps Deps, reg *dispatch.ProviderRegistry) error {
	for i, b := range cfg.Operators {
		f, ok := Operators[b.Type]
		if !ok {
			return fmt.Errorf("operators[%d]: unknown type %q", i, b.Type)
		}
		op, err := f(b.Conf, deps)
		if err != nil {
			return fmt.Errorf("operators[%d] %s: %w", i, b.Type, err)
		}
		if err := reg.RegisterOperator(op); err != nil {
			return fmt.Errorf("register operator %s: %w", op.ID(), err)
		}
	}
	for i, b := range cfg.Authenticators {
		f, ok := Authenticators[b.Type]
		if !ok {
			return fmt.Errorf("authenticators[%d]: unknown type %q", i, b.Type)
		}
		p, err := f(b.Conf, deps)
		if err != nil {
			return fmt.Errorf("authenticators[%d] %s: %w", i, b.Type, err)
		}
		if b.Priority > 0 {
			_, err = reg.RegisterAuthenticationProviderWithPriority(p, b.Priority)
		} else {
			_, err = reg.RegisterAuthenticationProvider(p)
		}
		if err != nil {
			return fmt.Errorf("register authenticator %s: %w", p.ID(), err)
		}
	}
	for i, b := range cfg.EMobility {
		f, ok := EMobility[b.Type]
		if !ok {
			return fmt.Errorf("emobility[%d]: unknown type %q", i, b.Type)
		}
		p, err := f(b.Conf, deps)
		if err != nil {
			return fmt.Errorf("emobility[%d] %s: %w", i, b.Type, err)
		}
		if b.Priority > 0 {
			_, err = reg.RegisterEMobilityProviderWithPriority(p, b.Priority)
		} else {
			_, err = reg.RegisterEMobilityProvider(p)
		}
		if err != nil {
			return fmt.Errorf("register e-mobility provider %s: %w", p.ID(), err)
		}
	}
	return nil
}
