package dispatch

import (
	"github.com/kilianp07/roamnet/core/model"
	"github.com/kilianp07/roamnet/core/registry"
)

// ProviderRegistry holds every backend the dispatcher may consult.
// Operators are keyed by id; providers are kept in ascending-priority
// chains whose order is the call order of fallback loops.
type ProviderRegistry struct {
	operators      registry.Map[model.OperatorID, Operator]
	roaming        *registry.Chain[RoamingProvider]
	authenticators *registry.Chain[AuthenticationProvider]
	emobility      *registry.Chain[EMobilityProvider]
}

// NewProviderRegistry returns an empty registry whose chains resolve
// duplicate priorities with policy.
func NewProviderRegistry(policy registry.DuplicatePolicy) *ProviderRegistry {
	return &ProviderRegistry{
		roaming:        registry.NewChain[RoamingProvider](policy),
		authenticators: registry.NewChain[AuthenticationProvider](policy),
		emobility:      registry.NewChain[EMobilityProvider](policy),
	}
}

// RegisterOperator adds op. Registering an id twice fails with
// registry.ErrAlreadyExists.
func (r *ProviderRegistry) RegisterOperator(op Operator) error {
	if op == nil || op.ID() == "" {
		return invalid("operator without id")
	}
	return r.operators.Register(op.ID(), op)
}

// Operator looks up an operator by id.
func (r *ProviderRegistry) Operator(id model.OperatorID) (Operator, bool) {
	return r.operators.Get(id)
}

// UnregisterOperator removes an operator.
func (r *ProviderRegistry) UnregisterOperator(id model.OperatorID) bool {
	return r.operators.Unregister(id)
}

// RegisterRoamingProvider appends p after the highest priority in use and
// returns the assigned priority.
func (r *ProviderRegistry) RegisterRoamingProvider(p RoamingProvider) (uint32, error) {
	if p == nil || p.ID() == "" {
		return 0, invalid("roaming provider without id")
	}
	return r.roaming.Add(string(p.ID()), p)
}

// RegisterRoamingProviderWithPriority places p at prio.
func (r *ProviderRegistry) RegisterRoamingProviderWithPriority(p RoamingProvider, prio uint32) (uint32, error) {
	if p == nil || p.ID() == "" {
		return 0, invalid("roaming provider without id")
	}
	return r.roaming.AddWithPriority(string(p.ID()), prio, p)
}

// RoamingProvider looks up a roaming provider by id.
func (r *ProviderRegistry) RoamingProvider(id model.ProviderID) (RoamingProvider, bool) {
	e, ok := r.roaming.Get(string(id))
	return e.Value, ok
}

// UnregisterRoamingProvider removes a roaming provider.
func (r *ProviderRegistry) UnregisterRoamingProvider(id model.ProviderID) bool {
	return r.roaming.Remove(string(id))
}

// RoamingProviders returns a snapshot ordered by ascending priority.
func (r *ProviderRegistry) RoamingProviders() []registry.Entry[RoamingProvider] {
	return r.roaming.Ordered()
}

// RegisterAuthenticationProvider appends p to the authentication chain.
func (r *ProviderRegistry) RegisterAuthenticationProvider(p AuthenticationProvider) (uint32, error) {
	if p == nil || p.ID() == "" {
		return 0, invalid("authentication provider without id")
	}
	return r.authenticators.Add(string(p.ID()), p)
}

// RegisterAuthenticationProviderWithPriority places p at prio.
func (r *ProviderRegistry) RegisterAuthenticationProviderWithPriority(p AuthenticationProvider, prio uint32) (uint32, error) {
	if p == nil || p.ID() == "" {
		return 0, invalid("authentication provider without id")
	}
	return r.authenticators.AddWithPriority(string(p.ID()), prio, p)
}

// AuthenticationProvider looks up an authentication provider by id.
func (r *ProviderRegistry) AuthenticationProvider(id model.ProviderID) (AuthenticationProvider, bool) {
	e, ok := r.authenticators.Get(string(id))
	return e.Value, ok
}

// UnregisterAuthenticationProvider removes an authentication provider.
func (r *ProviderRegistry) UnregisterAuthenticationProvider(id model.ProviderID) bool {
	return r.authenticators.Remove(string(id))
}

// AuthenticationProviders returns a snapshot ordered by ascending priority.
func (r *ProviderRegistry) AuthenticationProviders() []registry.Entry[AuthenticationProvider] {
	return r.authenticators.Ordered()
}

// RegisterEMobilityProvider appends p to the e-mobility chain.
func (r *ProviderRegistry) RegisterEMobilityProvider(p EMobilityProvider) (uint32, error) {
	if p == nil || p.ID() == "" {
		return 0, invalid("e-mobility provider without id")
	}
	return r.emobility.Add(string(p.ID()), p)
}

// RegisterEMobilityProviderWithPriority places p at prio.
func (r *ProviderRegistry) RegisterEMobilityProviderWithPriority(p EMobilityProvider, prio uint32) (uint32, error) {
	if p == nil || p.ID() == "" {
		return 0, invalid("e-mobility provider without id")
	}
	return r.emobility.AddWithPriority(string(p.ID()), prio, p)
}

// UnregisterEMobilityProvider removes an e-mobility provider.
func (r *ProviderRegistry) UnregisterEMobilityProvider(id model.ProviderID) bool {
	return r.emobility.Remove(string(id))
}

// EMobilityProviders returns a snapshot ordered by ascending priority.
func (r *ProviderRegistry) EMobilityProviders() []registry.Entry[EMobilityProvider] {
	return r.emobility.Ordered()
}

// backend resolves an owner to something able to act on reservations and
// sessions. Authentication providers never are.
func (r *ProviderRegistry) backend(o model.Owner) (Backend, bool) {
	switch o.Kind {
	case model.OwnerOperator:
		return r.Operator(model.OperatorID(o.ID))
	case model.OwnerRoamingProvider:
		return r.RoamingProvider(model.ProviderID(o.ID))
	}
	return nil, false
}

// authorizer resolves an owner of any kind to its Authorizer.
func (r *ProviderRegistry) authorizer(o model.Owner) (Authorizer, bool) {
	switch o.Kind {
	case model.OwnerOperator:
		return r.Operator(model.OperatorID(o.ID))
	case model.OwnerRoamingProvider:
		return r.RoamingProvider(model.ProviderID(o.ID))
	case model.OwnerAuthenticationProvider:
		return r.AuthenticationProvider(model.ProviderID(o.ID))
	}
	return nil, false
}
