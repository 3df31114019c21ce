package model

import (
	"errors"
	"fmt"
	"strings"
)

// OperatorID identifies a charging station operator, e.g. "DE*GEF".
type OperatorID string

// ProviderID identifies a roaming, authentication or e-mobility provider.
type ProviderID string

// ReservationID identifies a reservation across the federation.
type ReservationID string

// SessionID identifies a charging session across the federation.
type SessionID string

// NetworkID identifies a roaming network instance.
type NetworkID string

// Tier is the level of an entity inside the charging hierarchy.
type Tier uint8

const (
	TierEVSE Tier = iota + 1
	TierStation
	TierPool
	TierOperator
	TierNetwork
)

// String returns a human-readable representation of the tier.
func (t Tier) String() string {
	switch t {
	case TierEVSE:
		return "evse"
	case TierStation:
		return "station"
	case TierPool:
		return "pool"
	case TierOperator:
		return "operator"
	case TierNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Dispatchable reports whether entities of this tier can be addressed by
// dispatch operations.
func (t Tier) Dispatchable() bool {
	return t == TierEVSE || t == TierStation || t == TierPool
}

func (t Tier) letter() byte {
	switch t {
	case TierEVSE:
		return 'E'
	case TierStation:
		return 'S'
	case TierPool:
		return 'P'
	}
	return 0
}

// ErrInvalidEntityRef is returned when an entity reference cannot be parsed.
var ErrInvalidEntityRef = errors.New("invalid entity reference")

// EntityRef addresses one node of the hierarchy. EVSE, station and pool
// references embed the owning operator id, which is the first routing key
// of every dispatch operation.
type EntityRef struct {
	Tier     Tier
	Operator OperatorID
	Local    string
}

// EVSE returns a reference to an EVSE of the given operator.
func EVSE(op OperatorID, local string) EntityRef {
	return EntityRef{Tier: TierEVSE, Operator: op, Local: local}
}

// Station returns a reference to a charging station of the given operator.
func Station(op OperatorID, local string) EntityRef {
	return EntityRef{Tier: TierStation, Operator: op, Local: local}
}

// Pool returns a reference to a charging pool of the given operator.
func Pool(op OperatorID, local string) EntityRef {
	return EntityRef{Tier: TierPool, Operator: op, Local: local}
}

// OperatorRef returns the hierarchy key of an operator.
func OperatorRef(op OperatorID) EntityRef {
	return EntityRef{Tier: TierOperator, Operator: op}
}

// NetworkRef returns the hierarchy key of a roaming network.
func NetworkRef(id NetworkID) EntityRef {
	return EntityRef{Tier: TierNetwork, Local: string(id)}
}

// IsZero reports whether the reference is unset.
func (r EntityRef) IsZero() bool { return r == EntityRef{} }

// Validate checks that the reference is well formed for its tier.
func (r EntityRef) Validate() error {
	switch {
	case r.Tier.Dispatchable():
		if r.Operator == "" || r.Local == "" {
			return fmt.Errorf("%w: %s requires operator and local id", ErrInvalidEntityRef, r.Tier)
		}
	case r.Tier == TierOperator:
		if r.Operator == "" {
			return fmt.Errorf("%w: operator id is empty", ErrInvalidEntityRef)
		}
	case r.Tier == TierNetwork:
		if r.Local == "" {
			return fmt.Errorf("%w: network id is empty", ErrInvalidEntityRef)
		}
	default:
		return fmt.Errorf("%w: unknown tier %d", ErrInvalidEntityRef, r.Tier)
	}
	return nil
}

// String renders the reference in its eMI3 form, e.g. "DE*GEF*E1234".
func (r EntityRef) String() string {
	switch r.Tier {
	case TierOperator:
		return string(r.Operator)
	case TierNetwork:
		return "network:" + r.Local
	}
	if l := r.Tier.letter(); l != 0 {
		return string(r.Operator) + "*" + string(l) + r.Local
	}
	return ""
}

// ParseEntityRef parses the eMI3 form of an EVSE, station or pool id.
// The operator part is everything before the last '*'.
func ParseEntityRef(s string) (EntityRef, error) {
	i := strings.LastIndexByte(s, '*')
	if i <= 0 || i+2 > len(s) {
		return EntityRef{}, fmt.Errorf("%w: %q", ErrInvalidEntityRef, s)
	}
	op, rest := OperatorID(s[:i]), s[i+1:]
	var tier Tier
	switch rest[0] {
	case 'E', 'e':
		tier = TierEVSE
	case 'S', 's':
		tier = TierStation
	case 'P', 'p':
		tier = TierPool
	default:
		return EntityRef{}, fmt.Errorf("%w: unknown kind %q in %q", ErrInvalidEntityRef, rest[0], s)
	}
	return EntityRef{Tier: tier, Operator: op, Local: rest[1:]}, nil
}

// MarshalText implements encoding.TextMarshaler.
func (r EntityRef) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler for EVSE, station and
// pool references.
func (r *EntityRef) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*r = EntityRef{}
		return nil
	}
	ref, err := ParseEntityRef(string(b))
	if err != nil {
		return err
	}
	*r = ref
	return nil
}
