package model

import "time"

// OwnerKind tells which registry an Owner id must be resolved against.
type OwnerKind uint8

const (
	OwnerOperator OwnerKind = iota + 1
	OwnerRoamingProvider
	OwnerAuthenticationProvider
	OwnerEMobilityProvider
)

// String returns a human-readable representation of the owner kind.
func (k OwnerKind) String() string {
	switch k {
	case OwnerOperator:
		return "operator"
	case OwnerRoamingProvider:
		return "roaming_provider"
	case OwnerAuthenticationProvider:
		return "authentication_provider"
	case OwnerEMobilityProvider:
		return "emobility_provider"
	default:
		return "unknown"
	}
}

// Owner is the backend a reservation or session belongs to.
type Owner struct {
	Kind OwnerKind `json:"kind"`
	ID   string    `json:"id"`
}

// OperatorOwner returns an Owner pointing at an operator.
func OperatorOwner(id OperatorID) Owner { return Owner{Kind: OwnerOperator, ID: string(id)} }

// ProviderOwner returns an Owner pointing at a roaming provider.
func ProviderOwner(id ProviderID) Owner { return Owner{Kind: OwnerRoamingProvider, ID: string(id)} }

// AuthenticatorOwner returns an Owner pointing at an authentication provider.
func AuthenticatorOwner(id ProviderID) Owner {
	return Owner{Kind: OwnerAuthenticationProvider, ID: string(id)}
}

// EMobilityOwner returns an Owner pointing at an e-mobility provider.
func EMobilityOwner(id ProviderID) Owner { return Owner{Kind: OwnerEMobilityProvider, ID: string(id)} }

// String renders the owner as "kind:id".
func (o Owner) String() string { return o.Kind.String() + ":" + o.ID }

// DefaultReservationDuration is applied when a reservation request carries
// no duration.
const DefaultReservationDuration = 15 * time.Minute

// Reservation is a time-bounded hold on a charging target.
type Reservation struct {
	ID        ReservationID `json:"id"`
	Target    EntityRef     `json:"target"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Owner     Owner         `json:"owner"`
	CreatedAt time.Time     `json:"created_at"`
}

// EndTime returns the instant the reservation expires.
func (r Reservation) EndTime() time.Time { return r.StartTime.Add(r.Duration) }

// Session is the live record of a charging process.
type Session struct {
	ID            SessionID     `json:"id"`
	Target        EntityRef     `json:"target"`
	Owner         Owner         `json:"owner"`
	ReservationID ReservationID `json:"reservation_id,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
}

// ChargeDetailRecord is the settlement record closing out a session.
type ChargeDetailRecord struct {
	ID            string            `json:"id"`
	SessionID     SessionID         `json:"session_id"`
	ReservationID ReservationID     `json:"reservation_id,omitempty"`
	Target        EntityRef         `json:"target"`
	ProviderID    ProviderID        `json:"provider_id,omitempty"`
	AuthToken     string            `json:"auth_token,omitempty"`
	Start         time.Time         `json:"start"`
	End           time.Time         `json:"end"`
	EnergyKWh     float64           `json:"energy_kwh"`
	Meta          map[string]string `json:"meta,omitempty"`
}
