package dispatch

import (
	"context"
	"time"

	"github.com/kilianp07/roamnet/core/events"
	"github.com/kilianp07/roamnet/core/model"
)

// Backend is implemented by parties able to act on charging targets.
// Verdicts are reported through the result code; a non-nil error means the
// call itself failed (transport, deadline) and is mapped to
// CommunicationTimeout or Error by the dispatcher.
type Backend interface {
	Reserve(ctx context.Context, req ReserveRequest) (model.ReservationResult, error)
	CancelReservation(ctx context.Context, req CancelReservationRequest) (model.CancelReservationResult, error)
	RemoteStart(ctx context.Context, req RemoteStartRequest) (model.RemoteStartResult, error)
	RemoteStop(ctx context.Context, req RemoteStopRequest) (model.RemoteStopResult, error)
}

// Authorizer decides whether an auth token may start or stop charging.
// The request's Target tier selects the granularity: EVSE, station, or
// operator-wide when the target is zero.
type Authorizer interface {
	AuthorizeStart(ctx context.Context, req AuthorizeStartRequest) (model.AuthStartResult, error)
	AuthorizeStop(ctx context.Context, req AuthorizeStopRequest) (model.AuthStopResult, error)
}

// CDRReceiver accepts charge detail records.
type CDRReceiver interface {
	SendChargeDetailRecord(ctx context.Context, cdr model.ChargeDetailRecord) (model.SendCDRResult, error)
}

// DataSync receives status and topology deltas. Implementations are
// expected to enqueue and return quickly.
type DataSync interface {
	EnqueueStatusUpdate(ctx context.Context, ev events.StatusChangeEvent) error
	EnqueueAdminStatusUpdate(ctx context.Context, ev events.AdminStatusChangeEvent) error
	EnqueueMembershipUpdate(ctx context.Context, ev events.MembershipEvent) error
}

// Operator owns charging infrastructure.
type Operator interface {
	ID() model.OperatorID
	Backend
	Authorizer
}

// RoamingProvider is an external backend consulted when the owning
// operator cannot serve a request.
type RoamingProvider interface {
	ID() model.ProviderID
	Backend
	Authorizer
	CDRReceiver
	DataSync
}

// AuthenticationProvider only authorizes tokens.
type AuthenticationProvider interface {
	ID() model.ProviderID
	Authorizer
}

// EMobilityProvider receives charge detail records for its customers.
type EMobilityProvider interface {
	ID() model.ProviderID
	CDRReceiver
}

// ReserveRequest asks for a reservation on Target. A zero StartTime means
// now, a zero Duration the configured default.
type ReserveRequest struct {
	Target          model.EntityRef
	StartTime       time.Time
	Duration        time.Duration
	ReservationID   model.ReservationID
	ProviderID      model.ProviderID
	AccountID       string
	ProductID       string
	AllowedTokens   []string
	AllowedAccounts []string
	AllowedPINs     []string
	// Timeout bounds each backend invocation; zero selects the default.
	Timeout time.Duration
}

// CancelReservationRequest cancels a reservation.
type CancelReservationRequest struct {
	ReservationID model.ReservationID
	Reason        model.CancelReason
	ProviderID    model.ProviderID
	Target        model.EntityRef
	Timeout       time.Duration
}

// RemoteStartRequest starts charging on Target.
type RemoteStartRequest struct {
	Target        model.EntityRef
	SessionID     model.SessionID
	ReservationID model.ReservationID
	ProviderID    model.ProviderID
	AccountID     string
	ProductID     string
	Timeout       time.Duration
}

// RemoteStopRequest stops a charging session.
type RemoteStopRequest struct {
	SessionID  model.SessionID
	Reason     model.StopReason
	ProviderID model.ProviderID
	Target     model.EntityRef
	Timeout    time.Duration
}

// AuthorizeStartRequest asks whether AuthToken may start charging. Target
// may be zero for an operator-wide authorization.
type AuthorizeStartRequest struct {
	Operator  model.OperatorID
	Target    model.EntityRef
	AuthToken string
	ProductID string
	SessionID model.SessionID
	Timeout   time.Duration
}

// AuthorizeStopRequest asks whether AuthToken may stop SessionID.
type AuthorizeStopRequest struct {
	Operator  model.OperatorID
	SessionID model.SessionID
	AuthToken string
	Target    model.EntityRef
	Timeout   time.Duration
}
