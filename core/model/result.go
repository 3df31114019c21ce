package model

import "time"

// ResultCode is the verdict returned by a backend or synthesized by the
// dispatcher. Verdicts are values, never errors.
type ResultCode uint8

const (
	ResultUnspecified ResultCode = iota
	ResultSuccess
	ResultUnknownOperator
	ResultUnknownEVSE
	ResultUnknownStation
	ResultUnknownPool
	ResultUnknownReservationID
	ResultInvalidSessionID
	ResultAuthorized
	ResultNotAuthorized
	ResultBlocked
	ResultAdminDown
	ResultOutOfService
	ResultCommunicationTimeout
	ResultAlreadyReserved
	ResultNotForwarded
	ResultError
)

var resultNames = map[ResultCode]string{
	ResultUnspecified:          "unspecified",
	ResultSuccess:              "success",
	ResultUnknownOperator:      "unknown_operator",
	ResultUnknownEVSE:          "unknown_evse",
	ResultUnknownStation:       "unknown_station",
	ResultUnknownPool:          "unknown_pool",
	ResultUnknownReservationID: "unknown_reservation_id",
	ResultInvalidSessionID:     "invalid_session_id",
	ResultAuthorized:           "authorized",
	ResultNotAuthorized:        "not_authorized",
	ResultBlocked:              "blocked",
	ResultAdminDown:            "admin_down",
	ResultOutOfService:         "out_of_service",
	ResultCommunicationTimeout: "communication_timeout",
	ResultAlreadyReserved:      "already_reserved",
	ResultNotForwarded:         "not_forwarded",
	ResultError:                "error",
}

// String returns the snake_case name of the code.
func (c ResultCode) String() string {
	if n, ok := resultNames[c]; ok {
		return n
	}
	return "unknown"
}

// UnknownTarget reports whether the code says the backend does not know the
// addressed EVSE, station or pool.
func (c ResultCode) UnknownTarget() bool {
	return c == ResultUnknownEVSE || c == ResultUnknownStation || c == ResultUnknownPool
}

// Outcome is embedded in every result type.
type Outcome struct {
	Code    ResultCode    `json:"code"`
	Message string        `json:"message,omitempty"`
	Runtime time.Duration `json:"runtime"`
}

// Result exposes the common outcome of any result type.
func (o Outcome) Result() Outcome { return o }

// ReservationResult is returned by Reserve.
type ReservationResult struct {
	Outcome
	Reservation *Reservation `json:"reservation,omitempty"`
}

// CancelReason explains why a reservation is cancelled.
type CancelReason string

const (
	CancelUserRequest CancelReason = "user_request"
	CancelExpired     CancelReason = "expired"
	CancelAborted     CancelReason = "aborted"
)

// CancelReservationResult is returned by CancelReservation.
type CancelReservationResult struct {
	Outcome
	ReservationID ReservationID `json:"reservation_id"`
	Reason        CancelReason  `json:"reason,omitempty"`
}

// RemoteStartResult is returned by RemoteStart.
type RemoteStartResult struct {
	Outcome
	Session *Session `json:"session,omitempty"`
}

// StopReason explains why a session is stopped.
type StopReason string

const (
	StopUserRequest StopReason = "user_request"
	StopEmergency   StopReason = "emergency"
	StopRemote      StopReason = "remote"
)

// RemoteStopResult is returned by RemoteStop. A backend may attach the
// charge detail record closing the session.
type RemoteStopResult struct {
	Outcome
	SessionID SessionID           `json:"session_id"`
	CDR       *ChargeDetailRecord `json:"cdr,omitempty"`
}

// AuthStartResult is returned by AuthorizeStart.
type AuthStartResult struct {
	Outcome
	SessionID    SessionID  `json:"session_id,omitempty"`
	ProviderID   ProviderID `json:"provider_id,omitempty"`
	AuthorizedBy string     `json:"authorized_by,omitempty"`
}

// AuthStopResult is returned by AuthorizeStop.
type AuthStopResult struct {
	Outcome
	SessionID  SessionID  `json:"session_id,omitempty"`
	ProviderID ProviderID `json:"provider_id,omitempty"`
}

// SendCDRResult is returned by SendChargeDetailRecord.
type SendCDRResult struct {
	Outcome
	SessionID  SessionID  `json:"session_id"`
	ProviderID ProviderID `json:"provider_id,omitempty"`
}

// SetOutcome replaces the embedded outcome. Promoted to every result type.
func (o *Outcome) SetOutcome(x Outcome) { *o = x }

// ParseResultCode is the inverse of ResultCode.String.
func ParseResultCode(s string) (ResultCode, bool) {
	for c, n := range resultNames {
		if n == s {
			return c, true
		}
	}
	return ResultUnspecified, false
}
