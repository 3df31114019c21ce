package events

import (
	"time"

	"github.com/kilianp07/roamnet/core/model"
)

// Operation names a dispatcher entry point.
type Operation string

const (
	OpReserve           Operation = "reserve"
	OpCancelReservation Operation = "cancel_reservation"
	OpRemoteStart       Operation = "remote_start"
	OpRemoteStop        Operation = "remote_stop"
	OpAuthorizeStart    Operation = "authorize_start"
	OpAuthorizeStop     Operation = "authorize_stop"
	OpSendCDR           Operation = "send_cdr"
)

// Phase tells whether an OperationEvent precedes or follows the call.
type Phase uint8

const (
	PhasePre Phase = iota + 1
	PhasePost
)

func (p Phase) String() string {
	if p == PhasePost {
		return "post"
	}
	return "pre"
}

// OperationEvent is emitted twice per dispatcher call. Post events carry
// the elapsed wall time, the outcome and the backend that produced it.
type OperationEvent struct {
	CallID        string
	Network       model.NetworkID
	Operation     Operation
	Phase         Phase
	Time          time.Time
	Operator      model.OperatorID
	Target        model.EntityRef
	ReservationID model.ReservationID
	SessionID     model.SessionID
	Elapsed       time.Duration
	Outcome       model.Outcome
	AnsweredBy    model.Owner
	// Attempts counts backend invocations made by the fallback chain.
	Attempts int
}
