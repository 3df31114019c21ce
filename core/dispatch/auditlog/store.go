// Package auditlog persists one record per dispatcher operation so that
// routing decisions can be inspected after the fact.
package auditlog

import (
	"context"
	"time"

	"github.com/kilianp07/roamnet/core/events"
	"github.com/kilianp07/roamnet/core/model"
)

// Record captures one finished dispatcher operation.
type Record struct {
	Timestamp     time.Time           `json:"timestamp"`
	CallID        string              `json:"call_id"`
	Network       model.NetworkID     `json:"network"`
	Operation     events.Operation    `json:"operation"`
	Operator      model.OperatorID    `json:"operator,omitempty"`
	Target        model.EntityRef     `json:"target,omitempty"`
	ReservationID model.ReservationID `json:"reservation_id,omitempty"`
	SessionID     model.SessionID     `json:"session_id,omitempty"`
	Result        string              `json:"result"`
	Message       string              `json:"message,omitempty"`
	AnsweredBy    string              `json:"answered_by,omitempty"`
	Attempts      int                 `json:"attempts"`
	ElapsedMS     float64             `json:"elapsed_ms"`
}

// FromEvent converts a post-phase operation event.
func FromEvent(ev events.OperationEvent) Record {
	r := Record{
		Timestamp:     ev.Time,
		CallID:        ev.CallID,
		Network:       ev.Network,
		Operation:     ev.Operation,
		Operator:      ev.Operator,
		Target:        ev.Target,
		ReservationID: ev.ReservationID,
		SessionID:     ev.SessionID,
		Result:        ev.Outcome.Code.String(),
		Message:       ev.Outcome.Message,
		Attempts:      ev.Attempts,
		ElapsedMS:     float64(ev.Elapsed.Microseconds()) / 1000,
	}
	if ev.AnsweredBy.Kind != 0 {
		r.AnsweredBy = ev.AnsweredBy.String()
	}
	return r
}

// Query filters records. Zero fields match everything.
type Query struct {
	Start     time.Time
	End       time.Time
	Operation events.Operation
	Result    string
	SessionID model.SessionID
	// ReservationID matches records about the given reservation.
	ReservationID model.ReservationID
}

// Match reports whether r satisfies q.
func (q Query) Match(r Record) bool {
	switch {
	case !q.Start.IsZero() && r.Timestamp.Before(q.Start):
		return false
	case !q.End.IsZero() && r.Timestamp.After(q.End):
		return false
	case q.Operation != "" && r.Operation != q.Operation:
		return false
	case q.Result != "" && r.Result != q.Result:
		return false
	case q.SessionID != "" && r.SessionID != q.SessionID:
		return false
	case q.ReservationID != "" && r.ReservationID != q.ReservationID:
		return false
	}
	return true
}

// Store persists records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}
