package dispatch

import (
	"context"
	"sync"

	"github.com/kilianp07/roamnet/core/events"
	"github.com/kilianp07/roamnet/core/model"
)

// trace records backend invocations across fakes in call order.
type trace struct {
	mu    sync.Mutex
	calls []string
}

func (t *trace) add(s string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.calls = append(t.calls, s)
	t.mu.Unlock()
}

func (t *trace) list() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.calls...)
}

// script answers every backend call; nil functions fall back to the
// "unknown" verdict of the operation.
type script struct {
	name  string
	trace *trace

	reserve   func(context.Context, ReserveRequest) (model.ReservationResult, error)
	cancel    func(context.Context, CancelReservationRequest) (model.CancelReservationResult, error)
	start     func(context.Context, RemoteStartRequest) (model.RemoteStartResult, error)
	stop      func(context.Context, RemoteStopRequest) (model.RemoteStopResult, error)
	authStart func(context.Context, AuthorizeStartRequest) (model.AuthStartResult, error)
	authStop  func(context.Context, AuthorizeStopRequest) (model.AuthStopResult, error)
	cdr       func(context.Context, model.ChargeDetailRecord) (model.SendCDRResult, error)

	mu       sync.Mutex
	statuses []events.StatusChangeEvent
	admins   []events.AdminStatusChangeEvent
	members  []events.MembershipEvent
	syncErr  error
}

func code(c model.ResultCode) model.Outcome { return model.Outcome{Code: c} }

func (s *script) Reserve(ctx context.Context, req ReserveRequest) (model.ReservationResult, error) {
	s.trace.add(s.name + ".reserve")
	if s.reserve == nil {
		return model.ReservationResult{Outcome: code(model.ResultUnknownEVSE)}, nil
	}
	return s.reserve(ctx, req)
}

func (s *script) CancelReservation(ctx context.Context, req CancelReservationRequest) (model.CancelReservationResult, error) {
	s.trace.add(s.name + ".cancel")
	if s.cancel == nil {
		return model.CancelReservationResult{Outcome: code(model.ResultUnknownReservationID)}, nil
	}
	return s.cancel(ctx, req)
}

func (s *script) RemoteStart(ctx context.Context, req RemoteStartRequest) (model.RemoteStartResult, error) {
	s.trace.add(s.name + ".start")
	if s.start == nil {
		return model.RemoteStartResult{Outcome: code(model.ResultUnknownEVSE)}, nil
	}
	return s.start(ctx, req)
}

func (s *script) RemoteStop(ctx context.Context, req RemoteStopRequest) (model.RemoteStopResult, error) {
	s.trace.add(s.name + ".stop")
	if s.stop == nil {
		return model.RemoteStopResult{Outcome: code(model.ResultInvalidSessionID)}, nil
	}
	return s.stop(ctx, req)
}

func (s *script) AuthorizeStart(ctx context.Context, req AuthorizeStartRequest) (model.AuthStartResult, error) {
	s.trace.add(s.name + ".auth_start")
	if s.authStart == nil {
		return model.AuthStartResult{Outcome: code(model.ResultNotAuthorized)}, nil
	}
	return s.authStart(ctx, req)
}

func (s *script) AuthorizeStop(ctx context.Context, req AuthorizeStopRequest) (model.AuthStopResult, error) {
	s.trace.add(s.name + ".auth_stop")
	if s.authStop == nil {
		return model.AuthStopResult{Outcome: code(model.ResultNotAuthorized)}, nil
	}
	return s.authStop(ctx, req)
}

func (s *script) SendChargeDetailRecord(ctx context.Context, cdr model.ChargeDetailRecord) (model.SendCDRResult, error) {
	s.trace.add(s.name + ".cdr")
	if s.cdr == nil {
		return model.SendCDRResult{Outcome: code(model.ResultInvalidSessionID)}, nil
	}
	return s.cdr(ctx, cdr)
}

func (s *script) EnqueueStatusUpdate(_ context.Context, ev events.StatusChangeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, ev)
	return s.syncErr
}

func (s *script) EnqueueAdminStatusUpdate(_ context.Context, ev events.AdminStatusChangeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins = append(s.admins, ev)
	return s.syncErr
}

func (s *script) EnqueueMembershipUpdate(_ context.Context, ev events.MembershipEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members = append(s.members, ev)
	return s.syncErr
}

type fakeOperator struct {
	*script
	id model.OperatorID
}

func (f *fakeOperator) ID() model.OperatorID { return f.id }

type fakeProvider struct {
	*script
	id model.ProviderID
}

func (f *fakeProvider) ID() model.ProviderID { return f.id }

func newOperator(id model.OperatorID, tr *trace) *fakeOperator {
	return &fakeOperator{script: &script{name: string(id), trace: tr}, id: id}
}

func newProvider(id model.ProviderID, tr *trace) *fakeProvider {
	return &fakeProvider{script: &script{name: string(id), trace: tr}, id: id}
}

func reserved(id model.ReservationID) func(context.Context, ReserveRequest) (model.ReservationResult, error) {
	return func(_ context.Context, req ReserveRequest) (model.ReservationResult, error) {
		return model.ReservationResult{
			Outcome:     code(model.ResultSuccess),
			Reservation: &model.Reservation{ID: id, Target: req.Target, Duration: req.Duration},
		}, nil
	}
}
