// Package simulator provides an in-process charge point operator that acts
// on a topology.Network. It answers every dispatch operation the way a real
// operator backend would, with configurable latency and dropped answers, and
// drives EVSE status transitions so that the rest of the network sees them.
package simulator

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/roamnet/core/dispatch"
	"github.com/kilianp07/roamnet/core/logger"
	"github.com/kilianp07/roamnet/core/model"
	"github.com/kilianp07/roamnet/core/topology"
)

type reservation struct {
	res  model.Reservation
	evse model.EntityRef
}

type session struct {
	sess    model.Session
	evse    model.EntityRef
	token   string
	battery *Battery
}

// Operator simulates the backend of one charge point operator.
type Operator struct {
	cfg   Config
	topo  *topology.Network
	log   logger.Logger
	clock func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand

	tokens tokenList

	mu           sync.Mutex
	reservations map[model.ReservationID]reservation
	sessions     map[model.SessionID]*session
	// held maps EVSEs to the reservation or session occupying them.
	held map[model.EntityRef]string
}

var _ dispatch.Operator = (*Operator)(nil)

// New returns an operator acting on the EVSEs of cfg.OperatorID in topo.
func New(cfg Config, topo *topology.Network, log logger.Logger) (*Operator, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if topo == nil {
		return nil, fmt.Errorf("simulator: topology required")
	}
	o := &Operator{
		cfg:          cfg,
		topo:         topo,
		log:          logger.OrNop(log),
		clock:        time.Now,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		tokens:       newTokenList(cfg.AllowedTokens, cfg.BlockedTokens),
		reservations: map[model.ReservationID]reservation{},
		sessions:     map[model.SessionID]*session{},
		held:         map[model.EntityRef]string{},
	}
	return o, nil
}

// ID implements dispatch.Operator.
func (o *Operator) ID() model.OperatorID { return o.cfg.OperatorID }

// SetClock overrides the time source, used by tests.
func (o *Operator) SetClock(fn func() time.Time) {
	if fn != nil {
		o.clock = fn
	}
}

// SetSeed makes dropped answers reproducible.
func (o *Operator) SetSeed(seed int64) {
	o.rngMu.Lock()
	o.rng = rand.New(rand.NewSource(seed))
	o.rngMu.Unlock()
}

// answer waits for the configured latency. A dropped answer blocks until
// ctx is done.
func (o *Operator) answer(ctx context.Context) error {
	if o.cfg.DropRate > 0 {
		o.rngMu.Lock()
		drop := o.rng.Float64() < o.cfg.DropRate
		o.rngMu.Unlock()
		if drop {
			<-ctx.Done()
			return ctx.Err()
		}
	}
	if d := o.cfg.latency(); d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return ctx.Err()
}

func unknown(tier model.Tier) model.ResultCode {
	switch tier {
	case model.TierStation:
		return model.ResultUnknownStation
	case model.TierPool:
		return model.ResultUnknownPool
	case model.TierEVSE:
		return model.ResultUnknownEVSE
	}
	return model.ResultUnknownOperator
}

func outcome(code model.ResultCode, msg string, start time.Time, now time.Time) model.Outcome {
	return model.Outcome{Code: code, Message: msg, Runtime: now.Sub(start)}
}

// owns reports whether ref is a known target of this operator.
func (o *Operator) owns(ref model.EntityRef) bool {
	return ref.Operator == o.cfg.OperatorID && ref.Tier.Dispatchable() && o.topo.Contains(ref)
}

// evses lists the EVSEs at or below ref.
func (o *Operator) evses(ref model.EntityRef) []model.EntityRef {
	if ref.Tier == model.TierEVSE {
		return []model.EntityRef{ref}
	}
	var out []model.EntityRef
	for _, c := range o.topo.Children(ref) {
		out = append(out, o.evses(c)...)
	}
	return out
}

// usable returns a code other than Success when the EVSE cannot take a
// reservation or session. Callers hold o.mu.
func (o *Operator) usable(evse model.EntityRef, allowID string) model.ResultCode {
	if a, ok := o.topo.AdminStatus(evse); ok {
		switch a {
		case model.AdminOutOfService, model.AdminPlanned:
			return model.ResultOutOfService
		case model.AdminBlocked:
			return model.ResultAdminDown
		}
	}
	if st, ok := o.topo.Status(evse); ok {
		switch st {
		case model.StatusFaulted, model.StatusOffline:
			return model.ResultOutOfService
		}
	}
	if h, ok := o.held[evse]; ok && h != allowID {
		return model.ResultAlreadyReserved
	}
	return model.ResultSuccess
}

// failureRank orders the codes of unusable EVSEs, most specific first.
var failureRank = map[model.ResultCode]int{
	model.ResultAlreadyReserved: 3,
	model.ResultAdminDown:       2,
	model.ResultOutOfService:    1,
}

// pick selects the first usable EVSE below ref. Otherwise it returns the
// most specific failure seen, OutOfService when ref has no EVSE.
func (o *Operator) pick(ref model.EntityRef, allowID string) (model.EntityRef, model.ResultCode) {
	code := model.ResultOutOfService
	for _, e := range o.evses(ref) {
		c := o.usable(e, allowID)
		if c == model.ResultSuccess {
			return e, c
		}
		if failureRank[c] > failureRank[code] {
			code = c
		}
	}
	return model.EntityRef{}, code
}

func (o *Operator) setStatus(evse model.EntityRef, st model.Status) {
	if _, err := o.topo.SetStatus(evse, st, o.clock()); err != nil {
		o.log.Warnf("simulator: %s status %s: %v", evse, st, err)
	}
}

// Reserve implements dispatch.Backend.
func (o *Operator) Reserve(ctx context.Context, req dispatch.ReserveRequest) (model.ReservationResult, error) {
	start := o.clock()
	if err := o.answer(ctx); err != nil {
		return model.ReservationResult{}, err
	}
	if !o.owns(req.Target) {
		return model.ReservationResult{Outcome: outcome(unknown(req.Target.Tier), "unknown target "+req.Target.String(), start, o.clock())}, nil
	}
	id := req.ReservationID
	if id == "" {
		id = model.ReservationID(uuid.NewString())
	}

	o.mu.Lock()
	if _, dup := o.reservations[id]; dup {
		o.mu.Unlock()
		return model.ReservationResult{Outcome: outcome(model.ResultAlreadyReserved, "reservation id in use", start, o.clock())}, nil
	}
	evse, code := o.pick(req.Target, "")
	if code != model.ResultSuccess {
		o.mu.Unlock()
		return model.ReservationResult{Outcome: outcome(code, "no free evse at "+req.Target.String(), start, o.clock())}, nil
	}
	begin := req.StartTime
	if begin.IsZero() {
		begin = o.clock()
	}
	dur := req.Duration
	if dur <= 0 {
		dur = model.DefaultReservationDuration
	}
	res := model.Reservation{
		ID:        id,
		Target:    evse,
		StartTime: begin,
		Duration:  dur,
		Owner:     model.OperatorOwner(o.cfg.OperatorID),
		CreatedAt: o.clock(),
	}
	o.reservations[id] = reservation{res: res, evse: evse}
	o.held[evse] = string(id)
	o.mu.Unlock()

	o.setStatus(evse, model.StatusReserved)
	o.log.Infof("simulator: %s reserved %s as %s", o.cfg.OperatorID, evse, id)
	return model.ReservationResult{Outcome: outcome(model.ResultSuccess, "", start, o.clock()), Reservation: &res}, nil
}

// CancelReservation implements dispatch.Backend.
func (o *Operator) CancelReservation(ctx context.Context, req dispatch.CancelReservationRequest) (model.CancelReservationResult, error) {
	start := o.clock()
	if err := o.answer(ctx); err != nil {
		return model.CancelReservationResult{}, err
	}
	out := model.CancelReservationResult{ReservationID: req.ReservationID, Reason: req.Reason}

	o.mu.Lock()
	r, ok := o.reservations[req.ReservationID]
	if !ok {
		o.mu.Unlock()
		out.Outcome = outcome(model.ResultUnknownReservationID, "", start, o.clock())
		return out, nil
	}
	delete(o.reservations, req.ReservationID)
	release := o.held[r.evse] == string(req.ReservationID)
	if release {
		delete(o.held, r.evse)
	}
	o.mu.Unlock()

	if release {
		o.setStatus(r.evse, model.StatusAvailable)
	}
	out.Outcome = outcome(model.ResultSuccess, "", start, o.clock())
	return out, nil
}

// RemoteStart implements dispatch.Backend. A start on a reserved EVSE
// succeeds only when it carries the reservation id; the reservation is
// consumed.
func (o *Operator) RemoteStart(ctx context.Context, req dispatch.RemoteStartRequest) (model.RemoteStartResult, error) {
	start := o.clock()
	if err := o.answer(ctx); err != nil {
		return model.RemoteStartResult{}, err
	}
	if !o.owns(req.Target) {
		return model.RemoteStartResult{Outcome: outcome(unknown(req.Target.Tier), "unknown target "+req.Target.String(), start, o.clock())}, nil
	}
	id := req.SessionID
	if id == "" {
		id = model.SessionID(uuid.NewString())
	}

	o.mu.Lock()
	if _, dup := o.sessions[id]; dup {
		o.mu.Unlock()
		return model.RemoteStartResult{Outcome: outcome(model.ResultInvalidSessionID, "session id in use", start, o.clock())}, nil
	}
	var evse model.EntityRef
	code := model.ResultSuccess
	r, used := o.reservations[req.ReservationID]
	used = used && req.ReservationID != "" && o.covers(req.Target, r.evse)
	if used {
		evse = r.evse
		code = o.usable(evse, string(req.ReservationID))
	} else {
		evse, code = o.pick(req.Target, "")
	}
	if code != model.ResultSuccess {
		o.mu.Unlock()
		return model.RemoteStartResult{Outcome: outcome(code, "cannot start at "+req.Target.String(), start, o.clock())}, nil
	}
	if used {
		delete(o.reservations, req.ReservationID)
	}
	sess := model.Session{
		ID:            id,
		Target:        evse,
		Owner:         model.OperatorOwner(o.cfg.OperatorID),
		ReservationID: req.ReservationID,
		StartedAt:     o.clock(),
	}
	o.sessions[id] = &session{
		sess:    sess,
		evse:    evse,
		battery: &Battery{CapacityKWh: o.cfg.CapacityKWh, ChargeRateKW: o.cfg.ChargeKW},
	}
	o.held[evse] = string(id)
	o.mu.Unlock()

	o.setStatus(evse, model.StatusCharging)
	o.log.Infof("simulator: %s started %s on %s", o.cfg.OperatorID, id, evse)
	return model.RemoteStartResult{Outcome: outcome(model.ResultSuccess, "", start, o.clock()), Session: &sess}, nil
}

func (o *Operator) covers(target, evse model.EntityRef) bool {
	for _, e := range o.evses(target) {
		if e == evse {
			return true
		}
	}
	return false
}

// RemoteStop implements dispatch.Backend. The result carries the charge
// detail record of the session, with the energy delivered since start.
func (o *Operator) RemoteStop(ctx context.Context, req dispatch.RemoteStopRequest) (model.RemoteStopResult, error) {
	start := o.clock()
	if err := o.answer(ctx); err != nil {
		return model.RemoteStopResult{}, err
	}
	out := model.RemoteStopResult{SessionID: req.SessionID}

	o.mu.Lock()
	s, ok := o.sessions[req.SessionID]
	if !ok {
		o.mu.Unlock()
		out.Outcome = outcome(model.ResultInvalidSessionID, "", start, o.clock())
		return out, nil
	}
	delete(o.sessions, req.SessionID)
	if o.held[s.evse] == string(req.SessionID) {
		delete(o.held, s.evse)
	}
	o.mu.Unlock()

	end := o.clock()
	energy := s.battery.Charge(o.cfg.ChargeKW, end.Sub(s.sess.StartedAt))
	out.CDR = &model.ChargeDetailRecord{
		ID:            uuid.NewString(),
		SessionID:     s.sess.ID,
		ReservationID: s.sess.ReservationID,
		Target:        s.evse,
		ProviderID:    req.ProviderID,
		AuthToken:     s.token,
		Start:         s.sess.StartedAt,
		End:           end,
		EnergyKWh:     energy,
		Meta:          map[string]string{"stop_reason": string(req.Reason), "operator_id": string(o.cfg.OperatorID)},
	}
	o.setStatus(s.evse, model.StatusAvailable)
	o.log.Infof("simulator: %s stopped %s on %s (%.3f kWh)", o.cfg.OperatorID, req.SessionID, s.evse, energy)
	out.Outcome = outcome(model.ResultSuccess, "", start, o.clock())
	return out, nil
}

// AuthorizeStart implements dispatch.Authorizer.
func (o *Operator) AuthorizeStart(ctx context.Context, req dispatch.AuthorizeStartRequest) (model.AuthStartResult, error) {
	start := o.clock()
	if err := o.answer(ctx); err != nil {
		return model.AuthStartResult{}, err
	}
	if req.Operator != "" && req.Operator != o.cfg.OperatorID {
		return model.AuthStartResult{Outcome: outcome(model.ResultUnknownOperator, "", start, o.clock())}, nil
	}
	if !req.Target.IsZero() && !o.owns(req.Target) {
		return model.AuthStartResult{Outcome: outcome(unknown(req.Target.Tier), "", start, o.clock())}, nil
	}
	code := o.tokens.code(req.AuthToken)
	out := model.AuthStartResult{Outcome: outcome(code, "", start, o.clock())}
	if code == model.ResultAuthorized {
		out.SessionID = req.SessionID
		if out.SessionID == "" {
			out.SessionID = model.SessionID(uuid.NewString())
		}
		out.AuthorizedBy = string(o.cfg.OperatorID)
	}
	return out, nil
}

// AuthorizeStop implements dispatch.Authorizer. Only the token that is
// recorded for a running session, or any authorized token when none is,
// may stop it.
func (o *Operator) AuthorizeStop(ctx context.Context, req dispatch.AuthorizeStopRequest) (model.AuthStopResult, error) {
	start := o.clock()
	if err := o.answer(ctx); err != nil {
		return model.AuthStopResult{}, err
	}
	out := model.AuthStopResult{SessionID: req.SessionID}
	code := o.tokens.code(req.AuthToken)
	if code == model.ResultAuthorized {
		o.mu.Lock()
		if s, ok := o.sessions[req.SessionID]; ok && s.token != "" && s.token != req.AuthToken {
			code = model.ResultNotAuthorized
		}
		o.mu.Unlock()
	}
	out.Outcome = outcome(code, "", start, o.clock())
	return out, nil
}

// BindToken records the token a session was authorized with so that only
// the same token can stop it.
func (o *Operator) BindToken(id model.SessionID, token string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[id]
	if ok {
		s.token = token
	}
	return ok
}

// Reservations returns the number of pending reservations.
func (o *Operator) Reservations() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.reservations)
}

// Sessions returns the number of running sessions.
func (o *Operator) Sessions() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sessions)
}
