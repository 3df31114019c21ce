package dispatch

import (
	"context"
	"errors"

	"github.com/kilianp07/roamnet/core/events"
	"github.com/kilianp07/roamnet/core/ledger"
	"github.com/kilianp07/roamnet/core/model"
)

// RemoteStart starts charging on req.Target, routed like Reserve. A
// successful start records the session owner and consumes the reservation
// named in the request.
func (n *RoamingNetwork) RemoteStart(ctx context.Context, req RemoteStartRequest) (model.RemoteStartResult, error) {
	if err := validateTarget(req.Target); err != nil {
		return model.RemoteStartResult{}, err
	}
	c := n.begin(events.OpRemoteStart, events.OperationEvent{
		Operator:      req.Target.Operator,
		Target:        req.Target,
		SessionID:     req.SessionID,
		ReservationID: req.ReservationID,
	})
	res, owner := n.remoteStart(ctx, c, req)
	if res.Code == model.ResultSuccess {
		res.Session = n.trackSession(res.Session, owner, req)
		if req.ReservationID != "" {
			if r, ok := n.reservations.TryRemove(req.ReservationID); ok {
				n.clearReservationMarker(r.Target, r.ID)
			}
		}
	}
	res.Outcome = c.finish(res.Outcome, owner)
	return res, nil
}

func (n *RoamingNetwork) remoteStart(ctx context.Context, c *call, req RemoteStartRequest) (model.RemoteStartResult, model.Owner) {
	if op, ok := n.registry.Operator(req.Target.Operator); ok {
		res := attempt(ctx, c, kindOperator, req.Timeout, func(ctx context.Context) (model.RemoteStartResult, error) {
			return op.RemoteStart(ctx, req)
		})
		if !res.Code.UnknownTarget() {
			return res, model.OperatorOwner(op.ID())
		}
	}
	for _, e := range n.registry.RoamingProviders() {
		if o, stop := aborted(ctx); stop {
			return model.RemoteStartResult{Outcome: o}, model.Owner{}
		}
		p := e.Value
		res := attempt(ctx, c, kindRoaming, req.Timeout, func(ctx context.Context) (model.RemoteStartResult, error) {
			return p.RemoteStart(ctx, req)
		})
		if res.Code == model.ResultSuccess {
			return res, model.ProviderOwner(p.ID())
		}
	}
	return model.RemoteStartResult{Outcome: model.Outcome{
		Code:    model.ResultUnknownOperator,
		Message: "no operator or roaming provider started a session on " + req.Target.String(),
	}}, model.Owner{}
}

func (n *RoamingNetwork) trackSession(s *model.Session, owner model.Owner, req RemoteStartRequest) *model.Session {
	var sess model.Session
	if s != nil {
		sess = *s
	}
	if sess.ID == "" {
		sess.ID = req.SessionID
	}
	if sess.ID == "" {
		n.log.Warnf("dispatch: %s started charging on %s without a session id, not tracked", owner, req.Target)
		return s
	}
	if sess.Target.IsZero() {
		sess.Target = req.Target
	}
	if sess.ReservationID == "" {
		sess.ReservationID = req.ReservationID
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = n.clock()
	}
	sess.Owner = owner
	n.putSession(sess)
	return &sess
}

// putSession records sess unless its id is already tracked, in which case
// the existing owner wins.
func (n *RoamingNetwork) putSession(sess model.Session) {
	if err := n.sessions.Add(sess); err != nil {
		if errors.Is(err, ledger.ErrExists) {
			prev, _ := n.sessions.Owner(sess.ID)
			n.log.Warnf("dispatch: session %s already owned by %s, ignoring %s", sess.ID, prev, sess.Owner)
			return
		}
		n.log.Errorf("dispatch: track session %s: %v", sess.ID, err)
		return
	}
	if n.topo != nil && sess.Target.Tier == model.TierEVSE && n.topo.Contains(sess.Target) {
		if err := n.topo.SetSession(sess.Target, sess.ID); err != nil {
			n.log.Warnf("dispatch: mark session %s on %s: %v", sess.ID, sess.Target, err)
		}
	}
}

// RemoteStop stops a session through its recorded owner, falling back to
// roaming providers until one reports something other than
// InvalidSessionID. The session mapping is removed whatever the outcome.
// A charge detail record attached to the result is queued for
// distribution.
func (n *RoamingNetwork) RemoteStop(ctx context.Context, req RemoteStopRequest) (model.RemoteStopResult, error) {
	if req.SessionID == "" {
		return model.RemoteStopResult{}, invalid("session id is required")
	}
	if req.Reason == "" {
		req.Reason = model.StopUserRequest
	}
	c := n.begin(events.OpRemoteStop, events.OperationEvent{
		Operator:  req.Target.Operator,
		Target:    req.Target,
		SessionID: req.SessionID,
	})
	res, by := n.remoteStop(ctx, c, req)
	res.SessionID = req.SessionID
	if res.CDR != nil {
		cdr := *res.CDR
		if cdr.SessionID == "" {
			cdr.SessionID = req.SessionID
		}
		if err := n.EnqueueChargeDetailRecord(cdr); err != nil {
			n.log.Warnf("dispatch: queue cdr of session %s: %v", req.SessionID, err)
		}
	}
	res.Outcome = c.finish(res.Outcome, by)
	return res, nil
}

func (n *RoamingNetwork) remoteStop(ctx context.Context, c *call, req RemoteStopRequest) (model.RemoteStopResult, model.Owner) {
	target := req.Target
	entry, tracked := n.sessions.TryRemove(req.SessionID)
	if tracked {
		target = entry.Target
		if b, ok := n.registry.backend(entry.Owner); ok {
			res := attempt(ctx, c, ownerKind(entry.Owner), req.Timeout, func(ctx context.Context) (model.RemoteStopResult, error) {
				return b.RemoteStop(ctx, req)
			})
			if res.Code != model.ResultInvalidSessionID {
				n.clearSessionMarker(target, req.SessionID)
				return res, entry.Owner
			}
		}
	}
	for _, e := range n.registry.RoamingProviders() {
		if tracked && entry.Owner == model.ProviderOwner(e.Value.ID()) {
			continue
		}
		if o, stop := aborted(ctx); stop {
			return model.RemoteStopResult{Outcome: o}, model.Owner{}
		}
		p := e.Value
		res := attempt(ctx, c, kindRoaming, req.Timeout, func(ctx context.Context) (model.RemoteStopResult, error) {
			return p.RemoteStop(ctx, req)
		})
		if res.Code != model.ResultInvalidSessionID {
			n.clearSessionMarker(target, req.SessionID)
			return res, model.ProviderOwner(p.ID())
		}
	}
	n.clearSessionMarker(target, req.SessionID)
	return model.RemoteStopResult{Outcome: model.Outcome{
		Code:    model.ResultInvalidSessionID,
		Message: "session " + string(req.SessionID) + " is unknown to every backend",
	}}, model.Owner{}
}

func (n *RoamingNetwork) clearSessionMarker(target model.EntityRef, id model.SessionID) bool {
	if n.topo == nil || target.Tier != model.TierEVSE {
		return false
	}
	return n.topo.ClearSession(target, id)
}
