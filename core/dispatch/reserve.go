package dispatch

import (
	"context"
	"errors"

	"github.com/kilianp07/roamnet/core/events"
	"github.com/kilianp07/roamnet/core/ledger"
	"github.com/kilianp07/roamnet/core/model"
)

// Reserve asks the operator owning req.Target for a reservation. When the
// operator is unknown, or it does not know the target, roaming providers
// are asked in priority order until one succeeds. Any other verdict of the
// owning operator, a timeout included, is final.
func (n *RoamingNetwork) Reserve(ctx context.Context, req ReserveRequest) (model.ReservationResult, error) {
	if err := validateTarget(req.Target); err != nil {
		return model.ReservationResult{}, err
	}
	if req.Duration < 0 {
		return model.ReservationResult{}, invalid("negative reservation duration %s", req.Duration)
	}
	if req.Duration == 0 {
		req.Duration = n.resDuration
	}
	if req.StartTime.IsZero() {
		req.StartTime = n.clock()
	}
	c := n.begin(events.OpReserve, events.OperationEvent{
		Operator:      req.Target.Operator,
		Target:        req.Target,
		ReservationID: req.ReservationID,
	})
	res, owner := n.reserve(ctx, c, req)
	if res.Code == model.ResultSuccess {
		res.Reservation = n.trackReservation(res.Reservation, owner, req)
	}
	res.Outcome = c.finish(res.Outcome, owner)
	return res, nil
}

func (n *RoamingNetwork) reserve(ctx context.Context, c *call, req ReserveRequest) (model.ReservationResult, model.Owner) {
	if op, ok := n.registry.Operator(req.Target.Operator); ok {
		res := attempt(ctx, c, kindOperator, req.Timeout, func(ctx context.Context) (model.ReservationResult, error) {
			return op.Reserve(ctx, req)
		})
		if !res.Code.UnknownTarget() {
			return res, model.OperatorOwner(op.ID())
		}
	}
	for _, e := range n.registry.RoamingProviders() {
		if o, stop := aborted(ctx); stop {
			return model.ReservationResult{Outcome: o}, model.Owner{}
		}
		p := e.Value
		res := attempt(ctx, c, kindRoaming, req.Timeout, func(ctx context.Context) (model.ReservationResult, error) {
			return p.Reserve(ctx, req)
		})
		if res.Code == model.ResultSuccess {
			return res, model.ProviderOwner(p.ID())
		}
	}
	return model.ReservationResult{Outcome: model.Outcome{
		Code:    model.ResultUnknownOperator,
		Message: "no operator or roaming provider accepted the reservation for " + req.Target.String(),
	}}, model.Owner{}
}

// trackReservation records the successful reservation. When the id is
// already tracked the existing owner wins.
func (n *RoamingNetwork) trackReservation(r *model.Reservation, owner model.Owner, req ReserveRequest) *model.Reservation {
	var res model.Reservation
	if r != nil {
		res = *r
	}
	if res.ID == "" {
		res.ID = req.ReservationID
	}
	if res.ID == "" {
		n.log.Warnf("dispatch: %s reserved %s without a reservation id, not tracked", owner, req.Target)
		return r
	}
	if res.Target.IsZero() {
		res.Target = req.Target
	}
	if res.StartTime.IsZero() {
		res.StartTime = req.StartTime
	}
	if res.Duration == 0 {
		res.Duration = req.Duration
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = n.clock()
	}
	res.Owner = owner
	if err := n.reservations.Add(res); err != nil {
		if errors.Is(err, ledger.ErrExists) {
			prev, _ := n.reservations.Owner(res.ID)
			n.log.Warnf("dispatch: reservation %s already owned by %s, ignoring %s", res.ID, prev, owner)
			return &res
		}
		n.log.Errorf("dispatch: track reservation %s: %v", res.ID, err)
		return &res
	}
	if n.topo != nil && res.Target.Tier == model.TierEVSE && n.topo.Contains(res.Target) {
		if err := n.topo.SetReservation(res.Target, res.ID); err != nil {
			n.log.Warnf("dispatch: mark reservation %s on %s: %v", res.ID, res.Target, err)
		}
	}
	return &res
}

// CancelReservation cancels a reservation through its recorded owner. When
// the reservation is not tracked, or the owner does not know it, roaming
// providers are asked in priority order until one reports something other
// than UnknownReservationID. If the owner fails otherwise, the ledger entry
// is restored so that a retry is routed to the owner again.
func (n *RoamingNetwork) CancelReservation(ctx context.Context, req CancelReservationRequest) (model.CancelReservationResult, error) {
	if req.ReservationID == "" {
		return model.CancelReservationResult{}, invalid("reservation id is required")
	}
	if req.Reason == "" {
		req.Reason = model.CancelUserRequest
	}
	c := n.begin(events.OpCancelReservation, events.OperationEvent{
		Operator:      req.Target.Operator,
		Target:        req.Target,
		ReservationID: req.ReservationID,
	})
	res, by := n.cancel(ctx, c, req)
	res.ReservationID = req.ReservationID
	if res.Reason == "" {
		res.Reason = req.Reason
	}
	res.Outcome = c.finish(res.Outcome, by)
	return res, nil
}

func (n *RoamingNetwork) cancel(ctx context.Context, c *call, req CancelReservationRequest) (model.CancelReservationResult, model.Owner) {
	target := req.Target
	entry, tracked := n.reservations.TryRemove(req.ReservationID)
	if tracked {
		target = entry.Target
		if b, ok := n.registry.backend(entry.Owner); ok {
			res := attempt(ctx, c, ownerKind(entry.Owner), req.Timeout, func(ctx context.Context) (model.CancelReservationResult, error) {
				return b.CancelReservation(ctx, req)
			})
			switch res.Code {
			case model.ResultSuccess:
				n.clearReservationMarker(target, req.ReservationID)
				return res, entry.Owner
			case model.ResultUnknownReservationID:
			default:
				if err := n.reservations.Add(entry); err != nil {
					n.log.Warnf("dispatch: restore reservation %s after %s: %v", req.ReservationID, res.Code, err)
				}
				return res, entry.Owner
			}
		} else {
			n.log.Warnf("dispatch: owner %s of reservation %s is no longer registered", entry.Owner, req.ReservationID)
		}
	}
	for _, e := range n.registry.RoamingProviders() {
		if tracked && entry.Owner == model.ProviderOwner(e.Value.ID()) {
			continue
		}
		if o, stop := aborted(ctx); stop {
			return model.CancelReservationResult{Outcome: o}, model.Owner{}
		}
		p := e.Value
		res := attempt(ctx, c, kindRoaming, req.Timeout, func(ctx context.Context) (model.CancelReservationResult, error) {
			return p.CancelReservation(ctx, req)
		})
		if res.Code != model.ResultUnknownReservationID {
			if res.Code == model.ResultSuccess {
				n.clearReservationMarker(target, req.ReservationID)
			}
			return res, model.ProviderOwner(p.ID())
		}
	}
	return model.CancelReservationResult{Outcome: model.Outcome{
		Code:    model.ResultUnknownReservationID,
		Message: "reservation " + string(req.ReservationID) + " is unknown to every backend",
	}}, model.Owner{}
}

func (n *RoamingNetwork) clearReservationMarker(target model.EntityRef, id model.ReservationID) {
	if n.topo != nil && target.Tier == model.TierEVSE {
		n.topo.ClearReservation(target, id)
	}
}
