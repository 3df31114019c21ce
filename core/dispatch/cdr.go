package dispatch

import (
	"context"
	"sync"

	"github.com/kilianp07/roamnet/core/events"
	"github.com/kilianp07/roamnet/core/model"
)

// SendChargeDetailRecord stores cdr (last write wins per session id),
// retires the session and reservation it closes, and distributes it to
// e-mobility providers, then roaming providers, until one reports
// something other than InvalidSessionID. A configured CDRFilter may answer
// instead of the providers.
func (n *RoamingNetwork) SendChargeDetailRecord(ctx context.Context, cdr model.ChargeDetailRecord) (model.SendCDRResult, error) {
	return n.sendCDR(ctx, cdr, false)
}

func (n *RoamingNetwork) sendCDR(ctx context.Context, cdr model.ChargeDetailRecord, queued bool) (model.SendCDRResult, error) {
	if cdr.SessionID == "" {
		return model.SendCDRResult{}, invalid("charge detail record without session id")
	}
	if !cdr.Target.IsZero() {
		if err := validateTarget(cdr.Target); err != nil {
			return model.SendCDRResult{}, err
		}
	}
	c := n.begin(events.OpSendCDR, events.OperationEvent{
		Operator:      cdr.Target.Operator,
		Target:        cdr.Target,
		SessionID:     cdr.SessionID,
		ReservationID: cdr.ReservationID,
	})
	res, by := n.sendCDRChain(ctx, c, cdr)
	res.SessionID = cdr.SessionID
	res.Outcome = c.finish(res.Outcome, by)
	n.publish(events.CDREvent{Network: n.id, CDR: cdr, Result: res, Queued: queued})
	return res, nil
}

func (n *RoamingNetwork) sendCDRChain(ctx context.Context, c *call, cdr model.ChargeDetailRecord) (model.SendCDRResult, model.Owner) {
	replaced, err := n.cdrs.Put(ctx, cdr)
	if err != nil {
		n.log.Errorf("dispatch: store cdr of session %s: %v", cdr.SessionID, err)
		return model.SendCDRResult{Outcome: model.Outcome{Code: model.ResultError, Message: "store charge detail record: " + err.Error()}}, model.Owner{}
	}
	if replaced {
		n.log.Infof("dispatch: cdr of session %s replaced a previous record", cdr.SessionID)
	}
	n.retire(cdr)

	if n.cdrFilter != nil {
		if res, ok := n.cdrFilter(ctx, cdr); ok {
			return res, model.Owner{}
		}
	}

	for _, e := range n.registry.EMobilityProviders() {
		if o, stop := aborted(ctx); stop {
			return model.SendCDRResult{Outcome: o}, model.Owner{}
		}
		p := e.Value
		res := attempt(ctx, c, kindEMobility, 0, func(ctx context.Context) (model.SendCDRResult, error) {
			return p.SendChargeDetailRecord(ctx, cdr)
		})
		if res.Code != model.ResultInvalidSessionID {
			if res.ProviderID == "" {
				res.ProviderID = p.ID()
			}
			return res, model.EMobilityOwner(p.ID())
		}
	}
	for _, e := range n.registry.RoamingProviders() {
		if o, stop := aborted(ctx); stop {
			return model.SendCDRResult{Outcome: o}, model.Owner{}
		}
		p := e.Value
		res := attempt(ctx, c, kindRoaming, 0, func(ctx context.Context) (model.SendCDRResult, error) {
			return p.SendChargeDetailRecord(ctx, cdr)
		})
		if res.Code != model.ResultInvalidSessionID {
			if res.ProviderID == "" {
				res.ProviderID = p.ID()
			}
			return res, model.ProviderOwner(p.ID())
		}
	}
	return model.SendCDRResult{Outcome: model.Outcome{
		Code:    model.ResultNotForwarded,
		Message: "no provider accepted the charge detail record",
	}}, model.Owner{}
}

// retire drops the ledger entries and EVSE markers closed by cdr. Repeated
// records find nothing left to clear.
func (n *RoamingNetwork) retire(cdr model.ChargeDetailRecord) {
	target := cdr.Target
	resID := cdr.ReservationID
	if s, ok := n.sessions.TryRemove(cdr.SessionID); ok {
		if target.IsZero() {
			target = s.Target
		}
		if resID == "" {
			resID = s.ReservationID
		}
	}
	if resID != "" {
		if r, ok := n.reservations.TryRemove(resID); ok && target.IsZero() {
			target = r.Target
		}
		n.clearReservationMarker(target, resID)
	}
	if n.clearSessionMarker(target, cdr.SessionID) {
		cdrSessionsClosed.Inc()
	}
}

// EnqueueChargeDetailRecord hands cdr to the background workers started
// by Run. It never blocks: a full queue yields ErrQueueFull.
func (n *RoamingNetwork) EnqueueChargeDetailRecord(cdr model.ChargeDetailRecord) error {
	if cdr.SessionID == "" {
		return invalid("charge detail record without session id")
	}
	select {
	case n.cdrQueue <- cdr:
		cdrQueueDepth.Set(float64(len(n.cdrQueue)))
		return nil
	default:
		cdrQueueRejected.Inc()
		return ErrQueueFull
	}
}

// QueuedChargeDetailRecords returns the number of records waiting in the
// queue.
func (n *RoamingNetwork) QueuedChargeDetailRecords() int { return len(n.cdrQueue) }

// Run drains the CDR queue until ctx is cancelled. Records still queued at
// that point stay queued for a later Run.
func (n *RoamingNetwork) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < n.cdrWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.cdrWorker(ctx)
		}()
	}
	n.log.Infof("dispatch: network %s running with %d cdr workers", n.id, n.cdrWorkers)
	wg.Wait()
	if left := len(n.cdrQueue); left > 0 {
		n.log.Warnf("dispatch: %d charge detail records left in queue", left)
	}
	return nil
}

func (n *RoamingNetwork) cdrWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cdr := <-n.cdrQueue:
			cdrQueueDepth.Set(float64(len(n.cdrQueue)))
			res, err := n.sendCDR(ctx, cdr, true)
			if err != nil {
				n.log.Errorf("dispatch: queued cdr of session %s: %v", cdr.SessionID, err)
				n.publish(events.CDREvent{Network: n.id, CDR: cdr, Queued: true, Err: err})
				continue
			}
			if res.Code != model.ResultSuccess {
				n.log.Warnf("dispatch: queued cdr of session %s: %s %s", cdr.SessionID, res.Code, res.Message)
			}
		}
	}
}
