package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/roamnet/core/events"
	coremetrics "github.com/kilianp07/roamnet/core/metrics"
	"github.com/kilianp07/roamnet/infra/logger"
	"github.com/kilianp07/roamnet/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records dispatcher,
// status and CDR events into sink. It stops when the context is canceled
// or the bus is closed. The returned channel is closed once the collector
// has unsubscribed.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := record(sink, ev); err != nil {
					log.Warnf("metrics sink: %v", err)
				}
			}
		}
	}()
	return done
}

func record(sink coremetrics.MetricsSink, ev eventbus.Event) error {
	switch e := ev.(type) {
	case events.OperationEvent:
		if e.Phase != events.PhasePost {
			return nil
		}
		return sink.RecordOperation(coremetrics.OperationRecord{
			Network:    e.Network,
			Operation:  string(e.Operation),
			Operator:   e.Operator,
			Target:     e.Target,
			Result:     e.Outcome.Code,
			AnsweredBy: e.AnsweredBy,
			Attempts:   e.Attempts,
			Elapsed:    e.Elapsed,
			Time:       e.Time,
		})
	case events.StatusChangeEvent:
		r, ok := sink.(coremetrics.StatusRecorder)
		if !ok {
			return nil
		}
		rec := coremetrics.StatusRecord{Network: e.Network, Entity: e.Entity, Kind: coremetrics.KindStatus, New: e.New.String(), Time: e.Time}
		if e.HadOld {
			rec.Old = e.Old.String()
		}
		return r.RecordStatusChange(rec)
	case events.AdminStatusChangeEvent:
		r, ok := sink.(coremetrics.StatusRecorder)
		if !ok {
			return nil
		}
		rec := coremetrics.StatusRecord{Network: e.Network, Entity: e.Entity, Kind: coremetrics.KindAdminStatus, New: e.New.String(), Time: e.Time}
		if e.HadOld {
			rec.Old = e.Old.String()
		}
		return r.RecordStatusChange(rec)
	case events.CDREvent:
		r, ok := sink.(coremetrics.CDRRecorder)
		if !ok {
			return nil
		}
		return r.RecordCDR(coremetrics.CDRRecord{
			Network: e.Network,
			CDR:     e.CDR,
			Result:  e.Result.Code,
			Queued:  e.Queued,
			Failed:  e.Err != nil,
			Time:    time.Now(),
		})
	}
	return nil
}

// StartQueueDepthPoller samples depth every interval and records it on
// sinks implementing QueueDepthRecorder.
func StartQueueDepthPoller(ctx context.Context, interval time.Duration, depth func() int, sink coremetrics.MetricsSink) {
	r, ok := sink.(coremetrics.QueueDepthRecorder)
	if !ok || depth == nil || interval <= 0 {
		return
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				_ = r.RecordQueueDepth(depth())
			}
		}
	}()
}
