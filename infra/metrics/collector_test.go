package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kilianp07/roamnet/core/events"
	coremetrics "github.com/kilianp07/roamnet/core/metrics"
	"github.com/kilianp07/roamnet/core/model"
	"github.com/kilianp07/roamnet/infra/logger"
	"github.com/kilianp07/roamnet/internal/eventbus"
)

type captureSink struct {
	mu     sync.Mutex
	ops    []coremetrics.OperationRecord
	status []coremetrics.StatusRecord
	cdrs   []coremetrics.CDRRecord
	depths []int
}

func (c *captureSink) RecordOperation(r coremetrics.OperationRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = append(c.ops, r)
	return nil
}

func (c *captureSink) RecordStatusChange(r coremetrics.StatusRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = append(c.status, r)
	return nil
}

func (c *captureSink) RecordCDR(r coremetrics.CDRRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cdrs = append(c.cdrs, r)
	return nil
}

func (c *captureSink) RecordQueueDepth(d int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.depths = append(c.depths, d)
	return nil
}

func (c *captureSink) counts() (int, int, int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ops), len(c.status), len(c.cdrs), len(c.depths)
}

func TestStartEventCollector(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()
	sink := &captureSink{}
	ctx, cancel := context.WithCancel(context.Background())
	done := StartEventCollector(ctx, bus, sink, logger.NopLogger{})

	evse := model.EVSE("DE*GEF", "1")
	bus.Publish(events.OperationEvent{Operation: events.OpReserve, Phase: events.PhasePre})
	bus.Publish(events.OperationEvent{
		Operation: events.OpReserve, Phase: events.PhasePost,
		Outcome: model.Outcome{Code: model.ResultSuccess}, Attempts: 1,
	})
	bus.Publish(events.StatusChangeEvent{Entity: evse, New: model.StatusCharging, Old: model.StatusAvailable, HadOld: true})
	bus.Publish(events.AdminStatusChangeEvent{Entity: evse, New: model.AdminOperational})
	bus.Publish(events.CDREvent{CDR: model.ChargeDetailRecord{SessionID: "s1"}, Queued: true, Err: errors.New("store down")})
	bus.Publish("ignored")

	deadline := time.Now().Add(2 * time.Second)
	for {
		ops, st, cdrs, _ := sink.counts()
		if ops == 1 && st == 2 && cdrs == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("collector did not record events: ops=%d status=%d cdrs=%d", ops, st, cdrs)
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.ops[0].Operation != "reserve" || sink.ops[0].Result != model.ResultSuccess {
		t.Errorf("unexpected operation record %+v", sink.ops[0])
	}
	if sink.status[0].Old != "available" || sink.status[0].New != "charging" {
		t.Errorf("unexpected status record %+v", sink.status[0])
	}
	if sink.status[1].Kind != coremetrics.KindAdminStatus || sink.status[1].Old != "" {
		t.Errorf("unexpected admin record %+v", sink.status[1])
	}
	if !sink.cdrs[0].Failed || !sink.cdrs[0].Queued {
		t.Errorf("unexpected cdr record %+v", sink.cdrs[0])
	}
}

func TestStartEventCollector_NilBus(t *testing.T) {
	done := StartEventCollector(context.Background(), nil, &captureSink{}, nil)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected immediate return")
	}
}

func TestStartQueueDepthPoller(t *testing.T) {
	sink := &captureSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartQueueDepthPoller(ctx, 5*time.Millisecond, func() int { return 3 }, sink)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, _, _, d := sink.counts(); d > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("queue depth never sampled")
		}
		time.Sleep(5 * time.Millisecond)
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.depths[0] != 3 {
		t.Fatalf("depth = %d", sink.depths[0])
	}
}
