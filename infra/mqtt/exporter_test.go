package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/roamnet/core/events"
	"github.com/kilianp07/roamnet/core/model"
	coremon "github.com/kilianp07/roamnet/core/monitoring"
	"github.com/kilianp07/roamnet/infra/logger"
)

func newTestExporter(t *testing.T, mc *mockClient, cfg Config, h StatusHandler) *Exporter {
	t.Helper()
	withMockClient(t, mc)
	cfg.Enabled = true
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "rn"
	}
	e, err := NewExporter(cfg, logger.NopLogger{}, h)
	require.NoError(t, err)
	return e
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestExporter_PublishesAvailabilityOnConnect(t *testing.T) {
	mc := &mockClient{}
	newTestExporter(t, mc, Config{QoS: 1}, nil)
	msgs := mc.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "rn/availability", msgs[0].topic)
	assert.Equal(t, "online", string(msgs[0].payload))
	assert.True(t, msgs[0].retain)
	assert.Empty(t, mc.subscribed, "no handler, no subscription")
}

func TestExporter_PublishesStatusAndMembership(t *testing.T) {
	mc := &mockClient{}
	e := newTestExporter(t, mc, Config{Retain: true}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = e.Run(ctx) }()

	evse := model.EVSE("DE*GEF", "1")
	station := model.Station("DE*GEF", "1")
	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, e.EnqueueStatusUpdate(ctx, events.StatusChangeEvent{
		Network: "net", Entity: evse, Old: model.StatusAvailable, HadOld: true, New: model.StatusCharging, Time: now,
	}))
	require.NoError(t, e.EnqueueAdminStatusUpdate(ctx, events.AdminStatusChangeEvent{
		Network: "net", Entity: evse, New: model.AdminOperational, Time: now,
	}))
	require.NoError(t, e.EnqueueMembershipUpdate(ctx, events.MembershipEvent{
		Network: "net", Action: events.MemberAdded, Parent: station, Child: evse, Name: "left", Time: now,
	}))

	waitFor(t, func() bool { return len(mc.messages()) == 4 })
	msgs := mc.messages()[1:]

	assert.Equal(t, "rn/status/"+evse.String(), msgs[0].topic)
	assert.True(t, msgs[0].retain)
	var sp statusPayload
	require.NoError(t, json.Unmarshal(msgs[0].payload, &sp))
	assert.Equal(t, "available", sp.Old)
	assert.Equal(t, "charging", sp.New)
	assert.Equal(t, "evse", sp.Tier)

	assert.Equal(t, "rn/admin_status/"+evse.String(), msgs[1].topic)
	require.NoError(t, json.Unmarshal(msgs[1].payload, &sp))
	assert.Equal(t, "operational", sp.New)

	assert.Equal(t, "rn/membership/"+station.String(), msgs[2].topic)
	assert.False(t, msgs[2].retain)
	var mp membershipPayload
	require.NoError(t, json.Unmarshal(msgs[2].payload, &mp))
	assert.Equal(t, "added", mp.Action)
	assert.Equal(t, evse.String(), mp.Child)
}

func TestExporter_BacklogFull(t *testing.T) {
	mc := &mockClient{}
	e := newTestExporter(t, mc, Config{QueueSize: 1}, nil)
	ev := events.StatusChangeEvent{Entity: model.EVSE("DE*GEF", "1"), New: model.StatusFaulted}
	require.NoError(t, e.EnqueueStatusUpdate(context.Background(), ev))
	err := e.EnqueueStatusUpdate(context.Background(), ev)
	assert.True(t, errors.Is(err, ErrBacklogFull))
	assert.Equal(t, 1, e.Pending())
	assert.Equal(t, uint64(1), e.Dropped())
}

func TestExporter_RetriesThenCaptures(t *testing.T) {
	mc := &mockClient{}
	e := newTestExporter(t, mc, Config{MaxRetries: 1, BackoffMS: 1}, nil)
	mc.mu.Lock()
	mc.publishErrs = []error{fmt.Errorf("net fail"), nil}
	mc.mu.Unlock()

	err := e.publish(context.Background(), message{topic: "rn/x", payload: []byte("{}")})
	require.NoError(t, err)
	assert.Len(t, mc.messages(), 3, "availability plus two attempts")

	mon := &recordMonitor{}
	coremon.Init(mon)
	defer coremon.Init(coremon.NopMonitor{})
	mc.mu.Lock()
	mc.publishErrs = []error{fmt.Errorf("net fail"), fmt.Errorf("net fail")}
	mc.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { _ = e.Run(ctx); close(done) }()
	require.NoError(t, e.EnqueueStatusUpdate(ctx, events.StatusChangeEvent{Entity: model.Pool("DE*GEF", "1")}))
	waitFor(t, func() bool { return mon.captured() })
	cancel()
	<-done
	assert.Equal(t, "mqtt", mon.tags()["module"])
}

func TestExporter_InboundStatusReports(t *testing.T) {
	mc := &mockClient{}
	type report struct {
		ref model.EntityRef
		st  model.Status
	}
	var got []report
	newTestExporter(t, mc, Config{}, func(ref model.EntityRef, st model.Status) error {
		got = append(got, report{ref, st})
		return nil
	})
	require.Equal(t, []string{"rn/status/set/+"}, mc.subscribed)

	evse := model.EVSE("DE*GEF", "7")
	mc.handler(mc, mockMessage{topic: "rn/status/set/" + evse.String(), p: []byte(`{"status":"faulted"}`)})
	mc.handler(mc, mockMessage{topic: "rn/status/set/garbage", p: []byte(`{"status":"faulted"}`)})
	mc.handler(mc, mockMessage{topic: "rn/status/set/" + evse.String(), p: []byte(`{"status":"melting"}`)})
	mc.handler(mc, mockMessage{topic: "rn/status/set/" + evse.String(), p: []byte(`not json`)})

	require.Len(t, got, 1)
	assert.Equal(t, evse, got[0].ref)
	assert.Equal(t, model.StatusFaulted, got[0].st)
}

func TestExporter_CloseMarksOffline(t *testing.T) {
	mc := &mockClient{}
	e := newTestExporter(t, mc, Config{LWTPayload: "bye"}, nil)
	e.Close()
	msgs := mc.messages()
	last := msgs[len(msgs)-1]
	assert.Equal(t, "rn/availability", last.topic)
	assert.Equal(t, "bye", string(last.payload))
}
