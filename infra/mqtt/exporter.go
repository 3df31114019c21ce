package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/roamnet/core/dispatch"
	"github.com/kilianp07/roamnet/core/events"
	"github.com/kilianp07/roamnet/core/model"
	coremon "github.com/kilianp07/roamnet/core/monitoring"
	"github.com/kilianp07/roamnet/infra/logger"
)

// ErrBacklogFull is returned by the Enqueue methods when the publish queue
// is at capacity.
var ErrBacklogFull = errors.New("mqtt publish backlog full")

// StatusHandler receives status reports published by field devices on
// <prefix>/status/set/<entity>.
type StatusHandler func(ref model.EntityRef, st model.Status) error

type message struct {
	topic   string
	payload []byte
	retain  bool
}

// Exporter publishes status and topology deltas to an MQTT broker. It
// implements dispatch.DataSync: Enqueue methods only buffer, Run publishes.
type Exporter struct {
	cfg      Config
	cli      pahoClient
	log      logger.Logger
	queue    chan message
	dropped  atomic.Uint64
	onStatus StatusHandler
	backoff  time.Duration
}

var _ dispatch.DataSync = (*Exporter)(nil)

type statusPayload struct {
	Network string    `json:"network"`
	Entity  string    `json:"entity"`
	Tier    string    `json:"tier"`
	Old     string    `json:"old,omitempty"`
	New     string    `json:"new"`
	Time    time.Time `json:"time"`
}

type membershipPayload struct {
	Network string    `json:"network"`
	Action  string    `json:"action"`
	Parent  string    `json:"parent"`
	Child   string    `json:"child"`
	Name    string    `json:"name,omitempty"`
	Time    time.Time `json:"time"`
}

// NewExporter connects to the broker. When onStatus is not nil the exporter
// subscribes to inbound status reports on every (re)connect.
func NewExporter(cfg Config, log logger.Logger, onStatus StatusHandler) (*Exporter, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.New("mqtt_exporter")
	}
	e := &Exporter{
		cfg:      cfg,
		log:      log,
		queue:    make(chan message, cfg.QueueSize),
		onStatus: onStatus,
		backoff:  time.Duration(cfg.BackoffMS) * time.Millisecond,
	}
	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		c.Publish(availabilityTopic(cfg.TopicPrefix), cfg.QoS, true, "online")
		if e.onStatus == nil {
			return
		}
		if token := c.Subscribe(statusSetFilter(cfg.TopicPrefix), cfg.QoS, e.onStatusMessage); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	e.cli = c
	return e, nil
}

func (e *Exporter) onStatusMessage(_ paho.Client, msg paho.Message) {
	ref, ok := entityFromSetTopic(e.cfg.TopicPrefix, msg.Topic())
	if !ok {
		e.log.Warnf("ignoring status report on %s", msg.Topic())
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(msg.Payload(), &body); err != nil {
		e.log.Errorf("failed to decode status report: %v", err)
		return
	}
	st, ok := model.ParseStatus(body.Status)
	if !ok {
		e.log.Warnf("unknown status %q for %s", body.Status, ref)
		return
	}
	if err := e.onStatus(ref, st); err != nil {
		e.log.Warnf("status report for %s: %v", ref, err)
	}
}

// EnqueueStatusUpdate queues a retained status message for the entity.
func (e *Exporter) EnqueueStatusUpdate(_ context.Context, ev events.StatusChangeEvent) error {
	p := statusPayload{Network: string(ev.Network), Entity: ev.Entity.String(), Tier: ev.Entity.Tier.String(), New: ev.New.String(), Time: ev.Time}
	if ev.HadOld {
		p.Old = ev.Old.String()
	}
	return e.enqueue(statusTopic(e.cfg.TopicPrefix, ev.Entity), p, true)
}

// EnqueueAdminStatusUpdate queues a retained admin status message.
func (e *Exporter) EnqueueAdminStatusUpdate(_ context.Context, ev events.AdminStatusChangeEvent) error {
	p := statusPayload{Network: string(ev.Network), Entity: ev.Entity.String(), Tier: ev.Entity.Tier.String(), New: ev.New.String(), Time: ev.Time}
	if ev.HadOld {
		p.Old = ev.Old.String()
	}
	return e.enqueue(adminStatusTopic(e.cfg.TopicPrefix, ev.Entity), p, true)
}

// EnqueueMembershipUpdate queues a membership message on the parent topic.
func (e *Exporter) EnqueueMembershipUpdate(_ context.Context, ev events.MembershipEvent) error {
	p := membershipPayload{
		Network: string(ev.Network),
		Action:  string(ev.Action),
		Parent:  ev.Parent.String(),
		Child:   ev.Child.String(),
		Name:    ev.Name,
		Time:    ev.Time,
	}
	return e.enqueue(membershipTopic(e.cfg.TopicPrefix, ev.Parent), p, false)
}

func (e *Exporter) enqueue(topic string, v any, retain bool) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case e.queue <- message{topic: topic, payload: payload, retain: retain && e.cfg.Retain}:
		return nil
	default:
		e.dropped.Add(1)
		return ErrBacklogFull
	}
}

// Pending returns the number of queued messages.
func (e *Exporter) Pending() int { return len(e.queue) }

// Dropped returns how many messages were rejected by a full queue.
func (e *Exporter) Dropped() uint64 { return e.dropped.Load() }

// Run publishes queued messages until ctx is canceled.
func (e *Exporter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m := <-e.queue:
			if err := e.publish(ctx, m); err != nil {
				e.log.Errorf("publish to %s failed: %v", m.topic, err)
				coremon.CaptureException(err, map[string]string{"module": "mqtt", "topic": m.topic})
			}
		}
	}
}

func (e *Exporter) publish(ctx context.Context, m message) error {
	var err error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		token := e.cli.Publish(m.topic, e.cfg.QoS, m.retain, m.payload)
		token.Wait()
		if err = token.Error(); err == nil {
			e.log.Debugf("published %s", m.topic)
			return nil
		}
		e.log.Warnf("publish attempt %d failed: %v", attempt+1, err)
		if attempt == e.cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.backoff * time.Duration(1<<attempt)):
		}
	}
	return err
}

// Close publishes the offline marker and disconnects.
func (e *Exporter) Close() {
	if e.cli == nil || !e.cli.IsConnected() {
		return
	}
	e.cli.Publish(availabilityTopic(e.cfg.TopicPrefix), e.cfg.QoS, true, e.cfg.LWTPayload).Wait()
	e.cli.Disconnect(250)
}
