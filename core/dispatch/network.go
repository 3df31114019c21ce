// Package dispatch implements the roaming network facade: it routes
// reservations, remote start/stop, authorizations and charge detail records
// to the owning operator first and then along priority-ordered provider
// chains, tracking which backend owns every reservation and session.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/roamnet/core/events"
	"github.com/kilianp07/roamnet/core/ledger"
	"github.com/kilianp07/roamnet/core/logger"
	"github.com/kilianp07/roamnet/core/model"
	"github.com/kilianp07/roamnet/core/monitoring"
	"github.com/kilianp07/roamnet/core/notify"
	"github.com/kilianp07/roamnet/core/registry"
	"github.com/kilianp07/roamnet/core/topology"
	"github.com/kilianp07/roamnet/internal/eventbus"
)

const (
	// DefaultTimeout bounds a single backend invocation when neither the
	// request nor the options specify one.
	DefaultTimeout = 5 * time.Second
	// DefaultCDRQueueSize is the capacity of the CDR queue.
	DefaultCDRQueueSize = 256
	// DefaultCDRWorkers is the number of goroutines draining the CDR queue.
	DefaultCDRWorkers = 2
)

// CDRFilter may short-circuit distribution of a charge detail record by
// returning a verdict and true.
type CDRFilter func(ctx context.Context, cdr model.ChargeDetailRecord) (model.SendCDRResult, bool)

// Options configure a RoamingNetwork. Zero values select defaults.
type Options struct {
	Logger              logger.Logger
	Bus                 eventbus.EventBus
	Reservations        *ledger.Reservations
	Sessions            *ledger.Sessions
	CDRs                ledger.CDRStore
	Topology            *topology.Network
	DefaultTimeout      time.Duration
	ReservationDuration time.Duration
	CDRFilter           CDRFilter
	CDRQueueSize        int
	CDRWorkers          int
	Clock               func() time.Time
}

// RoamingNetwork is the dispatcher. Its methods are safe for concurrent
// use; fallback chains inside one call run sequentially.
type RoamingNetwork struct {
	id       model.NetworkID
	registry *ProviderRegistry
	log      logger.Logger
	bus      eventbus.EventBus

	reservations *ledger.Reservations
	sessions     *ledger.Sessions
	cdrs         ledger.CDRStore
	topo         *topology.Network

	timeout     time.Duration
	resDuration time.Duration
	cdrFilter   CDRFilter
	clock       func() time.Time

	ops       *notify.Observers[events.OperationEvent]
	dataSyncs registry.Map[string, DataSync]

	cdrQueue   chan model.ChargeDetailRecord
	cdrWorkers int
}

// New returns a dispatcher for network id backed by reg.
func New(id model.NetworkID, reg *ProviderRegistry, opts Options) *RoamingNetwork {
	if reg == nil {
		reg = NewProviderRegistry(registry.PolicyReject)
	}
	log := logger.OrNop(opts.Logger)
	n := &RoamingNetwork{
		id:           id,
		registry:     reg,
		log:          log,
		bus:          opts.Bus,
		reservations: opts.Reservations,
		sessions:     opts.Sessions,
		cdrs:         opts.CDRs,
		topo:         opts.Topology,
		timeout:      opts.DefaultTimeout,
		resDuration:  opts.ReservationDuration,
		cdrFilter:    opts.CDRFilter,
		clock:        opts.Clock,
		ops:          notify.NewObservers[events.OperationEvent]("dispatch."+string(id), log),
		cdrWorkers:   opts.CDRWorkers,
	}
	if n.reservations == nil {
		n.reservations = ledger.NewReservations()
	}
	if n.sessions == nil {
		n.sessions = ledger.NewSessions()
	}
	if n.cdrs == nil {
		n.cdrs = ledger.NewMemoryCDRStore()
	}
	if n.timeout <= 0 {
		n.timeout = DefaultTimeout
	}
	if n.resDuration <= 0 {
		n.resDuration = model.DefaultReservationDuration
	}
	if n.clock == nil {
		n.clock = time.Now
	}
	if n.cdrWorkers <= 0 {
		n.cdrWorkers = DefaultCDRWorkers
	}
	size := opts.CDRQueueSize
	if size <= 0 {
		size = DefaultCDRQueueSize
	}
	n.cdrQueue = make(chan model.ChargeDetailRecord, size)

	resize := func(name string, size int64) { ledgerEntries.WithLabelValues(name).Set(float64(size)) }
	n.reservations.OnResize(resize)
	n.sessions.OnResize(resize)
	if n.topo != nil {
		n.attachTopology(n.topo)
	}
	return n
}

// ID returns the network id.
func (n *RoamingNetwork) ID() model.NetworkID { return n.id }

// Registry returns the provider registry.
func (n *RoamingNetwork) Registry() *ProviderRegistry { return n.registry }

// Reservations returns the reservation ledger.
func (n *RoamingNetwork) Reservations() *ledger.Reservations { return n.reservations }

// Sessions returns the session ledger.
func (n *RoamingNetwork) Sessions() *ledger.Sessions { return n.sessions }

// CDRs returns the charge detail record store.
func (n *RoamingNetwork) CDRs() ledger.CDRStore { return n.cdrs }

// OnOperation registers an observer receiving a pre and a post event for
// every operation. A panicking observer is logged and reported; the
// operation continues.
func (n *RoamingNetwork) OnOperation(name string, fn func(events.OperationEvent)) (remove func()) {
	return n.ops.Add(name, fn)
}

func (n *RoamingNetwork) publish(e eventbus.Event) {
	if n.bus != nil {
		n.bus.Publish(e)
	}
}

// call tracks one public operation from its pre event to its post event.
type call struct {
	n     *RoamingNetwork
	ev    events.OperationEvent
	start time.Time
}

func (n *RoamingNetwork) begin(op events.Operation, ev events.OperationEvent) *call {
	ev.CallID = uuid.NewString()
	ev.Network = n.id
	ev.Operation = op
	ev.Phase = events.PhasePre
	ev.Time = n.clock()
	c := &call{n: n, ev: ev, start: time.Now()}
	c.emit()
	return c
}

func (c *call) emit() {
	if failed := c.n.ops.Emit(c.ev); failed > 0 {
		observerFailures.WithLabelValues("operation").Add(float64(failed))
	}
	c.n.publish(c.ev)
}

// attempt invokes one backend of the chain and returns its normalized
// result. A returned error or a deadline is turned into a result code.
func attempt[R any, P resultPtr[R]](ctx context.Context, c *call, kind string, timeout time.Duration, fn func(context.Context) (R, error)) R {
	if timeout <= 0 {
		timeout = c.n.timeout
	}
	c.ev.Attempts++
	res := invoke[R, P](ctx, timeout, fn)
	backendCalls.WithLabelValues(string(c.ev.Operation), kind, P(&res).Result().Code.String()).Inc()
	return res
}

// finish stamps the runtime on o, emits the post event and records metrics.
func (c *call) finish(o model.Outcome, by model.Owner) model.Outcome {
	o.Runtime = time.Since(c.start)
	c.ev.Phase = events.PhasePost
	c.ev.Time = c.n.clock()
	c.ev.Elapsed = o.Runtime
	c.ev.Outcome = o
	c.ev.AnsweredBy = by
	operationsTotal.WithLabelValues(string(c.ev.Operation), o.Code.String()).Inc()
	operationLatency.WithLabelValues(string(c.ev.Operation)).Observe(o.Runtime.Seconds())
	c.emit()
	c.n.log.Debugw("dispatch operation", map[string]any{
		"operation": string(c.ev.Operation),
		"call_id":   c.ev.CallID,
		"result":    o.Code.String(),
		"attempts":  c.ev.Attempts,
		"elapsed":   o.Runtime.String(),
	})
	return o
}

type resultPtr[R any] interface {
	*R
	Result() model.Outcome
	SetOutcome(model.Outcome)
}

func invoke[R any, P resultPtr[R]](ctx context.Context, timeout time.Duration, fn func(context.Context) (R, error)) (res R) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err := monitoring.CapturePanic(r, map[string]string{"scope": "dispatch.backend"})
			var zero R
			res = zero
			P(&res).SetOutcome(model.Outcome{Code: model.ResultError, Message: err.Error()})
		}
	}()
	res, err := fn(cctx)
	switch {
	case err != nil:
		var zero R
		res = zero
		P(&res).SetOutcome(failure(err))
	case P(&res).Result().Code == model.ResultUnspecified:
		P(&res).SetOutcome(model.Outcome{Code: model.ResultError, Message: "backend returned no result code"})
	}
	return res
}

func failure(err error) model.Outcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return model.Outcome{Code: model.ResultCommunicationTimeout, Message: err.Error()}
	}
	return model.Outcome{Code: model.ResultError, Message: err.Error()}
}

// aborted reports the outcome of a call whose context ended between two
// fallback attempts.
func aborted(ctx context.Context) (model.Outcome, bool) {
	if err := ctx.Err(); err != nil {
		return failure(fmt.Errorf("dispatch aborted: %w", err)), true
	}
	return model.Outcome{}, false
}

const (
	kindOperator      = "operator"
	kindRoaming       = "roaming_provider"
	kindAuthenticator = "authentication_provider"
	kindEMobility     = "emobility_provider"
)

func ownerKind(o model.Owner) string {
	switch o.Kind {
	case model.OwnerOperator:
		return kindOperator
	case model.OwnerRoamingProvider:
		return kindRoaming
	case model.OwnerAuthenticationProvider:
		return kindAuthenticator
	case model.OwnerEMobilityProvider:
		return kindEMobility
	}
	return "unknown"
}
