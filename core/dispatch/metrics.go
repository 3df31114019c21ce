package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	operationsTotal   *prometheus.CounterVec
	operationLatency  *prometheus.HistogramVec
	backendCalls      *prometheus.CounterVec
	ledgerEntries     *prometheus.GaugeVec
	cdrQueueDepth     prometheus.Gauge
	cdrQueueRejected  prometheus.Counter
	cdrSessionsClosed prometheus.Counter
	observerFailures  *prometheus.CounterVec
	pushFailures      *prometheus.CounterVec
)

type collectors struct {
	ops      *prometheus.CounterVec
	lat      *prometheus.HistogramVec
	calls    *prometheus.CounterVec
	ledger   *prometheus.GaugeVec
	depth    prometheus.Gauge
	rejected prometheus.Counter
	closed   prometheus.Counter
	observer *prometheus.CounterVec
	push     *prometheus.CounterVec
}

// newCollectors creates new metric collectors.
func newCollectors() collectors {
	return collectors{
		ops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roamnet_dispatch_operations_total",
				Help: "Dispatcher operations by final result code",
			},
			[]string{"operation", "result"},
		),
		lat: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "roamnet_dispatch_operation_duration_seconds",
				Help:    "Wall time of dispatcher operations including every fallback attempt",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roamnet_dispatch_backend_calls_total",
				Help: "Backend invocations made by fallback chains",
			},
			[]string{"operation", "backend", "result"},
		),
		ledger: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "roamnet_ledger_entries",
				Help: "Reservations and sessions currently tracked",
			},
			[]string{"ledger"},
		),
		depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roamnet_cdr_queue_depth",
			Help: "Charge detail records waiting for distribution",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roamnet_cdr_queue_rejected_total",
			Help: "Charge detail records refused because the queue was full",
		}),
		closed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roamnet_cdr_sessions_cleared_total",
			Help: "EVSE session markers cleared by incoming charge detail records",
		}),
		observer: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roamnet_observer_failures_total",
				Help: "Observer callbacks that panicked",
			},
			[]string{"scope"},
		),
		push: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roamnet_status_push_failures_total",
				Help: "Failed status or topology pushes per data sync target",
			},
			[]string{"target"},
		),
	}
}

func (c collectors) install() {
	operationsTotal, operationLatency, backendCalls = c.ops, c.lat, c.calls
	ledgerEntries, cdrQueueDepth, cdrQueueRejected = c.ledger, c.depth, c.rejected
	cdrSessionsClosed, observerFailures, pushFailures = c.closed, c.observer, c.push
}

func init() {
	newCollectors().install()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(operationsTotal, operationLatency, backendCalls, ledgerEntries,
		cdrQueueDepth, cdrQueueRejected, cdrSessionsClosed, observerFailures, pushFailures)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	newCollectors().install()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
