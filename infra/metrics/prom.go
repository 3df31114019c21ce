package metrics

import (
	"strconv"

	coremetrics "github.com/kilianp07/roamnet/core/metrics"
	"github.com/kilianp07/roamnet/core/model"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records sink-level views of dispatcher activity in Prometheus.
// Per-call counters live in core/dispatch; this sink adds fallback depth,
// status transitions and settled energy.
type PromSink struct {
	attempts *prometheus.HistogramVec
	status   *prometheus.CounterVec
	cdrs     *prometheus.CounterVec
	energy   *prometheus.CounterVec
}

// NewPromSink registers the sink metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by another PromSink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	attempts := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "roamnet_operation_attempts",
		Help:    "Backends asked per dispatcher call before a terminal answer",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
	}, []string{"operation", "answered_by"})
	status := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roamnet_status_transitions_total",
		Help: "Recorded status transitions by tier and new value",
	}, []string{"kind", "tier", "status"})
	cdrs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roamnet_cdr_forwarded_total",
		Help: "Charge detail records by forwarding result",
	}, []string{"result", "queued"})
	energy := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roamnet_cdr_energy_kwh_total",
		Help: "Energy settled through forwarded charge detail records",
	}, []string{"provider_id"})

	var err error
	if attempts, err = register(reg, attempts); err != nil {
		return nil, err
	}
	if status, err = register(reg, status); err != nil {
		return nil, err
	}
	if cdrs, err = register(reg, cdrs); err != nil {
		return nil, err
	}
	if energy, err = register(reg, energy); err != nil {
		return nil, err
	}
	return &PromSink{attempts: attempts, status: status, cdrs: cdrs, energy: energy}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordOperation observes the fallback depth of the call.
func (s *PromSink) RecordOperation(r coremetrics.OperationRecord) error {
	by := r.AnsweredBy.Kind.String()
	if r.AnsweredBy.ID == "" {
		by = "none"
	}
	s.attempts.WithLabelValues(r.Operation, by).Observe(float64(r.Attempts))
	return nil
}

// RecordStatusChange counts the transition.
func (s *PromSink) RecordStatusChange(r coremetrics.StatusRecord) error {
	s.status.WithLabelValues(string(r.Kind), r.Entity.Tier.String(), r.New).Inc()
	return nil
}

// RecordCDR counts the record and, once forwarded, its energy.
func (s *PromSink) RecordCDR(r coremetrics.CDRRecord) error {
	result := r.Result.String()
	if r.Failed {
		result = "failed"
	}
	s.cdrs.WithLabelValues(result, strconv.FormatBool(r.Queued)).Inc()
	if !r.Failed && r.Result == model.ResultSuccess && r.CDR.EnergyKWh > 0 {
		s.energy.WithLabelValues(string(r.CDR.ProviderID)).Add(r.CDR.EnergyKWh)
	}
	return nil
}
