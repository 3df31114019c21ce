package metrics

import (
	coremetrics "github.com/kilianp07/roamnet/core/metrics"
	"github.com/kilianp07/roamnet/core/metrics/energy"
	"github.com/kilianp07/roamnet/core/model"
	"github.com/prometheus/client_golang/prometheus"
)

// EnergySink aggregates settled energy per provider and day from
// successfully forwarded charge detail records.
type EnergySink struct {
	store    energy.Store
	daily    *prometheus.GaugeVec
	sessions *prometheus.GaugeVec
}

// NewEnergySink creates a sink with Prometheus gauges registered on reg.
func NewEnergySink(store energy.Store, reg prometheus.Registerer) (*EnergySink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if store == nil {
		store = energy.NewMemoryStore()
	}
	daily := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "roamnet_provider_daily_energy_kwh",
		Help: "Energy settled per e-mobility provider and day",
	}, []string{"provider_id", "day"})
	sessions := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "roamnet_provider_daily_sessions",
		Help: "Settled sessions per e-mobility provider and day",
	}, []string{"provider_id", "day"})
	var err error
	if daily, err = register(reg, daily); err != nil {
		return nil, err
	}
	if sessions, err = register(reg, sessions); err != nil {
		return nil, err
	}
	return &EnergySink{store: store, daily: daily, sessions: sessions}, nil
}

// RecordOperation is a no-op; only CDRs carry energy.
func (s *EnergySink) RecordOperation(coremetrics.OperationRecord) error { return nil }

// RecordCDR adds a forwarded record to its provider's daily aggregate.
func (s *EnergySink) RecordCDR(r coremetrics.CDRRecord) error {
	if r.Failed || r.Result != model.ResultSuccess {
		return nil
	}
	rec := energy.FromCDR(r.CDR)
	if rec.Date.IsZero() {
		rec.Date = r.Time
	}
	if err := s.store.Add(rec); err != nil {
		return err
	}
	recs, err := s.store.Query(rec.ProviderID, rec.Date, rec.Date)
	if err != nil || len(recs) == 0 {
		return err
	}
	day := energy.Day(rec.Date).Format("2006-01-02")
	s.daily.WithLabelValues(string(rec.ProviderID), day).Set(recs[0].EnergyKWh)
	s.sessions.WithLabelValues(string(rec.ProviderID), day).Set(float64(recs[0].Sessions))
	return nil
}
