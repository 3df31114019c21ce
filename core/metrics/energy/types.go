// Package energy aggregates delivered energy per e-mobility provider and
// day from forwarded charge detail records.
package energy

import (
	"time"

	"github.com/kilianp07/roamnet/core/model"
)

// Record aggregates the energy settled for a provider on one day.
type Record struct {
	ProviderID model.ProviderID
	Date       time.Time
	EnergyKWh  float64
	Sessions   int
}

// AverageKWh returns the mean energy per session.
func (r Record) AverageKWh() float64 {
	if r.Sessions == 0 {
		return 0
	}
	return r.EnergyKWh / float64(r.Sessions)
}

// FromCDR converts a charge detail record into a single-session record
// dated by the end of charging.
func FromCDR(cdr model.ChargeDetailRecord) Record {
	d := cdr.End
	if d.IsZero() {
		d = cdr.Start
	}
	return Record{ProviderID: cdr.ProviderID, Date: d, EnergyKWh: cdr.EnergyKWh, Sessions: 1}
}
