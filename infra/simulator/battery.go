package simulator

import (
	"sync"
	"time"
)

// Battery models a vehicle battery plugged into a simulated EVSE.
type Battery struct {
	CapacityKWh  float64 // total capacity
	Soc          float64 // state of charge [0,1]
	ChargeRateKW float64 // maximum charging power
	mu           sync.Mutex
}

// Charge draws up to powerKW for dt, limited by the charge rate and the
// remaining capacity, and returns the energy delivered in kWh.
func (b *Battery) Charge(powerKW float64, dt time.Duration) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	hours := dt.Hours()
	if hours <= 0 || powerKW <= 0 || b.CapacityKWh <= 0 {
		return 0
	}
	p := powerKW
	if b.ChargeRateKW > 0 && p > b.ChargeRateKW {
		p = b.ChargeRateKW
	}
	avail := (1 - b.Soc) * b.CapacityKWh
	energy := p * hours
	if energy > avail {
		energy = avail
	}
	b.Soc += energy / b.CapacityKWh
	if b.Soc > 1 {
		b.Soc = 1
	}
	return energy
}

// SoC returns the current state of charge.
func (b *Battery) SoC() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Soc
}
