package simulator

import (
	"testing"
	"time"
)

func TestBatteryChargeLimits(t *testing.T) {
	b := &Battery{CapacityKWh: 10, Soc: 0.5, ChargeRateKW: 4}
	if e := b.Charge(10, time.Hour); e != 4 {
		t.Fatalf("expected rate-limited 4 kWh, got %v", e)
	}
	if soc := b.SoC(); soc < 0.899 || soc > 0.901 {
		t.Fatalf("unexpected soc %v", soc)
	}
	if e := b.Charge(4, time.Hour); e < 0.999 || e > 1.001 {
		t.Fatalf("expected capacity-limited 1 kWh, got %v", e)
	}
	if e := b.Charge(4, time.Hour); e != 0 {
		t.Fatalf("full battery accepted %v kWh", e)
	}
	if e := b.Charge(4, 0); e != 0 {
		t.Fatalf("zero duration delivered %v", e)
	}
}
