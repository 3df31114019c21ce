package energy

import (
	"testing"
	"time"

	"github.com/kilianp07/roamnet/core/model"
)

func TestMemoryStore_AggregatesPerDay(t *testing.T) {
	s := NewMemoryStore()
	day := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	_ = s.Add(Record{ProviderID: "DE*EMP", Date: day, EnergyKWh: 10, Sessions: 1})
	_ = s.Add(Record{ProviderID: "DE*EMP", Date: day.Add(3 * time.Hour), EnergyKWh: 5, Sessions: 1})
	_ = s.Add(Record{ProviderID: "DE*EMP", Date: day.Add(24 * time.Hour), EnergyKWh: 7, Sessions: 1})
	_ = s.Add(Record{ProviderID: "NL*OTH", Date: day, EnergyKWh: 99, Sessions: 1})

	recs, err := s.Query("DE*EMP", day, day)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].EnergyKWh != 15 || recs[0].Sessions != 2 {
		t.Fatalf("unexpected aggregate %+v", recs[0])
	}
	if recs[0].AverageKWh() != 7.5 {
		t.Fatalf("average = %v", recs[0].AverageKWh())
	}

	recs, _ = s.Query("DE*EMP", day, day.Add(48*time.Hour))
	if len(recs) != 2 || !recs[0].Date.Before(recs[1].Date) {
		t.Fatalf("expected two ordered records, got %+v", recs)
	}
}

func TestFromCDR_UsesEndThenStart(t *testing.T) {
	start := time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	r := FromCDR(model.ChargeDetailRecord{ProviderID: "DE*EMP", Start: start, End: end, EnergyKWh: 3})
	if !Day(r.Date).Equal(Day(end)) || r.Sessions != 1 {
		t.Fatalf("unexpected record %+v", r)
	}
	r = FromCDR(model.ChargeDetailRecord{Start: start})
	if !r.Date.Equal(start) {
		t.Fatalf("expected start fallback, got %v", r.Date)
	}
	if (Record{}).AverageKWh() != 0 {
		t.Fatalf("empty average should be zero")
	}
}
