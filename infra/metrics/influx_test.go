package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/roamnet/core/metrics"
	"github.com/kilianp07/roamnet/core/model"
)

type lineServer struct {
	*httptest.Server
	mu     sync.Mutex
	bodies []string
}

func newLineServer(t *testing.T) *lineServer {
	t.Helper()
	ls := &lineServer{}
	ls.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		ls.mu.Lock()
		ls.bodies = append(ls.bodies, strings.TrimSpace(string(data)))
		ls.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(ls.Close)
	return ls
}

func (ls *lineServer) lines() []string {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return append([]string(nil), ls.bodies...)
}

func line(p *write.Point) string {
	return strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
}

func TestInfluxSink_RecordOperation(t *testing.T) {
	srv := newLineServer(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Now()
	rec := coremetrics.OperationRecord{
		Network:    "net",
		Operation:  "reserve",
		Operator:   "DE*GEF",
		Result:     model.ResultSuccess,
		AnsweredBy: model.OperatorOwner("DE*GEF"),
		Attempts:   2,
		Elapsed:    1500 * time.Microsecond,
		Time:       now,
	}
	if err := sink.RecordOperation(rec); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("dispatch_operation").
		AddTag("network", "net").
		AddTag("operation", "reserve").
		AddTag("result", "success").
		AddTag("operator_id", "DE*GEF").
		AddTag("answered_by", "operator:DE*GEF").
		AddField("attempts", 2).
		AddField("elapsed_ms", 1.5).
		SetTime(now)
	if got := srv.lines(); len(got) != 1 || got[0] != line(p) {
		t.Errorf("unexpected body: %#v", got)
	}
}

func TestInfluxSink_RecordStatusChange(t *testing.T) {
	srv := newLineServer(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL + "/api/v2/write", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Now()
	evse := model.EVSE("DE*GEF", "1")
	rec := coremetrics.StatusRecord{
		Network: "net", Entity: evse, Kind: coremetrics.KindStatus,
		Old: "available", New: "charging", Time: now,
	}
	if err := sink.RecordStatusChange(rec); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("status_change").
		AddTag("network", "net").
		AddTag("entity", evse.String()).
		AddTag("tier", evse.Tier.String()).
		AddTag("kind", "status").
		AddField("old", "available").
		AddField("new", "charging").
		SetTime(now)
	if got := srv.lines(); len(got) != 1 || got[0] != line(p) {
		t.Errorf("unexpected body: %#v", got)
	}
}

func TestInfluxSink_RecordCDR(t *testing.T) {
	srv := newLineServer(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Now()
	rec := coremetrics.CDRRecord{
		Network: "net",
		CDR:     model.ChargeDetailRecord{SessionID: "s1", ProviderID: "DE*EMP", EnergyKWh: 12.3456},
		Result:  model.ResultSuccess,
		Queued:  true,
		Time:    now,
	}
	if err := sink.RecordCDR(rec); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("charge_detail_record").
		AddTag("network", "net").
		AddTag("provider_id", "DE*EMP").
		AddTag("result", "success").
		AddTag("queued", "true").
		AddField("session_id", "s1").
		AddField("energy_kwh", 12.346).
		AddField("failed", false).
		SetTime(now)
	if got := srv.lines(); len(got) != 1 || got[0] != line(p) {
		t.Errorf("unexpected body: %#v", got)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	var mu sync.Mutex
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			mu.Lock()
			called = true
			mu.Unlock()
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{
		URL:    srv.URL + "/api/v2/write",
		Token:  "tok",
		Org:    "org",
		Bucket: "bucket",
	})
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	mu.Lock()
	defer mu.Unlock()
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
