package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/roamnet/core/metrics"
	"github.com/kilianp07/roamnet/core/model"
)

func TestNewMux_ExposesMetricsAndRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	require.NoError(t, sink.RecordStatusChange(coremetrics.StatusRecord{
		Entity: model.Pool("DE*GEF", "1"), Kind: coremetrics.KindStatus, New: "available",
	}))

	extra := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })
	srv := httptest.NewServer(NewMux(reg, map[string]http.Handler{"/extra": extra}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(body), "roamnet_status_transitions_total") {
		t.Errorf("metrics output missing counter: %s", body)
	}

	resp, err = http.Get(srv.URL + "/extra")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if string(body) != "ok" {
		t.Errorf("extra route body = %q", body)
	}
}
