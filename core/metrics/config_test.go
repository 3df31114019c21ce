package metrics_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/roamnet/core/factory"
	metrics "github.com/kilianp07/roamnet/core/metrics"
	_ "github.com/kilianp07/roamnet/infra/metrics"
)

func TestNewMetricsSink(t *testing.T) {
	s, err := metrics.NewMetricsSink(nil)
	require.NoError(t, err)
	assert.IsType(t, metrics.NopSink{}, s, "no sink configured")

	s, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}})
	require.NoError(t, err)
	assert.IsType(t, metrics.NopSink{}, s)

	s, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "nop"}})
	require.NoError(t, err)
	m, ok := s.(*metrics.MultiSink)
	require.True(t, ok, "expected MultiSink, got %T", s)
	assert.Len(t, m.Sinks, 2)

	_, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "graphite"}})
	assert.Error(t, err)
}

func TestMetricsSinkTypes(t *testing.T) {
	types := metrics.MetricsSinkTypes()
	for _, want := range []string{"nop", "prometheus", "energy", "influx"} {
		assert.Contains(t, types, want)
	}
}

func TestConfigDecode(t *testing.T) {
	data := `sinks:
  - type: nop
  - type: influx
    conf:
      url: http://influx:8086
prometheus_addr: ":9100"
`
	var cfg metrics.Config
	require.NoError(t, yaml.Unmarshal([]byte(data), &cfg))
	require.Len(t, cfg.Sinks, 2)
	assert.Equal(t, "influx", cfg.Sinks[1].Type)
	assert.Equal(t, ":9100", cfg.PrometheusAddr)

	cfg.SetDefaults()
	assert.Equal(t, metrics.DefaultQueuePoll, cfg.QueuePoll())
	require.NoError(t, cfg.Validate())

	var bad metrics.Config
	require.NoError(t, json.Unmarshal([]byte(`{"sinks":[{"type":""}],"queue_poll_ms":250}`), &bad))
	assert.Error(t, bad.Validate())
	bad.Sinks = nil
	assert.NoError(t, bad.Validate())
	assert.Equal(t, 250*time.Millisecond, bad.QueuePoll())
	bad.QueuePollMS = -1
	assert.Error(t, bad.Validate())
}
