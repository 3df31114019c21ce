package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kilianp07/roamnet/core/registry"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

//nolint:gocyclo
func TestLoad(t *testing.T) {
	path := writeConfig(t, "config.yaml", `network:
  id: "hubject-test"
  history_size: 20
dispatch:
  default_timeout_ms: 2500
  duplicate_priority: shift
  cdr_workers: 4
metrics:
  prometheus_addr: ":9100"
  sinks:
    - type: "nop"
audit:
  backend: sqlite
  path: audit.db
cdr_store:
  type: redis
  conf:
    addr: "localhost:6379"
    ttl_seconds: 3600
mqtt:
  enabled: true
  broker: "tcp://localhost:1883"
  client_id: "cli"
  username: "user"
  qos: 1
sentry:
  dsn: ""
backends:
  operators:
    - type: simulator
      conf:
        operator_id: "DE*GEF"
  authenticators:
    - type: static
      priority: 5
      conf:
        id: local
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"network.id", cfg.Network.ID, "hubject-test"},
		{"history_size", cfg.Network.HistorySize, 20},
		{"timeout", cfg.Dispatch.DefaultTimeout(), 2500 * time.Millisecond},
		{"policy", cfg.Dispatch.Policy(), registry.PolicyShift},
		{"cdr_workers", cfg.Dispatch.CDRWorkers, 4},
		{"cdr_queue_size default", cfg.Dispatch.CDRQueueSize, 256},
		{"reservation default", cfg.Dispatch.ReservationDuration(), 15 * time.Minute},
		{"prometheus_addr", cfg.Metrics.PrometheusAddr, ":9100"},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"audit.backend", cfg.Audit.Store().Backend, "sqlite"},
		{"audit.buffer default", cfg.Audit.Buffer, 1024},
		{"cdr_store", cfg.CDRStore.Type, "redis"},
		{"cdr_store.addr", cfg.CDRStore.Conf["addr"], "localhost:6379"},
		{"mqtt.client_id", cfg.MQTT.ClientID, "cli"},
		{"mqtt.qos", cfg.MQTT.QoS, byte(1)},
		{"mqtt.topic_prefix default", cfg.MQTT.TopicPrefix, "roamnet"},
		{"backends.operators", len(cfg.Backends.Operators), 1},
		{"backends.operator_id", cfg.Backends.Operators[0].Conf["operator_id"], "DE*GEF"},
		{"backends.auth_priority", cfg.Backends.Authenticators[0].Priority, uint32(5)},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: got %v want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoadDefaultsJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{"network": {}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Network.ID != "roamnet" || cfg.CDRStore.Type != "memory" || cfg.Audit.Backend != "jsonl" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Dispatch.Policy() != registry.PolicyReject {
		t.Fatalf("default policy = %v", cfg.Dispatch.Policy())
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "config.yaml", "dispatch:\n  cdr_workers: 1\n")
	t.Setenv("K_DISPATCH__CDR_WORKERS", "7")
	t.Setenv("K_METRICS__PROMETHEUS_ADDR", ":9300")
	t.Setenv("K_NETWORK__ID", "eu-hub")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Dispatch.CDRWorkers != 7 {
		t.Fatalf("env override not applied: %d", cfg.Dispatch.CDRWorkers)
	}
	if cfg.Metrics.PrometheusAddr != ":9300" {
		t.Fatalf("nested override with underscores not applied: %q", cfg.Metrics.PrometheusAddr)
	}
	if cfg.Network.ID != "eu-hub" {
		t.Fatalf("network id override not applied: %q", cfg.Network.ID)
	}
}

func TestLoadInvalid(t *testing.T) {
	cases := map[string]string{
		"policy":  "dispatch:\n  duplicate_priority: random\n",
		"audit":   "audit:\n  backend: postgres\n",
		"metrics": "metrics:\n  sinks:\n    - conf: {}\n",
		"mqtt":    "mqtt:\n  enabled: true\n  qos: 5\n",
		"backend": "backends:\n  operators:\n    - conf: {}\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, "config.yaml", data)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
	if _, err := Load(writeConfig(t, "config.toml", "")); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}
