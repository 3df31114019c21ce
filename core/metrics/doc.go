// Package metrics defines the sinks that record dispatcher activity:
// operation outcomes, status transitions and charge detail records.
// Sinks such as the Prometheus and InfluxDB implementations in
// infra/metrics are created from configuration through NewMetricsSink,
// which wraps several configured sinks in a MultiSink.
package metrics
