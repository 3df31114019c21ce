package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/roamnet/core/metrics"
	"github.com/kilianp07/roamnet/infra/logger"
)

// InfluxSink writes dispatcher records to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// InfluxConfig holds the connection settings of an InfluxSink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the client resources.
func (s *InfluxSink) Close() { s.client.Close() }

// RecordOperation writes one dispatch_operation point.
func (s *InfluxSink) RecordOperation(r coremetrics.OperationRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("dispatch_operation").
		AddTag("network", string(r.Network)).
		AddTag("operation", r.Operation).
		AddTag("result", r.Result.String())
	if r.Operator != "" {
		p.AddTag("operator_id", string(r.Operator))
	}
	if r.AnsweredBy.ID != "" {
		p.AddTag("answered_by", r.AnsweredBy.String())
	}
	p.AddField("attempts", r.Attempts).
		AddField("elapsed_ms", round3(float64(r.Elapsed)/float64(time.Millisecond))).
		SetTime(r.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordStatusChange writes one status_change point.
func (s *InfluxSink) RecordStatusChange(r coremetrics.StatusRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("status_change").
		AddTag("network", string(r.Network)).
		AddTag("entity", r.Entity.String()).
		AddTag("tier", r.Entity.Tier.String()).
		AddTag("kind", string(r.Kind)).
		AddField("old", r.Old).
		AddField("new", r.New).
		SetTime(r.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordCDR writes one charge_detail_record point.
func (s *InfluxSink) RecordCDR(r coremetrics.CDRRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("charge_detail_record").
		AddTag("network", string(r.Network)).
		AddTag("provider_id", string(r.CDR.ProviderID)).
		AddTag("result", r.Result.String()).
		AddTag("queued", strconv.FormatBool(r.Queued)).
		AddField("session_id", string(r.CDR.SessionID)).
		AddField("energy_kwh", round3(r.CDR.EnergyKWh)).
		AddField("failed", r.Failed).
		SetTime(r.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordQueueDepth writes the pending CDR count.
func (s *InfluxSink) RecordQueueDepth(depth int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("cdr_queue").
		AddField("depth", depth).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
