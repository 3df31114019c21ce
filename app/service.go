// Package app wires the roaming network: topology, ledgers, backends,
// metrics, audit log and the MQTT data sync.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/kilianp07/roamnet/api/audit"
	"github.com/kilianp07/roamnet/app/plugins"
	"github.com/kilianp07/roamnet/config"
	"github.com/kilianp07/roamnet/core/dispatch"
	"github.com/kilianp07/roamnet/core/dispatch/auditlog"
	"github.com/kilianp07/roamnet/core/ledger"
	coremetrics "github.com/kilianp07/roamnet/core/metrics"
	"github.com/kilianp07/roamnet/core/model"
	coremon "github.com/kilianp07/roamnet/core/monitoring"
	"github.com/kilianp07/roamnet/core/topology"
	"github.com/kilianp07/roamnet/infra/logger"
	"github.com/kilianp07/roamnet/infra/metrics"
	"github.com/kilianp07/roamnet/infra/monitoring"
	"github.com/kilianp07/roamnet/infra/mqtt"
	_ "github.com/kilianp07/roamnet/infra/redis"
	"github.com/kilianp07/roamnet/internal/eventbus"
)

// Service owns every long-lived component of one roaming network.
type Service struct {
	Topology *topology.Network
	Registry *dispatch.ProviderRegistry
	Network  *dispatch.RoamingNetwork

	cfg         *config.Config
	bus         *eventbus.Bus
	cdrs        ledger.CDRStore
	sink        coremetrics.MetricsSink
	audit       auditlog.Store
	recorder    *auditlog.Recorder
	removeAudit func()
	exporter    *mqtt.Exporter
	log         logger.Logger

	closeOnce sync.Once
}

// New builds a Service from the configuration. The topology file, when
// configured, is applied last so that its statuses and memberships reach
// every data sync.
func New(cfg *config.Config) (*Service, error) {
	log := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	s := &Service{cfg: cfg, bus: eventbus.New(), log: log}
	id := model.NetworkID(cfg.Network.ID)
	s.Topology = topology.New(id, topology.Options{
		HistorySize: cfg.Network.HistorySize,
		Logger:      logger.New("topology"),
	})

	s.cdrs, err = ledger.NewCDRStore(cfg.CDRStore)
	if err != nil {
		return nil, fmt.Errorf("cdr store: %w", err)
	}

	s.Registry = dispatch.NewProviderRegistry(cfg.Dispatch.Policy())
	s.Network = dispatch.New(id, s.Registry, dispatch.Options{
		Logger:              logger.New("dispatch"),
		Bus:                 s.bus,
		CDRs:                s.cdrs,
		Topology:            s.Topology,
		DefaultTimeout:      cfg.Dispatch.DefaultTimeout(),
		ReservationDuration: cfg.Dispatch.ReservationDuration(),
		CDRQueueSize:        cfg.Dispatch.CDRQueueSize,
		CDRWorkers:          cfg.Dispatch.CDRWorkers,
	})
	if err := plugins.Build(cfg.Backends, plugins.Deps{Topology: s.Topology, Logger: logger.New}, s.Registry); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("backends: %w", err)
	}

	s.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	s.audit, err = auditlog.Open(cfg.Audit.Store())
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("audit log: %w", err)
	}
	if s.audit != nil {
		s.recorder = auditlog.NewRecorder(s.audit, cfg.Audit.Buffer, logger.New("audit"))
		s.removeAudit = s.Network.OnOperation("audit", s.recorder.Observe)
	}

	if cfg.MQTT.Enabled {
		s.exporter, err = mqtt.NewExporter(cfg.MQTT, logger.New("mqtt"), s.reportStatus)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("mqtt: %w", err)
		}
		if err := s.Network.AddDataSync("mqtt", s.exporter); err != nil {
			_ = s.Close()
			return nil, err
		}
	}

	if cfg.Network.TopologyFile != "" {
		seed, err := topology.LoadSeedFile(cfg.Network.TopologyFile)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("topology: %w", err)
		}
		if err := seed.Apply(s.Topology, time.Now()); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("topology: %w", err)
		}
		log.Infof("topology seeded with %d entities from %s", seed.Len(), cfg.Network.TopologyFile)
	}
	return s, nil
}

// reportStatus applies a status published by a field device.
func (s *Service) reportStatus(ref model.EntityRef, st model.Status) error {
	_, err := s.Topology.SetStatus(ref, st, time.Now())
	return err
}

// Routes returns the HTTP handlers served next to /metrics.
func (s *Service) Routes() map[string]http.Handler {
	routes := map[string]http.Handler{}
	if s.audit != nil {
		routes[audit.Path] = audit.NewHandler(s.audit, s.cfg.Audit.Token)
	}
	return routes
}

// Run starts the background workers and blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	collected := metrics.StartEventCollector(ctx, s.bus, s.sink, logger.New("metrics"))
	metrics.StartQueueDepthPoller(ctx, s.cfg.Metrics.QueuePoll(), s.Network.QueuedChargeDetailRecords, s.sink)

	var wg sync.WaitGroup
	if s.recorder != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.recorder.Run(ctx)
		}()
	}
	if s.exporter != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.exporter.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.log.Errorf("mqtt exporter: %v", err)
			}
		}()
	}
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metrics.StartPromServer(ctx, addr, s.Routes(), logger.New("prometheus")); err != nil {
				s.log.Errorf("prom server: %v", err)
				coremon.CaptureException(err, map[string]string{"module": "prometheus"})
			}
		}()
	}

	s.log.Infof("roaming network %s running", s.Network.ID())
	err := s.Network.Run(ctx)
	wg.Wait()
	<-collected
	return err
}

// Close releases every resource. It is safe to call more than once.
func (s *Service) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		if s.removeAudit != nil {
			s.removeAudit()
		}
		if s.exporter != nil {
			s.exporter.Close()
		}
		if s.audit != nil {
			errs = append(errs, s.audit.Close())
		}
		if s.cdrs != nil {
			errs = append(errs, s.cdrs.Close())
		}
		closeSink(s.sink)
		s.bus.Close()
		coremon.Flush(2 * time.Second)
	})
	return errors.Join(errs...)
}

func closeSink(sink coremetrics.MetricsSink) {
	switch c := sink.(type) {
	case *coremetrics.MultiSink:
		for _, inner := range c.Sinks {
			closeSink(inner)
		}
	case interface{ Close() }:
		c.Close()
	case interface{ Close() error }:
		_ = c.Close()
	}
}
