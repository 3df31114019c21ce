package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/roamnet/infra/logger"
)

// NewMux returns a ServeMux exposing gatherer on /metrics plus the extra
// routes, e.g. the dispatch audit API. A nil gatherer serves the default
// Prometheus registry.
func NewMux(gatherer prometheus.Gatherer, routes map[string]http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	if gatherer == nil {
		mux.Handle("/metrics", promhttp.Handler())
	} else {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	for path, h := range routes {
		mux.Handle(path, h)
	}
	return mux
}

// StartPromServer serves NewMux(nil, routes) on addr until ctx is canceled.
// A dedicated ServeMux is used to avoid interfering with other handlers.
func StartPromServer(ctx context.Context, addr string, routes map[string]http.Handler, log logger.Logger) error {
	if log == nil {
		log = logger.NopLogger{}
	}
	srv := &http.Server{Addr: addr, Handler: NewMux(nil, routes), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("prom server shutdown: %v", err)
		}
		cancel()
	}()
	log.Infof("serving metrics on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
