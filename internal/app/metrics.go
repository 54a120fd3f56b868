package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (a *App) metricsServer() (*http.Server, net.Listener, error) {
	if a.config.MetricsAddr == "" {
		return nil, nil, nil
	}

	if err := registerRuntimeCollectors(a.registerer); err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", a.handleHealth)

	lis, err := net.Listen("tcp", a.config.MetricsAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen metrics %s: %w", a.config.MetricsAddr, err)
	}

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv, lis, nil
}

func registerRuntimeCollectors(reg prometheus.Registerer) error {
	for name, c := range map[string]prometheus.Collector{
		"go":      collectors.NewGoCollector(),
		"process": collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return fmt.Errorf("metrics register %s collector: %w", name, err)
			}
		}
	}
	return nil
}

// handleHealth reports the widget's view of the store.
func (a *App) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := a.store.Snapshot()
	body := struct {
		Status    string `json:"status"`
		Comments  int    `json:"comments"`
		Version   uint64 `json:"version"`
		LastError string `json:"last_error,omitempty"`
	}{Status: "ok", Comments: len(snap.Comments), Version: snap.Version}
	if snap.Err != nil {
		body.Status = "degraded"
		body.LastError = snap.Err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func shutdownHTTPServer(srv *http.Server, logger Logger, name string) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn(name+" shutdown failed", "error", err)
	}
}
