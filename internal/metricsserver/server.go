// Package metricsserver exposes the /metrics and /healthz HTTP surface
// spec.md §6 describes only at the interface level. The explicit
// http.Server with a Start/Shutdown pair is grounded on the teacher's
// internal/api.Server (server_bootstrap.go); the /metrics handler itself is
// the standard promhttp.Handler() wiring used throughout the retrieved pack
// (PayRpc-Bitcoin-Sprint, rajendragosavi-gpu-metrics-telemetry).
package metricsserver

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves /metrics and /healthz on its own port, independent of the
// rest of a binary's work.
type Server struct {
	httpServer *http.Server
}

// New builds a Server listening on addr (":PORT"). healthy is consulted on
// every /healthz request; it should be cheap and non-blocking.
func New(addr string, healthy func() bool) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if healthy() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"degraded"}`))
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
	}
}

// Start blocks serving until the server is shut down.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
