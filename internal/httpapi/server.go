// Package httpapi exposes the cold-path read surface: the current
// snapshot as JSON and a Prometheus scrape endpoint. It never touches
// the hot path directly — every handler reads through an already-built
// snapshot.Provider or metrics.Metrics instance.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"xvenue/internal/metrics"
	"xvenue/internal/snapshot"
)

// Params configures the server.
type Params struct {
	Port int
}

// Server is a standard net/http mux server, no need for anything fancier
// given the handful of read-only routes it serves.
type Server struct {
	p        Params
	snapshot *snapshot.Provider
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New constructs a Server over the given snapshot provider and metrics
// instance.
func New(p Params, snap *snapshot.Provider, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{p: p, snapshot: snap, metrics: m, logger: logger}
}

// Run starts the HTTP server and blocks until ctx is cancelled, at which
// point it attempts a graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/snapshot", s.snapshotHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", s.healthHandler)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.p.Port),
		Handler: logRequests(s.logger, mux),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

// snapshotHandler serves the most recently published aggregate view.
func (s *Server) snapshotHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.snapshot.Current())
}

// healthHandler is a liveness probe: it only confirms the process is
// serving requests, not that any venue is connected.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

// logRequests is a minimal request-logging middleware, logged through
// the shared structured logger rather than fmt.Printf.
func logRequests(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration", time.Since(start)),
		)
	})
}
