package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves Prometheus metrics over HTTP
type Server struct {
	httpServer *http.Server
	metrics    *Metrics
	addr       string
	logger     *slog.Logger
	startTime  time.Time
	done       chan struct{}
}

// NewServer creates a new metrics HTTP server
func NewServer(m *Metrics, addr string, logger *slog.Logger) *Server {
	if addr == "" {
		addr = ":9090"
	}
	return &Server{
		metrics:   m,
		addr:      addr,
		logger:    logger,
		startTime: time.Now(),
		done:      make(chan struct{}),
	}
}

// ListenAndServe starts the metrics HTTP server
func (s *Server) ListenAndServe() error {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.HandlerFor(
		s.metrics.Registry(),
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		},
	))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	go s.collectSystem()

	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	s.logger.Info("starting metrics server", "addr", s.addr)
	return s.httpServer.ListenAndServe()
}

// collectSystem refreshes uptime and goroutine gauges
func (s *Server) collectSystem() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.metrics.UptimeSeconds.Set(time.Since(s.startTime).Seconds())
			s.metrics.Goroutines.Set(float64(runtime.NumGoroutine()))
		case <-s.done:
			return
		}
	}
}

// Shutdown gracefully shuts down the metrics server
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.done)
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down metrics server")
	return s.httpServer.Shutdown(ctx)
}
