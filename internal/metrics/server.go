package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/systmms/runcmd/internal/logging"
)

// Server exposes the Prometheus endpoint while a run is in flight.
type Server struct {
	port   int
	path   string
	logger *logging.Logger
	server *http.Server
}

// NewServer creates a metrics server listening on the given port and
// serving metrics at the given path.
func NewServer(port int, path string, logger *logging.Logger) *Server {
	return &Server{
		port:   port,
		path:   path,
		logger: logger,
	}
}

// Start registers the metrics and begins serving in the background.
func (s *Server) Start() error {
	InitMetrics()

	mux := http.NewServeMux()
	mux.Handle(s.path, promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Metrics are non-critical, so report and carry on.
			s.logger.Warn("metrics server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	return s.server.Shutdown(ctx)
}

// Addr returns the server address.
func (s *Server) Addr() string {
	if s.server == nil {
		return ""
	}
	return s.server.Addr
}
