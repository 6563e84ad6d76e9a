package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// readinessTimeout bounds the pipeline readiness probe so a wedged consumer
// turns into a 503 instead of a hanging kubelet check.
const readinessTimeout = 2 * time.Second

// ReadinessChecker reports whether the pipeline is consuming and producing.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server is the operational sidecar of the ETL service: /healthz liveness,
// /readyz pipeline readiness, /metrics for Prometheus scrapes. It serves no
// analysis data; results only ever leave through the sink topic.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

type statusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// NewServer wires the operational routes onto addr.
func NewServer(addr string, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start blocks serving requests; http.ErrServerClosed signals a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.srv.Addr)
	return s.srv.ListenAndServe()
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// ServeHTTP exposes the route table directly so handlers can be exercised
// without binding a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.srv.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, http.StatusOK, statusResponse{Status: "up"})
}

func (s *Server) handleReadyz(ready ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		if err := ready.CheckReadiness(ctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, statusResponse{
				Status: "unready",
				Error:  err.Error(),
			})
			return
		}
		writeStatus(w, http.StatusOK, statusResponse{Status: "ready"})
	}
}

func writeStatus(w http.ResponseWriter, code int, body statusResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body) //nolint:errcheck // best-effort probe body
}
