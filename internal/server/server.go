// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolegate Contributors

// Package server exposes permission decisions over HTTP, alongside
// metrics and health probes.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"

	"github.com/rolegate/rolegate/internal/access"
)

// ReadinessChecker returns whether the service is ready to serve decisions.
type ReadinessChecker func() bool

// Metrics contains the decision service's Prometheus metrics.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the service metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rolegate_http_requests_total",
				Help: "Total number of HTTP requests by path and status",
			},
			[]string{"path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rolegate_http_request_duration_seconds",
				Help:    "HTTP request duration by path",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path"},
		),
	}

	reg.MustRegister(m.RequestsTotal)
	reg.MustRegister(m.RequestDuration)

	return m
}

// Server serves permission checks over HTTP.
type Server struct {
	addr       string
	listener   net.Listener
	httpServer *http.Server
	registry   *prometheus.Registry
	metrics    *Metrics
	evaluator  *access.Evaluator
	isReady    ReadinessChecker
	running    atomic.Bool
}

// NewServer creates a decision server bound to addr ("host:port").
func NewServer(addr string, e *access.Evaluator, readinessChecker ReadinessChecker) *Server {
	// Dedicated registry keeps the global one clean
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics := NewMetrics(registry)

	return &Server{
		addr:      addr,
		registry:  registry,
		metrics:   metrics,
		evaluator: e,
		isReady:   readinessChecker,
	}
}

// Metrics returns the service metrics for recording application events.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start begins serving. It returns an error channel that receives any
// error from the HTTP server after startup; the channel is closed on
// graceful shutdown.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("decision server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/check", s.handleCheck)
	mux.HandleFunc("GET /v1/roles", s.handleRoles)
	mux.HandleFunc("GET /v1/roles/{role}/permissions", s.handleRolePermissions)

	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	// Kubernetes-style health probes
	mux.HandleFunc("/healthz/liveness", s.handleLiveness)
	mux.HandleFunc("/healthz/readiness", s.handleReadiness)

	httpSrv := &http.Server{
		Handler:           s.instrument(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		// Use local httpSrv to avoid race with subsequent Start() calls
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("decision server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	slog.Info("decision server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			// Restore running state so the server can be stopped again
			s.running.Store(true)
			return oops.With("operation", "shutdown_decision_server").Wrap(err)
		}
	}

	slog.Info("decision server stopped")
	return nil
}

// Addr returns the bound listen address, or "" when not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument tags each request with a ULID, logs it, and records metrics.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := ulid.Make().String()
		w.Header().Set("X-Request-Id", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		s.metrics.RequestsTotal.WithLabelValues(r.URL.Path, http.StatusText(rec.status)).Inc()
		s.metrics.RequestDuration.WithLabelValues(r.URL.Path).Observe(elapsed.Seconds())

		slog.Debug("request handled",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", elapsed.Milliseconds())
	})
}

// checkRequest is the body of POST /v1/check.
type checkRequest struct {
	Role       string `json:"role"`
	Permission string `json:"permission"`
}

// checkResponse is the body of a successful check.
type checkResponse struct {
	Allowed bool `json:"allowed"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // response write error is acceptable, client may disconnect
	json.NewEncoder(w).Encode(v)
}

// handleCheck evaluates one role/permission pair. Malformed requests get
// 400; unknown roles are a denial, not an error. An omitted role falls
// back to the evaluator's resolver path.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.Permission == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "permission is required"})
		return
	}

	var allowed bool
	if req.Role == "" {
		allowed = s.evaluator.HasPermission(req.Permission)
	} else {
		allowed = s.evaluator.RoleHasPermission(req.Role, req.Permission)
	}
	writeJSON(w, http.StatusOK, checkResponse{Allowed: allowed})
}

// roleSummary is one element of the GET /v1/roles response.
type roleSummary struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (s *Server) handleRoles(w http.ResponseWriter, _ *http.Request) {
	roles := s.evaluator.Roles()
	out := make([]roleSummary, 0, len(roles))
	for _, r := range roles {
		out = append(out, roleSummary{Name: r.Name, Description: r.Description})
	}
	writeJSON(w, http.StatusOK, out)
}

// permissionsResponse is the body of GET /v1/roles/{role}/permissions.
type permissionsResponse struct {
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

func (s *Server) handleRolePermissions(w http.ResponseWriter, r *http.Request) {
	role := r.PathValue("role")
	perms := s.evaluator.EffectivePermissions(role)
	if perms == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown role"})
		return
	}
	writeJSON(w, http.StatusOK, permissionsResponse{Role: role, Permissions: perms})
}

// handleLiveness returns 200 while the process is running.
func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // health check write error is acceptable, client may disconnect
	w.Write([]byte("ok\n"))
}

// handleReadiness returns 200 when ready, 503 otherwise.
func (s *Server) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if s.isReady == nil || s.isReady() {
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck // health check write error is acceptable, client may disconnect
		w.Write([]byte("ok\n"))
		return
	}

	w.WriteHeader(http.StatusServiceUnavailable)
	//nolint:errcheck // health check write error is acceptable, client may disconnect
	w.Write([]byte("not ready\n"))
}
