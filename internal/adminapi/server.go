// Package adminapi exposes a thin HTTP surface for operating the probe
// engine from outside its own wire protocol: liveness/readiness,
// Prometheus metrics, a Swagger UI, scheduler introspection, and a
// high-level ICMP self-test independent of the privileged daemon.
package adminapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/netvigil/tnmcore/internal/probehistory"
	"github.com/netvigil/tnmcore/internal/scheduler"
)

// ReadinessChecker reports why the server isn't ready to serve traffic,
// or nil if it is.
type ReadinessChecker func(ctx context.Context) error

// Server is the admin/observability HTTP surface.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	sched      *scheduler.Scheduler
	history    *probehistory.Store
	ready      ReadinessChecker
}

// New builds a Server listening on addr. sched and history may be nil;
// their endpoints report accordingly. ready may be nil to always report
// ready.
func New(addr string, sched *scheduler.Scheduler, history *probehistory.Store, logger *zap.Logger, ready ReadinessChecker) *Server {
	mux := http.NewServeMux()
	s := &Server{logger: logger, sched: sched, history: history, ready: ready}

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))
	mux.HandleFunc("GET /api/v1/scheduler/jobs", s.handleSchedulerJobs)
	mux.HandleFunc("GET /api/v1/icmp/selftest", s.handleSelfTest)
	mux.HandleFunc("GET /api/v1/probes/recent", s.handleRecentProbes)

	middlewares := []Middleware{
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		RateLimitMiddleware(100, 200, []string{"/healthz", "/readyz", "/metrics"}),
	}
	handler := Chain(mux, middlewares...)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start serves until Shutdown is called, blocking the caller.
func (s *Server) Start() error {
	s.logger.Info("starting admin HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("adminapi: server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

// jobView is the externally visible projection of one scheduler job.
type jobView struct {
	Handle  string   `json:"handle"`
	Status  string   `json:"status"`
	Tags    []string `json:"tags,omitempty"`
	Remtime string   `json:"remtime"`
}

func (s *Server) handleSchedulerJobs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.sched == nil {
		_ = json.NewEncoder(w).Encode([]jobView{})
		return
	}

	var opts scheduler.FindOptions
	if status := r.URL.Query().Get("status"); status != "" {
		st := scheduler.Status(status)
		opts.Status = &st
	}
	if tags := r.URL.Query()["tag"]; len(tags) > 0 {
		opts.Tags = tags
	}

	handles := s.sched.Find(opts)
	views := make([]jobView, 0, len(handles))
	for _, h := range handles {
		status, _ := s.sched.Cget(h, "status")
		tags, _ := s.sched.Cget(h, "tags")
		remtime, _ := s.sched.Cget(h, "remtime")

		v := jobView{Handle: string(h)}
		if st, ok := status.(scheduler.Status); ok {
			v.Status = string(st)
		}
		if ts, ok := tags.([]string); ok {
			v.Tags = ts
		}
		if rt, ok := remtime.(time.Duration); ok {
			v.Remtime = rt.String()
		}
		views = append(views, v)
	}
	_ = json.NewEncoder(w).Encode(views)
}

func (s *Server) handleSelfTest(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	if target == "" {
		target = "127.0.0.1"
	}
	timeout := 2 * time.Second
	ctx, cancel := context.WithTimeout(r.Context(), timeout+time.Second)
	defer cancel()

	result, err := selfTest(ctx, target, timeout)
	if err != nil {
		WriteKind(w, KindResourceFailure, err.Error(), r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

func (s *Server) handleRecentProbes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.history == nil {
		_ = json.NewEncoder(w).Encode([]probehistory.Record{})
		return
	}
	recs, err := s.history.Recent(r.Context(), 100)
	if err != nil {
		WriteKind(w, KindInternal, err.Error(), r.URL.Path)
		return
	}
	_ = json.NewEncoder(w).Encode(recs)
}
