package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/buemura/safeurl/internal/allowlist"
	"github.com/buemura/safeurl/internal/auth"
	"github.com/buemura/safeurl/internal/metrics"
	"github.com/buemura/safeurl/internal/ratelimit"
	"github.com/buemura/safeurl/internal/scan"
	"github.com/buemura/safeurl/internal/store"
	"github.com/buemura/safeurl/internal/web/api"
	"github.com/buemura/safeurl/internal/web/jobs"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Config holds server settings.
type Config struct {
	Addr                 string
	RequestTimeout       time.Duration
	BatchConcurrency     int
	BatchTimeout         time.Duration
	ScanRatePerMinute    int
	AnalyzeRatePerMinute int
}

// DefaultConfig returns the settings used by `safeurl serve`.
func DefaultConfig() Config {
	return Config{
		Addr:                 ":8080",
		RequestTimeout:       60 * time.Second,
		BatchConcurrency:     4,
		BatchTimeout:         10 * time.Minute,
		ScanRatePerMinute:    30,
		AnalyzeRatePerMinute: 10,
	}
}

// Deps are the collaborators the server routes to. Verifier, Analyzer and
// Metrics may be nil.
type Deps struct {
	Scanner   *scan.Service
	Allowlist *allowlist.Manager
	Store     store.Store
	Analyzer  api.Analyzer
	Verifier  *auth.Verifier
	Metrics   *metrics.Metrics
	Log       logrus.FieldLogger
}

// Server is the HTTP server for the safeurl API.
type Server struct {
	router  chi.Router
	cfg     Config
	deps    Deps
	manager *jobs.Manager
	scans   *ratelimit.Limiter
	analyze *ratelimit.Limiter
	http    *http.Server
}

// NewServer builds a new Server with middleware and routes configured.
func NewServer(cfg Config, deps Deps) *Server {
	if deps.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		deps.Log = l
	}
	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		deps:   deps,
		manager: jobs.NewManager(deps.Scanner, deps.Store, jobs.Config{
			Concurrency: cfg.BatchConcurrency,
			Timeout:     cfg.BatchTimeout,
		}, deps.Log.WithField("component", "jobs")),
		scans:   ratelimit.PerMinute(cfg.ScanRatePerMinute),
		analyze: ratelimit.PerMinute(cfg.AnalyzeRatePerMinute),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(deps.Log.WithField("component", "http"), deps.Metrics))
	s.router.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	s.registerRoutes()

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Start begins listening on the configured address. It returns nil after
// Shutdown, including when Shutdown ran first.
func (s *Server) Start() error {
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Router exposes the chi.Router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
