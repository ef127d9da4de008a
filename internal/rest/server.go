// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-textsign.
//
// go-textsign is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package rest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jeremyhahn/go-textsign/pkg/health"
	"github.com/jeremyhahn/go-textsign/pkg/logging"
	"github.com/jeremyhahn/go-textsign/pkg/metrics"
	"github.com/jeremyhahn/go-textsign/pkg/ratelimit"
	"github.com/jeremyhahn/go-textsign/pkg/scheme"
	"github.com/jeremyhahn/go-textsign/pkg/storage"
	"github.com/jeremyhahn/go-textsign/pkg/textsign"
)

// DefaultMaxBodyBytes caps request bodies when Config leaves it unset.
const DefaultMaxBodyBytes = 1 << 20

// Server represents the REST API server.
type Server struct {
	server   *http.Server
	handlers *HandlerContext
	health   *health.Checker
	limiter  *ratelimit.Limiter
	logger   logging.Logger
	cfg      Config
}

// Config holds the REST server configuration.
type Config struct {
	// Address is the host:port to listen on (default: 127.0.0.1:8443)
	Address string

	// DefaultScheme is used when a request omits "scheme" (default: blake3)
	DefaultScheme scheme.Scheme

	// MaxBodyBytes caps request bodies (default: 1 MiB)
	MaxBodyBytes int64

	// MetricsEnabled mounts the Prometheus handler at MetricsPath
	MetricsEnabled bool

	// MetricsPath defaults to /metrics
	MetricsPath string

	// RateLimit configures per-client limiting (optional, disabled when nil)
	RateLimit *ratelimit.Config

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes
	WriteTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout time.Duration
}

// NewServer creates a new REST API server signing with svc and keeping
// keys in store.
func NewServer(cfg *Config, svc *textsign.Service, store storage.Backend, log logging.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if svc == nil {
		return nil, fmt.Errorf("textsign service is required")
	}
	if store == nil {
		return nil, fmt.Errorf("keystore is required")
	}

	c := *cfg
	if c.Address == "" {
		c.Address = "127.0.0.1:8443"
	}
	if !c.DefaultScheme.Valid() {
		c.DefaultScheme = scheme.Blake3
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.MetricsPath == "" {
		c.MetricsPath = "/metrics"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 15 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if log == nil {
		log = logging.NewNop()
	}

	checker := health.NewChecker()
	checker.RegisterCheck("keystore", health.StorageCheck(store))

	handlers := NewHandlerContext(svc, store, c.DefaultScheme, c.MaxBodyBytes, log)
	handlers.HealthChecker = checker

	s := &Server{
		handlers: handlers,
		health:   checker,
		limiter:  ratelimit.New(c.RateLimit),
		logger:   log,
		cfg:      c,
	}

	if s.limiter.IsEnabled() {
		checker.RegisterCheck("ratelimit", s.rateLimitCheck)
	}

	s.server = &http.Server{
		Addr:         c.Address,
		Handler:      s.setupRouter(),
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		IdleTimeout:  c.IdleTimeout,
	}

	return s, nil
}

// setupRouter configures the chi router with all routes and middleware.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(s.RecoveryMiddleware())
	r.Use(s.CorrelationMiddleware()) // before logging so lines carry the ID
	r.Use(s.LoggingMiddleware())
	r.Use(metrics.HTTPMiddleware)
	r.Use(CORSMiddleware)

	r.Get("/health", s.handlers.HealthHandler)
	r.Head("/health", s.handlers.HealthHandler)

	// Kubernetes-style health probes
	r.Get("/health/live", s.handlers.LivenessHandler)
	r.Get("/health/ready", s.handlers.ReadinessHandler)
	r.Get("/health/startup", s.handlers.StartupHandler)

	if s.cfg.MetricsEnabled {
		r.Handle(s.cfg.MetricsPath, metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.RateLimitMiddleware())

		r.Get("/schemes", s.handlers.ListSchemesHandler)

		r.Get("/keys", s.handlers.ListKeysHandler)
		r.Post("/keys", s.handlers.GenerateKeyHandler)

		r.Post("/sign", s.handlers.SignHandler)
		r.Post("/verify", s.handlers.VerifyHandler)
	})

	return r
}

// Handler returns the routed handler, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start listens on the configured address and serves until Stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Address, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Stop.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Starting HTTP server",
		logging.String("address", ln.Addr().String()),
		logging.String("default_scheme", s.cfg.DefaultScheme.String()),
		logging.Bool("metrics", s.cfg.MetricsEnabled),
		logging.Bool("rate_limit", s.limiter.IsEnabled()))

	s.health.MarkStarted()
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the REST API server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")
	s.health.MarkNotStarted()
	defer s.limiter.Stop()

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shutdown server", logging.Error(err))
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("Server stopped")
	return nil
}

// rateLimitCheck reports the limiter counters. It never fails readiness.
func (s *Server) rateLimitCheck(_ context.Context) health.CheckResult {
	return health.CheckResult{
		Name:    "ratelimit",
		Status:  health.StatusHealthy,
		Message: "Rate limiting active",
		Details: s.limiter.Stats(),
	}
}
