package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"mercator-hq/riskctl/pkg/assessment"
	"mercator-hq/riskctl/pkg/config"
	"mercator-hq/riskctl/pkg/ratelimit"
	"mercator-hq/riskctl/pkg/security/auth"
	certs "mercator-hq/riskctl/pkg/security/tls"
	"mercator-hq/riskctl/pkg/server/middleware"
	"mercator-hq/riskctl/pkg/telemetry"
	"mercator-hq/riskctl/pkg/telemetry/health"
	"mercator-hq/riskctl/pkg/telemetry/logging"
	"mercator-hq/riskctl/pkg/telemetry/tracing"
)

// Server is the riskctl HTTP API server.
type Server struct {
	config     config.ServerConfig
	telemetry  config.TelemetryConfig
	svc        *assessment.Service
	tel        *telemetry.Telemetry
	info       health.VersionInfo
	logger     *slog.Logger
	keys       *auth.Validator
	limits     *ratelimit.Registry
	httpServer *http.Server

	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
	addr         net.Addr
}

// New creates a server for svc. tel supplies the logger, metrics, tracer and
// health checker.
func New(cfg *config.Config, svc *assessment.Service, tel *telemetry.Telemetry, info health.VersionInfo) *Server {
	s := &Server{
		config:    cfg.Server,
		telemetry: cfg.Telemetry,
		svc:       svc,
		tel:       tel,
		info:      info,
		logger:    logging.Component(tel.Logger, "server"),
	}
	if cfg.Server.Auth.Enabled {
		s.keys = auth.NewValidator(cfg.Server.Auth.APIKeys)
	}
	if cfg.Server.RateLimit.Enabled {
		s.limits = ratelimit.NewRegistry(cfg.Server.RateLimit)
	}
	return s
}

// Start listens on the configured address and serves until ctx is cancelled
// or the server fails. Cancellation triggers a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var tlsConfig *tls.Config
	if s.config.TLS.Enabled {
		var err error
		if tlsConfig, err = s.tlsConfig(ctx); err != nil {
			s.mu.Unlock()
			return err
		}
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("listen on %s: %w", s.config.ListenAddress, err)
	}
	if tlsConfig != nil {
		ln = tls.NewListener(ln, tlsConfig)
	}
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	s.addr = ln.Addr()
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting api server", "address", ln.Addr().String(), "tls", tlsConfig != nil)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	}
}

// tlsConfig loads the server certificate. With reload_certs the pair is
// watched until ctx is cancelled.
func (s *Server) tlsConfig(ctx context.Context) (*tls.Config, error) {
	cfg := s.config.TLS
	if !cfg.ReloadCerts {
		return certs.ServerConfig(cfg, nil)
	}

	reloader := certs.NewCertificateReloader(cfg.CertFile, cfg.KeyFile, s.logger)
	if err := reloader.Load(); err != nil {
		return nil, err
	}
	go func() {
		if err := reloader.Run(ctx); err != nil {
			s.logger.Error("certificate watcher stopped", "error", err)
		}
	}()
	return certs.ServerConfig(cfg, reloader)
}

// Shutdown gracefully stops the server, waiting at most the configured
// shutdown timeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("api server stopped")
	})

	return shutdownErr
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the bound address once Start has begun listening, or nil.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	if s.telemetry.Metrics.Enabled {
		mux.Handle("GET "+s.telemetry.Metrics.Path, s.tel.Metrics.Handler())
	}
	health.Register(mux, s.tel.Health, s.telemetry.Health.LivenessPath, s.telemetry.Health.ReadinessPath, s.info)

	var handler http.Handler = mux
	handler = middleware.CORS(s.config.CORS)(handler)
	handler = middleware.Logging(s.tel.Logger, s.tel.Metrics)(handler)
	handler = tracing.HTTPMiddleware(s.tel.Tracer)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(s.tel.Logger)(handler)
	return handler
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	routes := []struct {
		pattern string
		handler http.HandlerFunc
	}{
		{"POST /api/evaluate", s.handleEvaluate},
		{"POST /api/diff", s.handleDiff},
		{"POST /api/validate", s.handleValidate},
		{"GET /api/model", s.handleModel},
		{"GET /api/systems", s.handleListSystems},
		{"POST /api/systems", s.handleCreateSystem},
		{"POST /api/systems/add", s.handleAddSystem},
		{"POST /api/systems/remove", s.handleRemoveSystem},
		{"GET /api/systems/{id}", s.handleGetSystem},
		{"PUT /api/systems/{id}", s.handleSaveSystem},
		{"POST /api/systems/{id}/evaluate", s.handleEvaluateSystem},
		{"GET /api/portfolio", s.handlePortfolio},
		{"GET /api/history", s.handleHistory},
	}
	for _, rt := range routes {
		mux.Handle(rt.pattern, s.protect(rt.handler))
	}
}

// protect applies authentication and rate limiting to an API route. It
// wraps each route rather than the mux so the logging middleware still sees
// the matched pattern.
func (s *Server) protect(h http.Handler) http.Handler {
	if s.limits != nil {
		h = middleware.RateLimit(s.limits, clientKey, s.tel.Logger, s.tel.Metrics)(h)
	}
	if s.keys != nil {
		h = auth.Middleware(s.keys, s.logger)(h)
	}
	return h
}

// clientKey identifies authenticated callers by key name and everyone else
// by address.
func clientKey(r *http.Request) string {
	if name, ok := auth.ClientName(r.Context()); ok {
		return "key:" + name
	}
	return "ip:" + middleware.RemoteIP(r)
}
