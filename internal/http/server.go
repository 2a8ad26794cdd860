// Package http provides the multistore admin and debug API.
package http

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fyrsmithlabs/multistore/internal/inspector"
	"github.com/fyrsmithlabs/multistore/internal/logging"
	"github.com/fyrsmithlabs/multistore/internal/registry"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes the store registry and debug inspector over HTTP.
type Server struct {
	echo      *echo.Echo
	registry  *registry.Registry
	inspector *inspector.Inspector
	logger    *zap.Logger
	config    *Config
	metrics   *HTTPMetrics

	// mu serializes every registry call; the registry itself is not
	// safe for concurrent use.
	mu sync.Mutex
}

// Config holds HTTP server configuration.
type Config struct {
	Host    string
	Port    int
	Version string

	// RateLimit is the sustained requests per second allowed per client
	// on /api/v1. Zero disables limiting.
	RateLimit float64
	// RateBurst is the bucket size for RateLimit.
	RateBurst int
}

// NewServer creates a new HTTP server.
func NewServer(reg *registry.Registry, insp *inspector.Inspector, logger *zap.Logger, cfg *Config) (*Server, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if insp == nil {
		return nil, fmt.Errorf("inspector cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9191,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		registry:  reg,
		inspector: insp,
		logger:    logger,
		config:    cfg,
		metrics:   NewHTTPMetrics(logger),
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.metrics.MetricsMiddleware())
	e.Use(s.requestLogger)

	s.registerRoutes()

	return s, nil
}

// requestLogger carries the request ID into the request context and logs
// every request once it completes.
func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()
		requestID := c.Response().Header().Get(echo.HeaderXRequestID)
		c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), requestID)))

		err := next(c)
		if err != nil {
			// Let echo write the error response so the logged status is final.
			c.Error(err)
		}

		fields := []zap.Field{
			zap.String("method", req.Method),
			zap.String("uri", req.RequestURI),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", time.Since(start)),
		}
		s.logger.Info("http request", append(fields, logging.ContextFields(c.Request().Context())...)...)

		return nil
	}
}

// storeScope tags the request context with the :name path parameter.
func storeScope(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		c.SetRequest(req.WithContext(logging.WithStore(req.Context(), c.Param("name"))))
		return next(c)
	}
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	if s.config.RateLimit > 0 {
		v1.Use(newClientLimiter(s.config.RateLimit, s.config.RateBurst).middleware)
	}
	v1.GET("/status", s.handleStatus)

	v1.GET("/stores", s.handleListStores)
	v1.POST("/stores", s.handleRegisterStore)
	v1.GET("/stores/:name", s.handleGetStore, storeScope)
	v1.DELETE("/stores/:name", s.handleUnregisterStore, storeScope)
	v1.POST("/stores/:name/documents", s.handleAddDocuments, storeScope)
	v1.DELETE("/stores/:name/documents", s.handleDeleteDocuments, storeScope)
	v1.POST("/stores/:name/query", s.handleQuery, storeScope)

	v1.GET("/inspector", s.handleGetInspector)
	v1.PUT("/inspector", s.handleSwitchInspector)
}

// WithRegistryLock runs fn with exclusive access to the registry, so
// callers outside the request path do not race with handlers.
func (s *Server) WithRegistryLock(fn func(reg *registry.Registry) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.registry)
}

// Echo returns the underlying echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
