// Package rpc provides the HTTP API for collectiond.
//
// All service operations are exposed as POST /services/{service}/{namespace}/{method}
// with JSON bodies. Requests authenticate with a bearer token and declare
// the caller workspace via the X-Workspace header; middleware places the
// workspace into the request context and handlers read it from there only.
package rpc

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aicell-lab/collectiond/internal/artifact"
	"github.com/aicell-lab/collectiond/internal/data"
	"github.com/aicell-lab/collectiond/internal/naming"
	"github.com/aicell-lab/collectiond/internal/permission"
	"github.com/aicell-lab/collectiond/internal/services"
	"github.com/aicell-lab/collectiond/internal/vectorstore"
)

// HeaderWorkspace is the request header naming the caller workspace.
const HeaderWorkspace = "X-Workspace"

// DefaultServiceName is the service segment registered under /services.
const DefaultServiceName = "vectors"

// Config holds HTTP server configuration.
type Config struct {
	Host        string
	Port        int
	ServiceName string
}

// Server provides HTTP endpoints for collectiond.
type Server struct {
	echo     *echo.Echo
	registry services.Registry
	token    string
	logger   *zap.Logger
	config   *Config
	metrics  *Metrics
}

// NewServer creates a new HTTP server. The token must be non-empty; it is
// validated at startup by config, and the server refuses to run open.
func NewServer(registry services.Registry, token string, logger *zap.Logger, cfg *Config) (*Server, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if token == "" {
		return nil, fmt.Errorf("auth token cannot be empty")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "0.0.0.0", Port: 9520}
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultServiceName
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	m := NewMetrics(logger)

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})
	e.Use(m.Middleware())

	s := &Server{
		echo:     e,
		registry: registry,
		token:    token,
		logger:   logger,
		config:   cfg,
		metrics:  m,
	}

	s.registerRoutes()

	return s, nil
}

// Echo exposes the underlying router for additional route registration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	svc := s.echo.Group("/services/:service")
	svc.Use(s.authMiddleware())
	svc.Use(s.workspaceMiddleware())
	svc.POST("/:namespace/:method", s.handleCall)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	if err := s.registry.VectorStore().Health(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "degraded"})
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// authMiddleware enforces bearer-token authentication on service routes.
func (s *Server) authMiddleware() echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup:  "header:" + echo.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(key string, c echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(s.token)) == 1, nil
		},
	})
}

// workspaceMiddleware moves the authenticated X-Workspace header into the
// request context. The workspace is never read from the request payload.
func (s *Server) workspaceMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ws := c.Request().Header.Get(HeaderWorkspace)
			if ws == "" {
				return echo.NewHTTPError(http.StatusBadRequest, "missing "+HeaderWorkspace+" header")
			}
			ctx := WithWorkspace(c.Request().Context(), ws)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// ErrorResponse is the JSON error envelope for failed calls.
type ErrorResponse struct {
	Error string `json:"error"`
}

// httpStatus maps service errors to HTTP status codes.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, permission.ErrPermissionDenied),
		errors.Is(err, data.ErrUnscopedQuery):
		return http.StatusForbidden
	case errors.Is(err, artifact.ErrNotFound),
		errors.Is(err, vectorstore.ErrObjectNotFound),
		errors.Is(err, vectorstore.ErrCollectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, artifact.ErrAlreadyExists),
		errors.Is(err, vectorstore.ErrCollectionExists):
		return http.StatusConflict
	case errors.Is(err, naming.ErrInvalidName),
		errors.Is(err, vectorstore.ErrReservedFilterKey),
		errors.Is(err, vectorstore.ErrEmptyObjects),
		errors.Is(err, vectorstore.ErrInvalidConfig),
		errors.Is(err, data.ErrMissingApplication),
		errors.Is(err, data.ErrReservedProperty),
		errors.Is(err, data.ErrNoGenerator):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(c echo.Context, err error) error {
	status := httpStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("call failed", zap.Error(err))
		return c.JSON(status, ErrorResponse{Error: "internal error"})
	}
	return c.JSON(status, ErrorResponse{Error: err.Error()})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server",
		zap.String("addr", addr),
		zap.String("service", s.config.ServiceName))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
