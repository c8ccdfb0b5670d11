package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/collabd/internal/logging"
	"github.com/fyrsmithlabs/collabd/internal/objectstore"
	"github.com/fyrsmithlabs/collabd/pkg/auth"
)

// Gate is the access-controlled store surface the server exposes.
// Satisfied by *access.Gate.
type Gate interface {
	Get(ctx context.Context, identity *auth.Identity, id string) (*objectstore.CollaborationObject, error)
	MultiGet(ctx context.Context, identity *auth.Identity, ids []string) ([]objectstore.CollaborationObject, error)
	Create(ctx context.Context, identity *auth.Identity, obj *objectstore.CollaborationObject, id string) (string, error)
	Search(ctx context.Context, identity *auth.Identity, req *objectstore.SearchRequest) (*objectstore.SearchResult, error)
	Delete(ctx context.Context, identity *auth.Identity, id string) error
	DeleteMany(ctx context.Context, identity *auth.Identity, ids []string) (map[string]objectstore.DeleteStatus, error)
}

// Server provides HTTP endpoints for collabd.
type Server struct {
	echo    *echo.Echo
	gate    Gate
	logger  *logging.Logger
	config  *Config
	limiter *rate.Limiter
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// JWTSecret verifies bearer tokens on /api/v1. Empty disables the
	// authentication middleware; requests then carry no identity and the
	// access gate rejects every protected operation.
	JWTSecret []byte

	// RateLimit caps /api/v1 requests per second across all callers,
	// with RateBurst extra headroom. Zero disables throttling.
	RateLimit float64
	RateBurst int
}

// NewServer creates a new HTTP server around the access gate.
func NewServer(gate Gate, logger *logging.Logger, cfg *Config) (*Server, error) {
	if gate == nil {
		return nil, fmt.Errorf("gate cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 10200,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})
	e.Use(NewHTTPMetrics(logger.Underlying()).MetricsMiddleware())

	s := &Server{
		echo:   e,
		gate:   gate,
		logger: logger.Named("http"),
		config: cfg,
	}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	// Register routes
	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	// Unauthenticated surfaces
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API v1 routes, throttled and authenticated
	apiMiddleware := []echo.MiddlewareFunc{s.throttle}
	if len(s.config.JWTSecret) > 0 {
		apiMiddleware = append(apiMiddleware, auth.JWTMiddleware(s.config.JWTSecret))
	}
	v1 := s.echo.Group("/api/v1", apiMiddleware...)

	v1.POST("/objects", s.handleCreateObject)
	v1.GET("/objects", s.handleListObjects)
	v1.GET("/objects/:id", s.handleGetObject)
	v1.POST("/objects/search", s.handleSearchObjects)
	v1.DELETE("/objects/:id", s.handleDeleteObject)
	v1.POST("/objects/delete", s.handleDeleteObjects)
}

// throttle rejects requests above the configured rate with 429.
func (s *Server) throttle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.limiter != nil && !s.limiter.Allow() {
			s.logger.Warn(c.Request().Context(), "rate limit exceeded",
				zap.String("path", c.Path()))
			return c.JSON(http.StatusTooManyRequests, ErrorResponse{
				Error: ErrorDetail{Code: "RATE_LIMITED", Message: "too many requests"},
			})
		}
		return next(c)
	}
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
