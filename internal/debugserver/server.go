// Package debugserver exposes the overlay state over HTTP for inspection.
//
// Routes:
//
//	GET  /health                  liveness
//	GET  /state                   overlay snapshot as JSON
//	GET  /plugins/:id             one plugin's snapshot
//	POST /plugins/:id/toggle      toggle a plugin (?state=true|false forces a state)
//	GET  /metrics                 prometheus metrics
package debugserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dshills/devbar/internal/overlay"
)

// DefaultShutdownTimeout bounds graceful shutdown.
const DefaultShutdownTimeout = 5 * time.Second

// Controller is the part of overlay.Controller the server reads and drives.
type Controller interface {
	Snapshot() overlay.Snapshot
	Plugin(id string) (*overlay.PluginState, bool)
	TogglePlugin(ctx context.Context, st *overlay.PluginState, desired *bool) error
}

// Server is the debug HTTP server.
type Server struct {
	echo   *echo.Echo
	ctrl   Controller
	logger *zap.Logger

	gatherer        prometheus.Gatherer
	shutdownTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGatherer sets the metrics source for /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithShutdownTimeout sets the graceful shutdown timeout.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.shutdownTimeout = d
	}
}

// HealthResponse is the JSON response for /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ToggleResponse is the JSON response for a toggle request.
type ToggleResponse struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
}

// ErrorResponse is the JSON body of a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// New creates a server for ctrl.
func New(ctrl Controller, opts ...Option) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:            e,
		ctrl:            ctrl,
		gatherer:        prometheus.DefaultGatherer,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Debug("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency))
			return nil
		},
	}))

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/state", s.handleState)
	s.echo.GET("/plugins/:id", s.handlePlugin)
	s.echo.POST("/plugins/:id/toggle", s.handleToggle)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleState(c echo.Context) error {
	return c.JSON(http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handlePlugin(c echo.Context) error {
	id := c.Param("id")
	p, ok := s.ctrl.Snapshot().Plugin(id)
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: fmt.Sprintf("plugin %q not found", id)})
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handleToggle(c echo.Context) error {
	id := c.Param("id")
	st, ok := s.ctrl.Plugin(id)
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: fmt.Sprintf("plugin %q not found", id)})
	}

	var desired *bool
	if raw := c.QueryParam("state"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid state %q", raw)})
		}
		desired = &v
	}

	if err := s.ctrl.TogglePlugin(c.Request().Context(), st, desired); err != nil {
		status := http.StatusInternalServerError
		if overlay.IsClosed(err) {
			status = http.StatusServiceUnavailable
		}
		return c.JSON(status, ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, ToggleResponse{ID: id, Active: st.Active()})
}

// ServeHTTP makes the server usable as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
// It returns nil after a graceful shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.echo.Listener = ln
	s.logger.Info("debug server listening", zap.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	}
}
