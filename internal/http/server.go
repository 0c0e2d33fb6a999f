// Package http provides the gin server that carries the protocol over
// streamable HTTP, plus health endpoints and the metrics server.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/uapf-mcp/internal/config"
	"github.com/allisson/uapf-mcp/internal/metrics"
)

// Transport names used in status responses and metric labels.
const (
	TransportName       = "streamable_http"
	SocketTransportName = "websocket"
)

// Server represents the HTTP server
type Server struct {
	server   *http.Server
	router   *gin.Engine
	logger   *slog.Logger
	stopping atomic.Bool
}

// NewServer creates a new HTTP server
func NewServer(
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		logger: logger,
		server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			// Streams on the protocol path are long-lived.
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter configures the Gin router for the streamable HTTP transport.
// metricsProvider may be nil when metrics are disabled.
func (s *Server) SetupRouter(
	cfg *config.Config,
	mcpHandler http.Handler,
	metricsProvider *metrics.Provider,
) {
	router := s.newRouter(cfg, metricsProvider, TransportName)

	protocol := s.protocolMiddleware(cfg)
	router.POST(cfg.Path, append(protocol, gin.WrapH(mcpHandler))...)
	router.DELETE(cfg.Path, append(protocol, gin.WrapH(mcpHandler))...)
	router.GET(cfg.Path, append(protocol, s.protocolGetHandler(mcpHandler))...)

	s.router = router
}

// SetupSocketRouter configures the Gin router for the socket transport: the
// protocol path only accepts the GET upgrade request.
func (s *Server) SetupSocketRouter(
	cfg *config.Config,
	socketHandler http.Handler,
	metricsProvider *metrics.Provider,
) {
	router := s.newRouter(cfg, metricsProvider, SocketTransportName)

	protocol := s.protocolMiddleware(cfg)
	router.GET(cfg.Path, append(protocol, gin.WrapH(socketHandler))...)

	s.router = router
}

func (s *Server) newRouter(cfg *config.Config, metricsProvider *metrics.Provider, transport string) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true

	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.logger.Error("panic recovered",
			slog.Any("error", recovered),
			slog.String("path", c.Request.URL.Path),
			slog.String("method", c.Request.Method),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}))
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace, transport))
	}

	if corsMiddleware := createCORSMiddleware(cfg.CORSOrigin, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})

	return router
}

// protocolMiddleware returns the handlers applied only on the protocol path.
func (s *Server) protocolMiddleware(cfg *config.Config) []gin.HandlerFunc {
	if !cfg.RateLimitEnabled {
		return nil
	}
	return []gin.HandlerFunc{RateLimitMiddleware(cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger)}
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// protocolGetHandler opens the server event stream when the client asks for one
// and otherwise reports the transport status.
func (s *Server) protocolGetHandler(mcpHandler http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
			mcpHandler.ServeHTTP(c.Writer, c.Request)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "transport": TransportName})
	}
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports readiness; it turns unready once shutdown starts.
func (s *Server) readinessHandler(c *gin.Context) {
	if s.stopping.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return errors.New("router not configured, call SetupRouter first")
	}
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopping.Store(true)
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
