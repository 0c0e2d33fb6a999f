// Package transport binds the MCP server to one of the supported channels:
// streamable HTTP, a persistent websocket, or standard streams.
package transport

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/server"

	"github.com/allisson/uapf-mcp/internal/config"
	apperrors "github.com/allisson/uapf-mcp/internal/errors"
	apphttp "github.com/allisson/uapf-mcp/internal/http"
	"github.com/allisson/uapf-mcp/internal/metrics"
)

// Server is a running transport.
type Server interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Dependencies are the collaborators a transport may need.
type Dependencies struct {
	MCPServer       *server.MCPServer
	MetricsProvider *metrics.Provider
	Stdin           io.Reader
	Stdout          io.Writer
	Logger          *slog.Logger
}

// New selects the transport configured in cfg. The sse transport is recognised
// but not implemented.
func New(cfg *config.Config, deps Dependencies) (Server, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch config.NormalizeTransport(cfg.Transport) {
	case config.TransportStreamableHTTP:
		return NewStreamableHTTPServer(cfg, deps.MCPServer, deps.MetricsProvider, logger), nil
	case config.TransportWebSocket:
		return NewWebSocketServer(cfg, deps.MCPServer, deps.MetricsProvider, logger), nil
	case config.TransportStdio:
		return NewStdioServer(deps.MCPServer, deps.Stdin, deps.Stdout, logger), nil
	case config.TransportSSE:
		return nil, apperrors.Wrap(apperrors.ErrNotImplemented, "transport sse")
	}
	return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "unknown transport %q", cfg.Transport)
}

// StreamableHTTPServer serves the protocol over streamable HTTP.
type StreamableHTTPServer struct {
	http       *apphttp.Server
	streamable *server.StreamableHTTPServer
}

// NewStreamableHTTPServer builds the gin server around the MCP streamable handler.
func NewStreamableHTTPServer(
	cfg *config.Config,
	mcpServer *server.MCPServer,
	metricsProvider *metrics.Provider,
	logger *slog.Logger,
) *StreamableHTTPServer {
	streamable := server.NewStreamableHTTPServer(mcpServer, server.WithEndpointPath(cfg.Path))

	httpServer := apphttp.NewServer(cfg.ServerHost, cfg.ServerPort, logger)
	httpServer.SetupRouter(cfg, streamable, metricsProvider)

	return &StreamableHTTPServer{http: httpServer, streamable: streamable}
}

// Handler returns the configured router for testing purposes.
func (s *StreamableHTTPServer) Handler() http.Handler {
	return s.http.GetHandler()
}

// Start serves until Shutdown.
func (s *StreamableHTTPServer) Start(ctx context.Context) error {
	return s.http.Start(ctx)
}

// Shutdown stops accepting requests and drains in-flight ones.
func (s *StreamableHTTPServer) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// WebSocketServer serves the protocol over a persistent socket on the protocol path.
type WebSocketServer struct {
	http    *apphttp.Server
	channel *WebSocketChannel
	session *Session
}

// NewWebSocketServer builds the socket transport.
func NewWebSocketServer(
	cfg *config.Config,
	mcpServer *server.MCPServer,
	metricsProvider *metrics.Provider,
	logger *slog.Logger,
) *WebSocketServer {
	channel := NewWebSocketChannel(OriginPatterns(cfg.CORSOrigin), logger)

	httpServer := apphttp.NewServer(cfg.ServerHost, cfg.ServerPort, logger)
	httpServer.SetupSocketRouter(cfg, channel, metricsProvider)

	return &WebSocketServer{
		http:    httpServer,
		channel: channel,
		session: NewSession(mcpServer, channel, logger),
	}
}

// Start registers the protocol session and serves until Shutdown.
func (s *WebSocketServer) Start(ctx context.Context) error {
	if err := s.session.Start(ctx); err != nil {
		return apperrors.Wrap(err, "failed to start websocket session")
	}
	return s.http.Start(ctx)
}

// Shutdown closes the peer and the listener.
func (s *WebSocketServer) Shutdown(ctx context.Context) error {
	return apperrors.Join(s.session.Close(ctx), s.http.Shutdown(ctx))
}
