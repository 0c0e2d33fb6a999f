package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	apphttp "github.com/allisson/uapf-mcp/internal/http"
)

// WebSocketChannel is a Channel over a persistent socket. It tracks a single
// peer; a newly accepted peer supersedes the previous one.
type WebSocketChannel struct {
	originPatterns []string
	logger         *slog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers Handlers
	closed   bool
}

// NewWebSocketChannel creates a channel accepting peers whose Origin host
// matches one of originPatterns.
func NewWebSocketChannel(originPatterns []string, logger *slog.Logger) *WebSocketChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketChannel{
		originPatterns: originPatterns,
		logger:         logger,
	}
}

// Start registers the event handlers. Peers are attached through ServeHTTP.
func (c *WebSocketChannel) Start(_ context.Context, handlers Handlers) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = handlers
	c.closed = false
	return nil
}

// ServeHTTP upgrades the request and reads frames until the peer goes away or
// is superseded.
func (c *WebSocketChannel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: c.originPatterns,
	})
	if err != nil {
		c.logger.Warn("websocket accept failed", slog.Any("error", err))
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	previous := c.conn
	c.conn = conn
	handlers := c.handlers
	c.mu.Unlock()

	if previous != nil {
		c.logger.Info("websocket peer superseded")
		_ = previous.Close(websocket.StatusNormalClosure, "superseded by a new peer")
	}
	c.logger.Info("websocket peer connected", slog.String("remote_addr", r.RemoteAddr))

	c.readLoop(r.Context(), conn, handlers)
}

func (c *WebSocketChannel) readLoop(ctx context.Context, conn *websocket.Conn, handlers Handlers) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			c.detach(conn, err, handlers)
			return
		}

		if !json.Valid(data) {
			handlers.error(&ParseError{Frame: data})
			continue
		}
		handlers.message(ctx, json.RawMessage(data))
	}
}

// detach drops conn if it is still the tracked peer.
func (c *WebSocketChannel) detach(conn *websocket.Conn, err error, handlers Handlers) {
	c.mu.Lock()
	current := c.conn == conn
	if current {
		c.conn = nil
	}
	c.mu.Unlock()

	if !current {
		return
	}

	status := websocket.CloseStatus(err)
	if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
		handlers.error(err)
	}
	c.logger.Info("websocket peer disconnected", slog.Int("status", int(status)))
	handlers.close()
}

// Send writes msg to the current peer.
func (c *WebSocketChannel) Send(ctx context.Context, msg json.RawMessage) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}
	return wsjson.Write(ctx, conn, msg)
}

// Close disconnects the current peer and refuses new ones.
func (c *WebSocketChannel) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.closed = true
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close(websocket.StatusGoingAway, "server shutting down")
}

// OriginPatterns converts the configured CORS origin into websocket origin
// host patterns.
func OriginPatterns(corsOrigin string) []string {
	origins := apphttp.ParseOrigins(corsOrigin)
	if origins.Any {
		return []string{"*"}
	}
	var patterns []string
	for _, origin := range origins.List {
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, origin)
	}
	return patterns
}
