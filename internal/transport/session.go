package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// parseErrorResponse is the JSON-RPC reply to an undecodable frame.
var parseErrorResponse = json.RawMessage(`{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"Parse error"}}`)

// Session binds a Channel to the MCP server as one protocol session.
type Session struct {
	id            string
	server        *server.MCPServer
	channel       Channel
	logger        *slog.Logger
	notifications chan mcp.JSONRPCNotification
	initialized   atomic.Bool

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewSession creates a session with a fresh identifier.
func NewSession(mcpServer *server.MCPServer, channel Channel, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		id:            uuid.Must(uuid.NewV7()).String(),
		server:        mcpServer,
		channel:       channel,
		logger:        logger,
		notifications: make(chan mcp.JSONRPCNotification, 100),
		done:          make(chan struct{}),
	}
}

// SessionID implements server.ClientSession.
func (s *Session) SessionID() string { return s.id }

// NotificationChannel implements server.ClientSession.
func (s *Session) NotificationChannel() chan<- mcp.JSONRPCNotification { return s.notifications }

// Initialize implements server.ClientSession.
func (s *Session) Initialize() { s.initialized.Store(true) }

// Initialized implements server.ClientSession.
func (s *Session) Initialized() bool { return s.initialized.Load() }

// Start registers the session and starts the channel.
func (s *Session) Start(ctx context.Context) error {
	if err := s.server.RegisterSession(ctx, s); err != nil {
		return err
	}

	s.wg.Add(1)
	go s.forwardNotifications(ctx)

	return s.channel.Start(ctx, Handlers{
		OnMessage: s.handleMessage,
		OnError:   s.handleError,
		OnClose:   s.handleClose,
	})
}

func (s *Session) handleMessage(ctx context.Context, msg json.RawMessage) {
	resp := s.server.HandleMessage(s.server.WithContext(ctx, s), msg)
	if resp == nil {
		return
	}

	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("failed to encode protocol response", slog.Any("error", err))
		return
	}
	if err := s.channel.Send(ctx, data); err != nil {
		s.logger.Warn("failed to send protocol response", slog.Any("error", err))
	}
}

func (s *Session) handleError(err error) {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		s.logger.Warn("discarding invalid frame", slog.Int("size", len(parseErr.Frame)))
		if sendErr := s.channel.Send(context.Background(), parseErrorResponse); sendErr != nil {
			s.logger.Debug("failed to send parse error", slog.Any("error", sendErr))
		}
		return
	}
	s.logger.Warn("transport error", slog.Any("error", err))
}

func (s *Session) handleClose() {
	s.initialized.Store(false)
	s.logger.Debug("session peer closed", slog.String("session_id", s.id))
}

func (s *Session) forwardNotifications(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case n := <-s.notifications:
			data, err := json.Marshal(n)
			if err != nil {
				continue
			}
			if err := s.channel.Send(ctx, data); err != nil && !errors.Is(err, ErrNotConnected) {
				s.logger.Debug("failed to forward notification", slog.Any("error", err))
			}
		}
	}
}

// Close unregisters the session and closes the channel.
func (s *Session) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.server.UnregisterSession(ctx, s.id)
		close(s.done)
		s.wg.Wait()
		err = s.channel.Close()
	})
	return err
}
