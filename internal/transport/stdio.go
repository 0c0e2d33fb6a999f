package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/server"
)

// StdioServer carries newline-delimited JSON-RPC over a reader/writer pair.
// Logs must not be written to out while it runs.
type StdioServer struct {
	stdio  *server.StdioServer
	in     io.Reader
	out    io.Writer
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewStdioServer creates a standard-stream transport.
func NewStdioServer(mcpServer *server.MCPServer, in io.Reader, out io.Writer, logger *slog.Logger) *StdioServer {
	if logger == nil {
		logger = slog.Default()
	}
	stdio := server.NewStdioServer(mcpServer)
	stdio.SetErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))

	return &StdioServer{
		stdio:  stdio,
		in:     in,
		out:    out,
		logger: logger,
	}
}

// Start serves until the input is exhausted or Shutdown is called.
func (s *StdioServer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	s.logger.Info("starting stdio transport")

	err := s.stdio.Listen(ctx, s.in, s.out)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// Shutdown stops the listener.
func (s *StdioServer) Shutdown(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info("shutting down stdio transport")
	return nil
}
