package transport

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotConnected is returned by Send when no peer is attached.
var ErrNotConnected = errors.New("transport: no connected peer")

// ParseError reports an inbound frame that is not valid JSON.
type ParseError struct {
	Frame []byte
}

func (e *ParseError) Error() string {
	return "transport: inbound frame is not valid JSON"
}

// Handlers receive channel events. Any of them may be nil.
type Handlers struct {
	OnMessage func(ctx context.Context, msg json.RawMessage)
	OnError   func(err error)
	OnClose   func()
}

func (h Handlers) message(ctx context.Context, msg json.RawMessage) {
	if h.OnMessage != nil {
		h.OnMessage(ctx, msg)
	}
}

func (h Handlers) error(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}

func (h Handlers) close() {
	if h.OnClose != nil {
		h.OnClose()
	}
}

// Channel is a bidirectional pipe of JSON-RPC messages between the server and
// one peer.
type Channel interface {
	Start(ctx context.Context, handlers Handlers) error
	Send(ctx context.Context, msg json.RawMessage) error
	Close() error
}
