package engine

import (
	"context"

	"github.com/ggoodman/zoof-lsp/internal/jsonrpc"
)

// MessageWriter delivers an encoded message body to the peer. Implementations
// must be safe for concurrent use; suspending handlers write from their own
// goroutines.
type MessageWriter interface {
	WriteMessage(ctx context.Context, msg jsonrpc.Message) error
}

// MessageWriterFunc adapts a function to MessageWriter.
type MessageWriterFunc func(ctx context.Context, msg jsonrpc.Message) error

func (f MessageWriterFunc) WriteMessage(ctx context.Context, msg jsonrpc.Message) error {
	return f(ctx, msg)
}
