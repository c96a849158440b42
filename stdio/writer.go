package stdio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/ggoodman/zoof-lsp/internal/jsonrpc"
)

// Writer frames message bodies onto an output stream. It is safe for
// concurrent use; each frame is written and flushed atomically.
type Writer struct {
	mu sync.Mutex
	bw *bufio.Writer
}

// NewWriter frames onto w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriter(w)}
}

// WriteMessage writes "Content-Length: n\r\n\r\n" followed by msg, where n is
// the byte length of msg, and flushes.
func (w *Writer) WriteMessage(_ context.Context, msg jsonrpc.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := fmt.Fprintf(w.bw, "Content-Length: %d\r\n\r\n", len(msg)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := w.bw.Write(msg); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}
