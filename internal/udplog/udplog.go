// Package udplog mirrors log output to a UDP socket so a developer can watch
// a server that owns stdin and stdout. Records are formatted as text and sent
// in datagrams of at most ChunkSize bytes. Delivery is best effort.
package udplog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
)

const (
	// DefaultAddr is where records are sent and where Listen binds by default.
	DefaultAddr = "127.0.0.1:12012"
	// ChunkSize is the largest datagram written by a Writer.
	ChunkSize = 1024
	// maxDatagram bounds the receive buffer of Listen.
	maxDatagram = 1 << 20
)

// Writer splits every Write into ChunkSize datagrams.
type Writer struct {
	mu   sync.Mutex
	conn net.Conn
}

// Dial connects a Writer to addr.
func Dial(addr string) (*Writer, error) {
	if addr == "" {
		addr = DefaultAddr
	}
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("udplog: dial %s: %w", addr, err)
	}
	return &Writer{conn: conn}, nil
}

// NewWriter wraps an existing datagram connection.
func NewWriter(conn net.Conn) *Writer {
	return &Writer{conn: conn}
}

// Write sends p as one or more datagrams. A failed send stops the write and
// returns the number of bytes already sent.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := 0
	for len(p) > 0 {
		chunk := p
		if len(chunk) > ChunkSize {
			chunk = chunk[:ChunkSize]
		}
		if _, err := w.conn.Write(chunk); err != nil {
			return n, err
		}
		n += len(chunk)
		p = p[len(chunk):]
	}
	return n, nil
}

// Close closes the underlying connection.
func (w *Writer) Close() error {
	return w.conn.Close()
}

// NewHandler returns a text handler that writes each record through w.
func NewHandler(w *Writer, opts *slog.HandlerOptions) slog.Handler {
	return slog.NewTextHandler(w, opts)
}

// Listen receives datagrams on addr and copies each one, newline terminated,
// to out until ctx is cancelled.
func Listen(ctx context.Context, addr string, out io.Writer) error {
	if addr == "" {
		addr = DefaultAddr
	}
	pc, err := net.ListenPacket("udp", addr)
	if err != nil {
		return fmt.Errorf("udplog: listen %s: %w", addr, err)
	}
	return Serve(ctx, pc, out)
}

// Serve is Listen on an existing packet connection. It closes pc on return.
func Serve(ctx context.Context, pc net.PacketConn, out io.Writer) error {
	stop := context.AfterFunc(ctx, func() { _ = pc.Close() })
	defer stop()
	defer pc.Close()

	buf := make([]byte, maxDatagram)
	for {
		n, _, err := pc.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		line := buf[:n]
		if n == 0 || line[n-1] != '\n' {
			line = append(line, '\n')
		}
		if _, err := out.Write(line); err != nil {
			return err
		}
	}
}
