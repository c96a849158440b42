package stdio

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/ggoodman/zoof-lsp/lspservice"
)

// DefaultTCPAddr is the development listen address.
const DefaultTCPAddr = "127.0.0.1:8339"

// ServeListener accepts a single connection from ln and serves it with the
// same framing as stdio. The listener is closed once a client connects or ctx
// ends. It is meant for attaching an editor to a server started by hand.
func ServeListener(ctx context.Context, ln net.Listener, reg *lspservice.Registry, opts ...Option) error {
	stopAccept := context.AfterFunc(ctx, func() { _ = ln.Close() })
	conn, err := ln.Accept()
	stopAccept()
	_ = ln.Close()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("accept: %w", err)
	}
	defer conn.Close()

	opts = append(opts, WithIO(conn, conn), withTransport("tcp"))
	h := NewHandler(reg, opts...)
	h.l.InfoContext(ctx, "tcp.accept", slog.String("remote_addr", conn.RemoteAddr().String()))

	// Closing the connection when Serve returns also releases the reader.
	return h.Serve(ctx)
}

// ListenAndServe listens on addr and calls ServeListener.
func ListenAndServe(ctx context.Context, addr string, reg *lspservice.Registry, opts ...Option) error {
	if addr == "" {
		addr = DefaultTCPAddr
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return ServeListener(ctx, ln, reg, opts...)
}
