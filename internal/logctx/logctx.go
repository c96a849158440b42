// Package logctx decorates slog records with attributes carried on the
// context: the rpc message being handled and the server instance.
package logctx

import (
	"context"
	"log/slog"
)

// Handler wraps another slog.Handler and appends context attributes to
// every record.
type Handler struct {
	slog.Handler
}

// NewHandler wraps h.
func NewHandler(h slog.Handler) Handler {
	return Handler{Handler: h}
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if sd, ok := ctx.Value(serverDataKey{}).(*ServerData); ok {
		r.AddAttrs(slog.Group("server",
			slog.String("instance", sd.InstanceID),
			slog.String("transport", sd.Transport),
		))
	}

	if msg, ok := ctx.Value(rpcMsg{}).(*RPCMessage); ok {
		r.AddAttrs(slog.Group("rpc",
			slog.String("method", msg.Method),
			slog.String("id", msg.ID),
			slog.String("type", msg.Type),
		))
	}

	return h.Handler.Handle(ctx, r)
}

func (h Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return Handler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h Handler) WithGroup(name string) slog.Handler {
	return Handler{Handler: h.Handler.WithGroup(name)}
}

type rpcMsg struct{}

// RPCMessage describes the message a log record relates to.
type RPCMessage struct {
	Method string
	ID     string
	Type   string
}

// WithRPCMessage attaches msg to ctx.
func WithRPCMessage(ctx context.Context, msg *RPCMessage) context.Context {
	return context.WithValue(ctx, rpcMsg{}, msg)
}

type serverDataKey struct{}

// ServerData identifies the server process and the transport it serves.
type ServerData struct {
	InstanceID string
	Transport  string
}

// WithServerData attaches data to ctx.
func WithServerData(ctx context.Context, data *ServerData) context.Context {
	return context.WithValue(ctx, serverDataKey{}, data)
}
