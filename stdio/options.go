package stdio

import (
	"io"
	"log/slog"

	"github.com/ggoodman/zoof-lsp/internal/metrics"
	"github.com/ggoodman/zoof-lsp/storage"
)

// Option customizes a Handler.
type Option func(*Handler)

// WithIO sets the reader and writer for the handler.
func WithIO(r io.Reader, w io.Writer) Option {
	return func(h *Handler) {
		if r != nil {
			h.r = r
		}
		if w != nil {
			h.w = w
		}
	}
}

// WithReader overrides the input stream.
func WithReader(r io.Reader) Option {
	return func(h *Handler) {
		if r != nil {
			h.r = r
		}
	}
}

// WithWriter overrides the output stream.
func WithWriter(w io.Writer) Option {
	return func(h *Handler) {
		if w != nil {
			h.w = w
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.l = l
		}
	}
}

// WithStopOnEOF controls whether reaching the end of the input stops the
// server once in-flight requests finish. It defaults to true. With false the
// server keeps running until exit or context cancellation.
func WithStopOnEOF(stop bool) Option {
	return func(h *Handler) { h.stopOnEOF = stop }
}

// WithDocuments sets the open-document store. The handler does not close a
// store supplied this way.
func WithDocuments(docs storage.Storage) Option {
	return func(h *Handler) { h.docs = docs }
}

// WithMetrics records framing and dispatch metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithLevelVar lets clients adjust lv through initializationOptions.logLevel.
func WithLevelVar(lv *slog.LevelVar) Option {
	return func(h *Handler) { h.levelVar = lv }
}

// WithServerInfo overrides the name and version reported from initialize.
func WithServerInfo(name, version string) Option {
	return func(h *Handler) {
		h.serverName = name
		h.serverVersion = version
	}
}

// WithInstanceID sets the id identifying this server process in logs.
func WithInstanceID(id string) Option {
	return func(h *Handler) { h.instanceID = id }
}

// WithWorkspaceWatch enables watching workspace folders for file changes.
func WithWorkspaceWatch(enabled bool) Option {
	return func(h *Handler) { h.watch = enabled }
}

// WithContentLimit bounds the accepted Content-Length.
func WithContentLimit(n int) Option {
	return func(h *Handler) { h.maxContentLength = n }
}

func withTransport(name string) Option {
	return func(h *Handler) { h.transport = name }
}
