package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/ggoodman/zoof-lsp/internal/config"
	"github.com/ggoodman/zoof-lsp/internal/logctx"
	"github.com/ggoodman/zoof-lsp/internal/udplog"
	"github.com/ggoodman/zoof-lsp/lspservice"
)

// serverLogger bundles the process logger with its adjustable level and the
// UDP sink, if any.
type serverLogger struct {
	Logger *slog.Logger
	Level  *slog.LevelVar
	udp    *udplog.Writer
}

// newLogger builds the handler chain: stderr in the configured format,
// optionally mirrored over UDP, decorated with rpc and server attributes.
func newLogger(cfg config.Config, stderr io.Writer) (*serverLogger, error) {
	level, err := lspservice.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	lv := new(slog.LevelVar)
	lv.Set(level)
	opts := &slog.HandlerOptions{Level: lv}

	var base slog.Handler
	if cfg.LogFormat == config.FormatJSON {
		base = slog.NewJSONHandler(stderr, opts)
	} else {
		base = slog.NewTextHandler(stderr, opts)
	}

	sl := &serverLogger{Level: lv}
	if cfg.LogUDP {
		w, err := udplog.Dial(cfg.LogUDPAddr)
		if err != nil {
			return nil, err
		}
		sl.udp = w
		base = udplog.Tee(base, udplog.NewHandler(w, opts))
	}
	sl.Logger = slog.New(logctx.NewHandler(base))
	return sl, nil
}

// Close releases the UDP sink.
func (l *serverLogger) Close() error {
	if l.udp == nil {
		return nil
	}
	return l.udp.Close()
}
