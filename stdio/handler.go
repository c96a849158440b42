package stdio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ggoodman/zoof-lsp/internal/engine"
	"github.com/ggoodman/zoof-lsp/internal/jsonrpc"
	"github.com/ggoodman/zoof-lsp/internal/logctx"
	"github.com/ggoodman/zoof-lsp/internal/loop"
	"github.com/ggoodman/zoof-lsp/internal/metrics"
	"github.com/ggoodman/zoof-lsp/internal/watch"
	"github.com/ggoodman/zoof-lsp/lspservice"
	"github.com/ggoodman/zoof-lsp/storage"
	"github.com/ggoodman/zoof-lsp/storage/memory"
	"github.com/google/uuid"
)

// Handler is a single-connection transport that reads framed JSON-RPC
// messages from an io.Reader and writes framed responses to an io.Writer. By
// default, it uses os.Stdin and os.Stdout.
//
// The handler is transport-only; it delegates all method semantics to the
// handlers in the provided lspservice.Registry.
type Handler struct {
	reg *lspservice.Registry
	r   io.Reader
	w   io.Writer
	l   *slog.Logger

	stopOnEOF        bool
	docs             storage.Storage
	metrics          *metrics.Metrics
	levelVar         *slog.LevelVar
	serverName       string
	serverVersion    string
	instanceID       string
	watch            bool
	maxContentLength int
	transport        string
}

// NewHandler constructs a Handler with defaults and applies options. A nil
// registry means lspservice.NewDefaultRegistry.
func NewHandler(reg *lspservice.Registry, opts ...Option) *Handler {
	if reg == nil {
		reg = lspservice.NewDefaultRegistry()
	}
	h := &Handler{
		reg:       reg,
		r:         os.Stdin,
		w:         os.Stdout,
		l:         slog.Default(),
		stopOnEOF: true,
		transport: "stdio",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.instanceID == "" {
		h.instanceID = uuid.NewString()
	}
	return h
}

// Serve runs the server until exit, end of input (see WithStopOnEOF) or
// context cancellation. It freezes the registry, starts the frame reader on
// its own goroutine and runs the dispatch loop on the calling goroutine. It
// returns nil after a graceful stop and ctx.Err() after cancellation. Serve
// may be called at most once per Handler.
//
// The frame reader blocks in Read and cannot be interrupted; when Serve
// returns early it stays parked until the input is closed.
func (h *Handler) Serve(ctx context.Context) error {
	h.reg.Freeze()

	ctx = logctx.WithServerData(ctx, &logctx.ServerData{InstanceID: h.instanceID, Transport: h.transport})
	log := h.l

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	lp := loop.New(loop.WithLogger(log), loop.WithOnStop(cancel))

	docs := h.docs
	if docs == nil {
		m, err := memory.New(memory.DefaultMaxDocuments)
		if err != nil {
			return fmt.Errorf("document store: %w", err)
		}
		defer m.Close()
		docs = m
	}

	var st *lspservice.State
	stateOpts := []lspservice.StateOption{
		lspservice.WithLogger(log),
		lspservice.WithDocuments(docs),
		lspservice.WithStopper(lp),
		lspservice.WithLevelVar(h.levelVar),
		lspservice.WithServerInfo(h.serverName, h.serverVersion),
		lspservice.WithInstanceID(h.instanceID),
	}

	watchDone := make(chan struct{})
	if h.watch {
		w, err := watch.New(func(ev watch.Event) {
			// Watcher events reach the state through the loop like messages do.
			lp.CallSoon(func(context.Context) { st.TrackFile(ev.Path, ev.Removed) })
		}, watch.WithLogger(log))
		if err != nil {
			log.WarnContext(ctx, "stdio.watch.unavailable", slog.String("err", err.Error()))
			close(watchDone)
		} else {
			defer w.Close()
			stateOpts = append(stateOpts, lspservice.WithFolderWatcher(w))
			go func() {
				defer close(watchDone)
				w.Run(serveCtx)
			}()
		}
	} else {
		close(watchDone)
	}

	st = lspservice.NewState(stateOpts...)
	defer st.Close()
	eng := engine.New(h.reg, st, NewWriter(h.w),
		engine.WithLogger(log),
		engine.WithMetrics(h.metrics),
	)

	framer := NewFramer(h.r,
		WithFramerLogger(log),
		WithFramerMetrics(h.metrics),
		WithMaxContentLength(h.maxContentLength),
	)
	go h.readLoop(ctx, framer, lp, eng)

	log.InfoContext(ctx, "stdio.serve.start", slog.Any("methods", h.reg.Methods()))
	err := lp.Run(ctx)
	cancel()
	<-watchDone
	log.InfoContext(ctx, "stdio.serve.end", slog.Bool("shutdown_requested", st.ShutdownRequested()))

	if errors.Is(err, loop.ErrStopped) {
		return nil
	}
	return err
}

// readLoop is the only code that touches the input stream. Each decoded
// message is handed to the loop in arrival order.
func (h *Handler) readLoop(ctx context.Context, framer *Framer, lp *loop.Loop, eng *engine.Engine) {
	for {
		msg, err := framer.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				log := h.l.With(slog.Bool("stop_on_eof", h.stopOnEOF))
				log.InfoContext(ctx, "stdio.input.eof")
				if h.stopOnEOF {
					lp.StopWhenIdle()
				}
				return
			}
			h.l.ErrorContext(ctx, "stdio.input.fail", slog.String("err", err.Error()))
			lp.StopWhenIdle()
			return
		}

		if !lp.CallSoon(dispatch(lp, eng, msg)) {
			h.l.InfoContext(ctx, "stdio.input.rejected", slog.String("method", msg.Method))
			return
		}
	}
}

// dispatch handles msg on the loop goroutine, so messages are processed one
// at a time in the order they were read. Only handlers marked
// lspservice.Suspending leave the loop and run as tracked tasks.
func dispatch(lp *loop.Loop, eng *engine.Engine, msg *jsonrpc.AnyMessage) loop.Callback {
	return func(ctx context.Context) {
		if eng.Inline(msg) {
			eng.Handle(ctx, msg)
			return
		}
		lp.Go(ctx, func(ctx context.Context) { eng.Handle(ctx, msg) })
	}
}
