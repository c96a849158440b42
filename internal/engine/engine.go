// Package engine turns decoded messages into outcomes and outcomes into
// responses. It resolves the handler from the registry, runs it, converts
// every failure into a protocol error and writes exactly one response per
// request. Notifications never produce output.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ggoodman/zoof-lsp/internal/jsonrpc"
	"github.com/ggoodman/zoof-lsp/internal/logctx"
	"github.com/ggoodman/zoof-lsp/internal/metrics"
	"github.com/ggoodman/zoof-lsp/lspservice"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name used for message spans.
const TracerName = "github.com/ggoodman/zoof-lsp/internal/engine"

// EncodeFailureMessage is sent, with code -32603, when a response cannot be
// serialized.
const EncodeFailureMessage = "failed to json-encode the response"

// ErrRequestCancelled is the cancellation cause for requests cancelled by
// the client.
var ErrRequestCancelled = errors.New("request cancelled by client")

// errorCoder is implemented by errors that choose their own protocol code.
type errorCoder interface {
	error
	ErrorCode() int
}

type errorDataer interface {
	ErrorData() any
}

// Engine dispatches messages against a frozen registry.
type Engine struct {
	reg     *lspservice.Registry
	state   *lspservice.State
	w       MessageWriter
	log     *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer

	mu       sync.Mutex
	inflight map[string]context.CancelCauseFunc // request id -> cancel
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a custom logger for the Engine.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMetrics records dispatch metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// New creates an Engine and registers it as st's request canceler.
func New(reg *lspservice.Registry, st *lspservice.State, w MessageWriter, opts ...Option) *Engine {
	e := &Engine{
		reg:      reg,
		state:    st,
		w:        w,
		log:      slog.Default(),
		tracer:   otel.Tracer(TracerName),
		inflight: make(map[string]context.CancelCauseFunc),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	st.BindCanceler(e)
	return e
}

// Handle processes one decoded message to completion. For a request it
// writes exactly one response; for a notification it only logs. Handle never
// panics and never returns an error: every failure ends up in a response or
// a log line.
func (e *Engine) Handle(ctx context.Context, msg *jsonrpc.AnyMessage) {
	msgType := msg.Type()
	ctx = logctx.WithRPCMessage(ctx, &logctx.RPCMessage{
		Method: msg.Method,
		ID:     msg.ID.String(),
		Type:   msgType,
	})

	if msgType == "response" {
		// The server never sends requests, so there is nothing to correlate.
		e.log.WarnContext(ctx, "engine.response.ignored")
		return
	}

	// Unregistered names come from the peer; keep them out of span names
	// and metric labels.
	methodLabel := msg.Method
	if _, ok := e.reg.Lookup(msg.Method); !ok {
		methodLabel = metrics.UnknownMethod
	}

	ctx, span := e.tracer.Start(ctx, "lsp "+methodLabel,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("rpc.system", "jsonrpc"),
			attribute.String("rpc.method", methodLabel),
			attribute.String("rpc.jsonrpc.request_id", msg.ID.String()),
		),
	)
	defer span.End()

	start := time.Now()
	e.metrics.MessageStarted()

	var out Outcome
	if msgType == "request" {
		reqCtx, cancel, tracked := e.track(ctx, msg.ID)
		out = e.Invoke(reqCtx, msg.Method, msg.Params)
		if out.IsError() && errors.Is(context.Cause(reqCtx), ErrRequestCancelled) {
			out = Failure(jsonrpc.ErrorCodeRequestCancelled, "request cancelled", nil)
		}
		cancel(context.Canceled)
		if tracked {
			e.untrack(msg.ID)
		}
	} else {
		out = e.Invoke(ctx, msg.Method, msg.Params)
	}

	dur := time.Since(start)
	e.metrics.MessageHandled(msgType, out.Kind.String(), methodLabel, dur)
	if out.IsError() {
		span.SetStatus(codes.Error, out.Message)
		span.SetAttributes(attribute.Int("rpc.jsonrpc.error_code", int(out.Code)))
	} else {
		span.SetStatus(codes.Ok, "")
	}

	if msgType == "notification" {
		if out.IsError() {
			e.log.WarnContext(ctx, "engine.handle_notification.fail",
				slog.Int("code", int(out.Code)),
				slog.String("err", out.Message),
				slog.Int64("dur_ms", dur.Milliseconds()),
			)
		} else {
			e.log.DebugContext(ctx, "engine.handle_notification.ok", slog.Int64("dur_ms", dur.Milliseconds()))
		}
		return
	}

	if out.IsError() {
		e.log.InfoContext(ctx, "engine.handle_request.fail",
			slog.Int("code", int(out.Code)),
			slog.String("err", out.Message),
			slog.Int64("dur_ms", dur.Milliseconds()),
		)
	} else {
		e.log.InfoContext(ctx, "engine.handle_request.ok", slog.Int64("dur_ms", dur.Milliseconds()))
	}

	body := e.Encode(ctx, msg.ID, out)
	if err := e.w.WriteMessage(ctx, body); err != nil {
		e.log.ErrorContext(ctx, "engine.write.fail", slog.String("err", err.Error()))
		span.RecordError(err)
		return
	}
	e.metrics.ResponseWritten(len(body))
}

// Inline reports whether msg should be handled to completion on the
// dispatch loop. Only requests and notifications whose handler was marked
// with lspservice.Suspending run as separate tasks.
func (e *Engine) Inline(msg *jsonrpc.AnyMessage) bool {
	if msg.Type() == "response" {
		return true
	}
	h, ok := e.reg.Lookup(msg.Method)
	return !ok || !lspservice.IsSuspending(h)
}

// Invoke looks up the handler for method and runs it. Unknown methods yield
// -32601, errors that carry an ErrorCode keep their code and every other
// failure, panics included, yields -32603.
func (e *Engine) Invoke(ctx context.Context, method string, params json.RawMessage) (out Outcome) {
	h, ok := e.reg.Lookup(method)
	if !ok {
		return Failure(jsonrpc.ErrorCodeMethodNotFound, fmt.Sprintf("method not found: %s", method), nil)
	}

	defer func() {
		if r := recover(); r != nil {
			e.log.ErrorContext(ctx, "engine.handler.panic", slog.Any("panic", r))
			out = Failure(jsonrpc.ErrorCodeInternalError, fmt.Sprintf("handler panicked: %v", r), nil)
		}
	}()

	res, err := h.Handle(ctx, e.state, params)
	if err != nil {
		return failureFromError(err)
	}
	return Result(res)
}

func failureFromError(err error) Outcome {
	var coder errorCoder
	if errors.As(err, &coder) {
		var data any
		if d, ok := coder.(errorDataer); ok {
			data = d.ErrorData()
		}
		return Failure(jsonrpc.ErrorCode(coder.ErrorCode()), coder.Error(), data)
	}
	return Failure(jsonrpc.ErrorCodeInternalError, err.Error(), nil)
}

// Encode serializes the response for out. If the result or error data cannot
// be encoded, it returns the fixed internal-error response for id instead.
func (e *Engine) Encode(ctx context.Context, id *jsonrpc.RequestID, out Outcome) jsonrpc.Message {
	var (
		resp *jsonrpc.Response
		err  error
	)
	if out.IsError() {
		resp = jsonrpc.NewErrorResponse(id, out.Code, out.Message, out.Data)
	} else {
		resp, err = jsonrpc.NewResultResponse(id, out.Result)
	}

	var body []byte
	if err == nil {
		body, err = json.Marshal(resp)
	}
	if err != nil {
		e.log.ErrorContext(ctx, "engine.encode.fail", slog.String("err", err.Error()))
		body, _ = json.Marshal(jsonrpc.NewErrorResponse(id, jsonrpc.ErrorCodeInternalError, EncodeFailureMessage, nil))
	}
	return body
}

// Cancel cancels the in-flight request with the given id. The request is
// answered with -32800 if its handler fails as a result.
func (e *Engine) Cancel(id string) bool {
	e.mu.Lock()
	cancel, ok := e.inflight[id]
	e.mu.Unlock()
	if ok {
		cancel(ErrRequestCancelled)
	}
	return ok
}

// InFlight returns the number of requests currently being handled.
func (e *Engine) InFlight() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.inflight)
}

func (e *Engine) track(ctx context.Context, id *jsonrpc.RequestID) (context.Context, context.CancelCauseFunc, bool) {
	reqCtx, cancel := context.WithCancelCause(ctx)
	key := id.String()

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.inflight[key]; exists {
		// Ids should be unique among in-flight requests. The first keeps
		// its cancel handle.
		e.log.WarnContext(ctx, "engine.handle_request.duplicate_id")
		return reqCtx, cancel, false
	}
	e.inflight[key] = cancel
	return reqCtx, cancel, true
}

func (e *Engine) untrack(id *jsonrpc.RequestID) {
	e.mu.Lock()
	delete(e.inflight, id.String())
	e.mu.Unlock()
}
