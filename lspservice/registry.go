package lspservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Handler serves a single method.
type Handler interface {
	Handle(ctx context.Context, st *State, params json.RawMessage) (any, error)
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(ctx context.Context, st *State, params json.RawMessage) (any, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, st *State, params json.RawMessage) (any, error) {
	return f(ctx, st, params)
}

// Typed returns a Handler that decodes params into P before calling fn.
// Absent or null params leave P at its zero value. Params that do not decode
// fail with an invalid-params *Error.
func Typed[P any](fn func(ctx context.Context, st *State, params P) (any, error)) Handler {
	return HandlerFunc(func(ctx context.Context, st *State, raw json.RawMessage) (any, error) {
		var p P
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
			}
		}
		return fn(ctx, st, p)
	})
}

// Suspending marks h as a handler that may block, for example on I/O or on
// a cancellation. Other handlers run to completion on the dispatch loop in
// the order their messages arrived; a suspending handler runs as its own task
// and may finish after messages that arrived later.
func Suspending(h Handler) Handler {
	if h == nil {
		return nil
	}
	return suspendingHandler{Handler: h}
}

type suspendingHandler struct {
	Handler
}

// IsSuspending reports whether h was wrapped with Suspending.
func IsSuspending(h Handler) bool {
	_, ok := h.(suspendingHandler)
	return ok
}

var (
	// ErrRegistryFrozen is returned when registering after the server started.
	ErrRegistryFrozen = errors.New("lspservice: registry is frozen")
	// ErrDuplicateMethod is returned when a method already has a handler.
	ErrDuplicateMethod = errors.New("lspservice: method already registered")
	// ErrInvalidRegistration is returned for an empty method or nil handler.
	ErrInvalidRegistration = errors.New("lspservice: invalid registration")
)

// NormalizeMethod maps a wire method name to its dispatch-table key by
// replacing the "/" namespace separator with "_".
func NormalizeMethod(method string) string {
	return strings.ReplaceAll(method, "/", "_")
}

// Registry is the dispatch table. It accepts registrations until Freeze is
// called and is read-only afterwards. Keys are normalized method names, so
// "textDocument/didOpen" and "textDocument_didOpen" name the same entry.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	frozen   bool
}

// NewRegistry returns an empty, unfrozen Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds h under method.
func (r *Registry) Register(method string, h Handler) error {
	if method == "" || h == nil {
		return fmt.Errorf("%w: method=%q", ErrInvalidRegistration, method)
	}
	if f, ok := h.(HandlerFunc); ok && f == nil {
		return fmt.Errorf("%w: nil HandlerFunc for %q", ErrInvalidRegistration, method)
	}

	key := NormalizeMethod(method)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("%w: %q", ErrRegistryFrozen, method)
	}
	if _, exists := r.handlers[key]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateMethod, method)
	}
	r.handlers[key] = h
	return nil
}

// MustRegister is like Register but panics on error. Registration mistakes
// are programming errors and should fail at startup.
func (r *Registry) MustRegister(method string, h Handler) {
	if err := r.Register(method, h); err != nil {
		panic(err)
	}
}

// MustRegisterFunc registers a plain function.
func (r *Registry) MustRegisterFunc(method string, fn func(ctx context.Context, st *State, params json.RawMessage) (any, error)) {
	if fn == nil {
		panic(fmt.Errorf("%w: nil func for %q", ErrInvalidRegistration, method))
	}
	r.MustRegister(method, HandlerFunc(fn))
}

// Freeze makes the registry read-only. It is safe to call more than once.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Lookup resolves a wire method name to its handler.
func (r *Registry) Lookup(method string) (Handler, bool) {
	key := NormalizeMethod(method)
	r.mu.RLock()
	h, ok := r.handlers[key]
	r.mu.RUnlock()
	return h, ok
}

// Methods lists the registered (normalized) method names in sorted order.
func (r *Registry) Methods() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		out = append(out, k)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}
