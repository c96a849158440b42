// Package lspservice defines the handler-facing side of the server: the
// dispatch table that maps method names to handlers, the server state shared
// by every in-flight request, and the built-in handlers for the session
// lifecycle and text synchronization.
//
// Conventions used throughout this package:
//   - A Handler receives the request context, the shared *State and the raw
//     params, and returns a JSON-serializable result or an error. A nil result
//     is sent as JSON null.
//   - Errors become JSON-RPC error responses with code -32603 (internal
//     error) and the error text as message, unless the error is (or wraps) a
//     *Error, whose code is used instead.
//   - Handlers for notifications may return anything; the result is logged
//     and discarded.
//   - Handlers MUST honor ctx cancellation. The context is cancelled when the
//     server stops.
//
// Quick start:
//
//	reg := lspservice.NewRegistry()
//	lspservice.RegisterBuiltins(reg)
//	reg.MustRegister("textDocument/hover", lspservice.Typed(
//	    func(ctx context.Context, st *lspservice.State, p lsp.CompletionParams) (any, error) {
//	        return nil, nil
//	    },
//	))
//	h := stdio.NewHandler(reg)
//	if err := h.Serve(context.Background()); err != nil { log.Fatal(err) }
package lspservice
