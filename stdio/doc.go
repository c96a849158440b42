// Package stdio implements the single-connection transport of the language
// server over stdin/stdout, plus a TCP variant for development.
//
// Characteristics
//
//	Connection model : 1 process <-> 1 client
//	Framing          : "Content-Length: n\r\n" headers, blank line, n bytes of JSON
//	Threads          : one frame reader goroutine, one dispatch loop that runs
//	                   handlers in arrival order, one task per suspending handler
//	Shutdown         : exit notification, end of input, or context cancellation
//
// Options allow supplying alternate io.Reader / io.Writer, a custom logger, a
// document store and metrics.
//
// Example:
//
//	reg := lspservice.NewDefaultRegistry()
//	h := stdio.NewHandler(reg)
//	if err := h.Serve(context.Background()); err != nil { log.Fatal(err) }
package stdio
