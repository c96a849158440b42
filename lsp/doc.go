// Package lsp contains the editor-protocol data types and constants shared by
// the transport and the handler packages. It mirrors the wire representation
// of the Language Server Protocol for the subset of messages this server
// understands while keeping the surface Go-friendly (exported structs with
// json tags, string constants for method names and enumerations).
//
// The package is intentionally free of transport logic: framing, scheduling
// and dispatch live in the stdio and engine packages. Handler packages (e.g.
// lspservice) decode params into these types and return them as results for
// the engine to serialize.
//
// # Method Names
//
// Wire method names are enumerated as Method constants (e.g.
// TextDocumentCompletionMethod). They keep their "/"-separated form; the
// dispatch table normalizes them when registering and looking up handlers.
//
// # Capabilities
//
// ServerCapabilities captures the features advertised in the initialize
// result. Client capabilities are kept as raw JSON since the server only
// records them.
package lsp
