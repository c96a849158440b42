package engine

import "github.com/ggoodman/zoof-lsp/internal/jsonrpc"

// OutcomeKind tells which branch of an Outcome is populated.
type OutcomeKind int

const (
	// OutcomeResult means the handler produced a value.
	OutcomeResult OutcomeKind = iota
	// OutcomeError means lookup or the handler failed.
	OutcomeError
)

func (k OutcomeKind) String() string {
	if k == OutcomeError {
		return "error"
	}
	return "ok"
}

// Outcome is the result of invoking a handler: either a value or an error
// carrying a protocol code. It is built once per message and turned into a
// Response only for requests.
type Outcome struct {
	Kind   OutcomeKind
	Result any

	Code    jsonrpc.ErrorCode
	Message string
	Data    any
}

// Result returns a successful Outcome.
func Result(v any) Outcome {
	return Outcome{Kind: OutcomeResult, Result: v}
}

// Failure returns an error Outcome.
func Failure(code jsonrpc.ErrorCode, message string, data any) Outcome {
	return Outcome{Kind: OutcomeError, Code: code, Message: message, Data: data}
}

// IsError reports whether o is the error branch.
func (o Outcome) IsError() bool { return o.Kind == OutcomeError }
