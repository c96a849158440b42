package lspservice

import "fmt"

// Error codes a handler may choose by returning an *Error.
const (
	CodeInvalidParams    = -32602
	CodeInternalError    = -32603
	CodeRequestCancelled = -32800
	CodeContentModified  = -32801
	CodeServerCancelled  = -32802
)

// Error is a handler failure carrying an explicit protocol error code. Any
// other error returned by a handler is reported as an internal error.
type Error struct {
	Code    int
	Message string
	Data    any
}

// NewError returns an *Error with the given code and message.
func NewError(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string { return e.Message }

// ErrorCode returns the protocol error code.
func (e *Error) ErrorCode() int { return e.Code }

// ErrorData returns the optional data member sent with the error.
func (e *Error) ErrorData() any { return e.Data }
