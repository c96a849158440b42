package jsonrpc

import "fmt"

// ErrorCode is a JSON-RPC 2.0 error code.
type ErrorCode int

const (
	// ErrorCodeParseError indicates invalid JSON was received by the server.
	ErrorCodeParseError ErrorCode = -32700
	// ErrorCodeInvalidRequest indicates the JSON sent is not a valid Request object.
	ErrorCodeInvalidRequest ErrorCode = -32600
	// ErrorCodeMethodNotFound indicates the method does not exist / is not available.
	ErrorCodeMethodNotFound ErrorCode = -32601
	// ErrorCodeInvalidParams indicates invalid method parameters.
	ErrorCodeInvalidParams ErrorCode = -32602
	// ErrorCodeInternalError indicates an internal JSON-RPC error.
	ErrorCodeInternalError ErrorCode = -32603

	// ErrorCodeRequestCancelled indicates the client cancelled the request.
	ErrorCodeRequestCancelled ErrorCode = -32800
	// ErrorCodeContentModified indicates the document changed underneath the request.
	ErrorCodeContentModified ErrorCode = -32801
	// ErrorCodeServerCancelled indicates the server cancelled the request.
	ErrorCodeServerCancelled ErrorCode = -32802
)

// String returns a short symbolic name for well-known codes.
func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeParseError:
		return "parse_error"
	case ErrorCodeInvalidRequest:
		return "invalid_request"
	case ErrorCodeMethodNotFound:
		return "method_not_found"
	case ErrorCodeInvalidParams:
		return "invalid_params"
	case ErrorCodeInternalError:
		return "internal_error"
	case ErrorCodeRequestCancelled:
		return "request_cancelled"
	case ErrorCodeContentModified:
		return "content_modified"
	case ErrorCodeServerCancelled:
		return "server_cancelled"
	default:
		return fmt.Sprintf("code_%d", int(c))
	}
}

// Error is a JSON-RPC error object. It implements the error interface so that
// handlers can return it directly to choose the code sent to the peer.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Data    any       `json:"data"`
}

// NewError builds an *Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", int(e.Code), e.Message)
}

// ErrorCode returns the numeric code. It lets the engine pick the code of a
// returned error without depending on the concrete type.
func (e *Error) ErrorCode() int { return int(e.Code) }

// ErrorData returns the optional data member.
func (e *Error) ErrorData() any { return e.Data }
