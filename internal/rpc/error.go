package rpc

// JSON-RPC 2.0 error codes, plus the application range.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// CodeProcessingFailed is the application-level code for classified
	// document pipeline failures. The error data carries the stable
	// failure code callers switch on.
	CodeProcessingFailed = -32001
)

// Error is a JSON-RPC error raised by dispatch or a handler.
type Error struct {
	Code    int
	Message string
	Data    any
}

func (e *Error) Error() string { return e.Message }

// NewError creates an Error without data.
func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorWithData creates an Error carrying structured data.
func NewErrorWithData(code int, message string, data any) *Error {
	return &Error{Code: code, Message: message, Data: data}
}
