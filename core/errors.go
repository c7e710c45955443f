package core

import "fmt"

// Client-visible error codes carried on conversation_error.
const (
	CodeBadRequest = 400
	CodeInternal   = 500
)

// ClientError is an error that is safe to surface to the connected client.
type ClientError struct {
	Code    int
	Message string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("client error %d: %s", e.Code, e.Message)
}

// BadRequest builds a 400-class validation error.
func BadRequest(format string, args ...interface{}) *ClientError {
	return &ClientError{Code: CodeBadRequest, Message: fmt.Sprintf(format, args...)}
}

// Internal builds a generic 500-class error. The message is intentionally
// vague; details belong in the log, not on the wire.
func Internal() *ClientError {
	return &ClientError{Code: CodeInternal, Message: "internal error"}
}
