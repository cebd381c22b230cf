package apierror

import "errors"

// Error codes carried in the error object of a wire Response.
const (
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeNotFound        = "NOT_FOUND"
	CodeAuthFailed      = "AUTH_FAILED"
	CodeNotLoggedIn     = "NOT_LOGGED_IN"
	CodeSessionTimeout  = "SESSION_TIMEOUT"
	CodeOutOfStock      = "OUT_OF_STOCK"
	CodeUnimplemented   = "UNIMPLEMENTED"
	CodeUnavailable     = "UNAVAILABLE"
)

// Error represents a structured service error carried on the wire.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target is an *Error with the same code, so that
// errors.Is can match on the taxonomy rather than the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// From maps any error onto the wire taxonomy: typed errors pass through
// unchanged, anything else (a store or transport failure) surfaces as
// UNAVAILABLE.
func From(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Unavailable(err.Error())
}

// InvalidArgument creates an INVALID_ARGUMENT error.
func InvalidArgument(message string) *Error {
	return &Error{Code: CodeInvalidArgument, Message: message}
}

// NotFound creates a NOT_FOUND error.
func NotFound(message string) *Error {
	if message == "" {
		message = "resource not found"
	}
	return &Error{Code: CodeNotFound, Message: message}
}

// AuthFailed creates an AUTH_FAILED error.
func AuthFailed(message string) *Error {
	if message == "" {
		message = "invalid credentials"
	}
	return &Error{Code: CodeAuthFailed, Message: message}
}

// NotLoggedIn creates a NOT_LOGGED_IN error.
func NotLoggedIn(message string) *Error {
	if message == "" {
		message = "invalid session"
	}
	return &Error{Code: CodeNotLoggedIn, Message: message}
}

// SessionTimeout creates a SESSION_TIMEOUT error.
func SessionTimeout(message string) *Error {
	if message == "" {
		message = "session expired"
	}
	return &Error{Code: CodeSessionTimeout, Message: message}
}

// OutOfStock creates an OUT_OF_STOCK error.
func OutOfStock(message string) *Error {
	if message == "" {
		message = "requested quantity not available"
	}
	return &Error{Code: CodeOutOfStock, Message: message}
}

// Unimplemented creates an UNIMPLEMENTED error for an unknown api name.
func Unimplemented(message string) *Error {
	return &Error{Code: CodeUnimplemented, Message: message}
}

// Unavailable creates an UNAVAILABLE error, surfaced when a peer could not
// be reached even after the transport's single reconnect attempt.
func Unavailable(message string) *Error {
	if message == "" {
		message = "service temporarily unavailable"
	}
	return &Error{Code: CodeUnavailable, Message: message}
}
