// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error values and structured errors shared by the network core.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrNotSupported     = errors.New("operation not supported")
	ErrWouldBlock       = errors.New("operation would block")
	ErrPollerClosed     = errors.New("poller is closed")
	ErrUnresolvable     = errors.New("hostname could not be resolved")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrAlreadyRunning   = errors.New("server already running")
	ErrMalformedRequest = errors.New("malformed request line")
	ErrLineTooLong      = errors.New("request line or header too long")
	ErrBodyTooLarge     = errors.New("request body too large")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeNotSupported
	ErrCodeSocket
	ErrCodePoller
	ErrCodeResolve
	ErrCodeProtocol
	ErrCodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeInvalidArgument:
		return "invalid_argument"
	case ErrCodeNotSupported:
		return "not_supported"
	case ErrCodeSocket:
		return "socket"
	case ErrCodePoller:
		return "poller"
	case ErrCodeResolve:
		return "resolve"
	case ErrCodeProtocol:
		return "protocol"
	default:
		return "internal"
	}
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// Wrap creates a structured error around cause.
func Wrap(code ErrorCode, message string, cause error) *Error {
	e := NewError(code, message)
	e.Err = cause
	return e
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}
