// Package corerr defines the error taxonomy shared by every hikecore
// package. Each failure mode is a small, comparable code so callers can
// branch on it with errors.Is instead of parsing messages.
package corerr

import (
	"errors"
	"fmt"
)

// Code identifies a category of failure.
type Code string

const (
	InvalidCoordinate Code = "INVALID_COORDINATE"
	MissingTile       Code = "MISSING_TILE"
	CorruptTile       Code = "CORRUPT_TILE"
	InvalidOsmInput   Code = "INVALID_OSM_INPUT"
	NoNearbyNode      Code = "NO_NEARBY_NODE"
	NoRouteFound      Code = "NO_ROUTE_FOUND"
	BusyRetry         Code = "BUSY_RETRY"
	Cancelled         Code = "CANCELLED"
)

// Error is the structured error type returned by hikecore packages.
type Error struct {
	Code     Code
	Message  string
	Guidance string
	cause    error
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error that preserves cause for errors.Unwrap/errors.As.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// WithGuidance attaches a human-readable suggestion and returns the receiver.
func (e *Error) WithGuidance(guidance string) *Error {
	e.Guidance = guidance
	return e
}

func (e *Error) Error() string {
	if e.Guidance != "" {
		return fmt.Sprintf("%s: %s. %s", e.Code, e.Message, e.Guidance)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same Code, which lets
// callers write errors.Is(err, corerr.New(corerr.NoRouteFound, "")).
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// Of returns true if err is, or wraps, an *Error with the given code.
func Of(err error, code Code) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}
