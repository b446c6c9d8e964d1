package domain

import (
	"errors"
	"fmt"
)

// Transport failure classes. Transport implementations wrap one of these.
var (
	ErrTransportInit    = errors.New("transport init failure")
	ErrTransportPerform = errors.New("transport perform failure")
	ErrTransportGetInfo = errors.New("transport getinfo failure")
)

// Admission rejections returned by Submit. None of them produce an outcome.
var (
	ErrNotRunning   = errors.New("orchestrator is not running")
	ErrPoolDisabled = errors.New("worker pool is disabled, cannot download asynchronously")
	ErrDuplicate    = errors.New("a request for this url is already outstanding")
)

// Error carries the classification of a failed operation together with the
// status code observed, if any.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d)", e.Kind, e.StatusCode)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an *Error.
func NewError(kind ErrorKind, status int, err error) *Error {
	return &Error{Kind: kind, StatusCode: status, Err: err}
}

func invalid(msg string) *Error {
	return &Error{Kind: KindInvalidArgument, Err: errors.New(msg)}
}

// KindOf classifies an error. nil is a success; unknown errors are treated as
// transport perform failures.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindSuccess
	}

	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}

	switch {
	case errors.Is(err, ErrTransportInit):
		return KindTransportInit
	case errors.Is(err, ErrTransportGetInfo):
		return KindTransportGetInfo
	default:
		return KindTransportPerform
	}
}
