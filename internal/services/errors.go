package services

import (
	"context"
	"errors"
	"net"

	"github.com/SigNoz/retail-order-engine/internal/store"
)

// Kind classifies an operation failure. The value is stable and safe to show
// to callers.
type Kind string

const (
	KindValidation       Kind = "validation_failure"
	KindNotFound         Kind = "not_found"
	KindCapacityExceeded Kind = "capacity_exceeded"
	KindStateConflict    Kind = "state_conflict"
	KindForbidden        Kind = "authorization_denied"
	KindUpstream         Kind = "upstream_failure"
)

// Error is the typed failure every operation returns. Message is written for
// the end user; Err keeps the cause for logs.
type Error struct {
	Kind      Kind
	Message   string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or "" when err is not a typed failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func NotFound(msg string, err error) *Error {
	return &Error{Kind: KindNotFound, Message: msg, Err: err}
}

func CapacityExceeded(msg string) *Error {
	return &Error{Kind: KindCapacityExceeded, Message: msg}
}

func Conflict(msg string, err error) *Error {
	return &Error{Kind: KindStateConflict, Message: msg, Err: err}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// Upstream marks a failed call to a collaborator. Timeouts and temporary
// failures are retryable.
func Upstream(msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: msg, Retryable: temporary(err), Err: err}
}

func temporary(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var tmp interface{ Temporary() bool }
	return errors.As(err, &tmp) && tmp.Temporary()
}

// fromStore turns an error escaping a unit of work into a typed failure.
// Typed failures pass through; anything unrecognised is returned as is and
// treated as internal by the caller.
func fromStore(err error, what string) error {
	if err == nil {
		return nil
	}
	var e *Error
	switch {
	case errors.As(err, &e):
		return err
	case errors.Is(err, store.ErrNotFound):
		return NotFound(what+" not found", err)
	case errors.Is(err, store.ErrConflict):
		return Conflict(what+" was changed concurrently, please retry", err)
	case errors.Is(err, context.DeadlineExceeded):
		return Upstream("storage did not respond in time", err)
	default:
		return err
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
