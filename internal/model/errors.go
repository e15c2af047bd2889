package model

import (
	"errors"
	"fmt"
)

// SyncErrorKind classifies a failure of a sync step.
type SyncErrorKind string

const (
	// KindUnreachable: transport failure or timeout. Always retryable.
	KindUnreachable SyncErrorKind = "unreachable"
	// KindServerError: the remote answered with a non-2xx status.
	KindServerError SyncErrorKind = "server_error"
	// KindMalformed: the remote answered 2xx with a payload that cannot be applied.
	KindMalformed SyncErrorKind = "malformed"
	// KindStoreFailure: the local store is unavailable. Operator-actionable.
	KindStoreFailure SyncErrorKind = "store_failure"
)

var (
	ErrUnreachable  = errors.New("remote unreachable")
	ErrServer       = errors.New("remote server error")
	ErrMalformed    = errors.New("malformed remote payload")
	ErrStoreFailure = errors.New("local store failure")

	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidOrder  = errors.New("invalid order")
)

// SyncError is the error type returned by the sync layer
type SyncError struct {
	Kind   SyncErrorKind
	Op     string
	Status int // HTTP status for KindServerError
	Err    error
}

func (e *SyncError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Kind == KindServerError && e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match a SyncError against the kind sentinels
func (e *SyncError) Is(target error) bool {
	switch target {
	case ErrUnreachable:
		return e.Kind == KindUnreachable
	case ErrServer:
		return e.Kind == KindServerError
	case ErrMalformed:
		return e.Kind == KindMalformed
	case ErrStoreFailure:
		return e.Kind == KindStoreFailure
	}
	return false
}

func Unreachable(op string, err error) error {
	return &SyncError{Kind: KindUnreachable, Op: op, Err: err}
}

func ServerError(op string, status int, err error) error {
	return &SyncError{Kind: KindServerError, Op: op, Status: status, Err: err}
}

func Malformed(op string, err error) error {
	return &SyncError{Kind: KindMalformed, Op: op, Err: err}
}

func StoreFailure(op string, err error) error {
	return &SyncError{Kind: KindStoreFailure, Op: op, Err: err}
}

// KindOf returns the kind of a sync error, or "" for nil and foreign errors
func KindOf(err error) SyncErrorKind {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// StatusOf returns the HTTP status carried by a server error, or 0
func StatusOf(err error) int {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

// Retryable reports whether the next cycle may succeed without operator action
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindUnreachable, KindServerError, KindMalformed:
		return true
	}
	return false
}
