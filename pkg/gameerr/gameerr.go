// Package gameerr defines the error kinds shared by every economy operation.
//
// Operations wrap one of the sentinels below with eris so callers can both
// print a readable message and classify the failure with errors.Is.
package gameerr

import (
	"errors"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	// ErrNotFound covers unknown items, offers, trades and sales.
	ErrNotFound = eris.New("not found")

	// ErrInsufficientResource means a balance or item quantity is too low.
	ErrInsufficientResource = eris.New("insufficient resources")

	// ErrStateConflict means the request contradicts current state
	// (already trading, self-trade, counterparty not permitted, duplicate offer).
	ErrStateConflict = eris.New("state conflict")

	// ErrValidation means the request itself is malformed.
	ErrValidation = eris.New("validation failed")

	// ErrStoreUnavailable means the backing store call failed.
	ErrStoreUnavailable = eris.New("store unavailable")
)

// Kind is a coarse classification used by transports to pick a message category.
type Kind string

const (
	KindNotFound             Kind = "NOT_FOUND"
	KindInsufficientResource Kind = "INSUFFICIENT_RESOURCE"
	KindStateConflict        Kind = "STATE_CONFLICT"
	KindValidation           Kind = "VALIDATION_ERROR"
	KindStoreUnavailable     Kind = "STORE_UNAVAILABLE"
	KindInternal             Kind = "INTERNAL_ERROR"
)

// NotFound wraps ErrNotFound with a formatted description.
func NotFound(format string, args ...any) error {
	return eris.Wrapf(ErrNotFound, format, args...)
}

// Insufficient wraps ErrInsufficientResource with a formatted description.
func Insufficient(format string, args ...any) error {
	return eris.Wrapf(ErrInsufficientResource, format, args...)
}

// Conflict wraps ErrStateConflict with a formatted description.
func Conflict(format string, args ...any) error {
	return eris.Wrapf(ErrStateConflict, format, args...)
}

// Invalid wraps ErrValidation with a formatted description.
func Invalid(format string, args ...any) error {
	return eris.Wrapf(ErrValidation, format, args...)
}

// Unavailable joins a store failure with ErrStoreUnavailable.
func Unavailable(err error, format string, args ...any) error {
	return eris.Wrapf(errors.Join(ErrStoreUnavailable, err), format, args...)
}

// KindOf classifies err. Unclassified errors are KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInsufficientResource):
		return KindInsufficientResource
	case errors.Is(err, ErrStateConflict):
		return KindStateConflict
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrStoreUnavailable):
		return KindStoreUnavailable
	default:
		return KindInternal
	}
}

// Message returns the description an operation attached to err, without the
// sentinel text eris appends.
func Message(err error) string {
	msg := err.Error()
	for _, s := range []error{ErrNotFound, ErrInsufficientResource, ErrStateConflict, ErrValidation, ErrStoreUnavailable} {
		if trimmed, ok := strings.CutSuffix(msg, ": "+s.Error()); ok {
			return trimmed
		}
	}
	return msg
}
