// Package common defines shared constants and sentinel errors used across
// client and server layers of PlayKeeper. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Sync taxonomy. Every error leaving the engine is classified with one of
	// these so the scheduler can decide between backoff and surfacing.
	ErrTransientNetwork = errors.New("transient network error")
	ErrRemoteRejected   = errors.New("remote rejected")
	ErrLocalStore       = errors.New("local store error")

	// ErrVersionConflict is returned when the remote holds a newer version of a
	// record than the one the client based its edit on.
	ErrVersionConflict = errors.New("version conflict")

	// Record lifecycle errors.
	ErrRecordInConflict = errors.New("record is in conflict")
	ErrRecordDeleted    = errors.New("record is deleted")
	ErrNoOwnerAnchor    = errors.New("record has no owner anchor")

	// Unique code allocation.
	ErrCodeTaken           = errors.New("code already taken")
	ErrAllocationExhausted = errors.New("code allocation exhausted")

	// Validation errors.
	ErrInvalidArgument = errors.New("invalid argument")
	ErrAlreadyExists   = errors.New("already exists")
	ErrNotMember       = errors.New("not a group member")
)

// IsRetryable reports whether err is worth retrying later without user action.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientNetwork)
}

// IsAuthFailure reports whether err means the session itself was refused,
// as opposed to the request it carried.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrorUnauthorized) || errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrTokenExpired)
}
