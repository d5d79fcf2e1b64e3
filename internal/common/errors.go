// Package common defines shared constants and sentinel errors used across
// client and server layers of FieldKeeper. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// ErrLocalStore marks a row that could not be decoded from the local
	// store. The affected entity is skipped, the pass continues.
	ErrLocalStore = errors.New("local store corruption")

	// Sync state machine errors.
	ErrTombstoned        = errors.New("entity is tombstoned")
	ErrInvalidTransition = errors.New("invalid sync state transition")
	ErrSyncInProgress    = errors.New("sync already in progress")

	// Remote errors.
	ErrUnavailable    = errors.New("server unavailable")
	ErrRemoteRejected = errors.New("remote rejected request")
	ErrUnauthorized   = errors.New("unauthorized")

	// Validation errors.
	ErrValidation = errors.New("validation error")

	// Token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
