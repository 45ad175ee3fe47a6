// Package errors holds sentinel errors shared by the storage layer and the
// HTTP handlers that map them to status codes.
package errors

import "errors"

var (
	// ErrNotFound is returned when a record does not exist or is not owned
	// by the caller.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when a unique constraint is violated.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidCredentials is returned when an email/password pair does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken is returned for missing, malformed or expired access tokens.
	ErrInvalidToken = errors.New("invalid token")
)
