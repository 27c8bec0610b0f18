// Package common defines shared constants and errors used across the
// bookshelf server layers. Callers should use errors.Is / errors.As to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Metadata store errors.
	ErrorUntracked = errors.New("entity was loaded untracked")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
