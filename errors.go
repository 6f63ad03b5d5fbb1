package payqr

import "errors"

var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned when a token is missing, unknown, or
	// lacks the permissions a route requires
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
)
