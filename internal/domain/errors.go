package domain

import "errors"

// Errors shared by stores, services and transports. Wrap them with
// fmt.Errorf("...: %w") and test with errors.Is.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized access")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("resource already exists")
	ErrInvalidInput = errors.New("invalid input")
	// ErrInternal is the only thing callers are told about unexpected
	// failures; the cause goes to the log.
	ErrInternal = errors.New("internal server error")
)
