package repository

import "errors"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrValidation is returned when input fails validation before any
	// write is attempted.
	ErrValidation = errors.New("validation failed")

	// ErrStoreUnavailable is returned when the durable store cannot serve
	// a read or write. Callers must treat the operation as not having
	// happened.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrDuplicateEmail is returned when registering an email that is
	// already taken.
	ErrDuplicateEmail = errors.New("email already registered")
)
