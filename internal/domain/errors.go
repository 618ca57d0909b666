package domain

import "errors"

var (
	// ErrNotFound is returned when a lookup by id or name matches nothing.
	// A search that legitimately matches no cards returns an empty result instead.
	ErrNotFound = errors.New("not found")

	// ErrConstraintViolation reports a duplicate note (same key-field values)
	// or a duplicate card front.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrInvalidOperation reports a scheduler transition that is not allowed
	// for the card's current state.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrMissingField is returned when note data lacks one of its model's key fields.
	ErrMissingField = errors.New("missing key field")
)
