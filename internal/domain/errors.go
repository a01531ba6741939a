package domain

import "errors"

var (
	// ErrInvalidMutationKind is returned when a name or value is outside
	// the MutationKind enumeration.
	ErrInvalidMutationKind = errors.New("invalid mutation kind")

	// ErrValidation marks malformed mutation arguments or event details.
	ErrValidation = errors.New("validation error")
)
