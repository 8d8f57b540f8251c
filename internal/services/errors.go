package services

import "github.com/pkg/errors"

// Sentinel errors for the service layer. Callers classify with errors.Is;
// handlers map them onto HTTP status codes. Storage errors are returned
// wrapped but unclassified: the core never retries them.
var (
	// ErrValidation marks malformed input: bad periods, non-positive
	// payment amounts, missing required fields.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a reference to a row that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks invoice-number allocation exhaustion. The retry
	// loop recovers ordinary collisions; this surfaces only when it gives up.
	ErrConflict = errors.New("conflict")
)
