// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service/transport layers.
var (
	// ErrNotFound indicates the requested note does not exist for the principal.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a create for an id the principal already owns.
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation indicates malformed input rejected before touching storage.
	ErrValidation = errors.New("validation")

	// ErrUnauthorized indicates a missing or invalid bearer credential.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTransport indicates a network or remote I/O failure. A sync round
	// that hits it is aborted and can be retried as is.
	ErrTransport = errors.New("transport failure")
)
