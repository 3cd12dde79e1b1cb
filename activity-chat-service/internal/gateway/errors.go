package gateway

import "errors"

// Request-level failures. Callers match them with errors.Is; the wrapped
// text carries the detail.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrPersistence  = errors.New("persistence failure")
	ErrNotInRoom    = errors.New("session has not joined the activity room")
)
