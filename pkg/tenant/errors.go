package tenant

import "errors"

var (
	// ErrInvalidUserID is returned when a raw user id sanitizes to empty or
	// exceeds MaxUserIDLength. Never retried by the core.
	ErrInvalidUserID = errors.New("tenant: invalid user id")

	// ErrNotFound is returned when no tenant exists on disk or upstream for
	// a given id or token. Treated as a non-error outcome by callers.
	ErrNotFound = errors.New("tenant: not found")
)
