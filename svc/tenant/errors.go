package tenant

import "errors"

var (
	// ErrUnauthenticated is returned by AuthenticateToken whenever the
	// token does not resolve to an active user, whether because it is
	// unknown, suspended, expired, or the upstream verify call failed.
	ErrUnauthenticated = errors.New("tenant: unauthenticated")

	// ErrNotFound is returned by GetInstance when no on-disk config
	// exists for userId. Not an error outcome; callers treat it as a
	// miss.
	ErrNotFound = errors.New("tenant: not found")
)
