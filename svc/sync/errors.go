package sync

import "errors"

var (
	// ErrUnauthorized is returned by CloudClient.VerifyToken on a 401
	// response: the token is known-invalid, not a transport fault.
	ErrUnauthorized = errors.New("sync: token rejected by cloud backend")

	// ErrTransport wraps a non-2xx, non-401 response or a network fault
	// from any cloud-backend call.
	ErrTransport = errors.New("sync: cloud backend transport error")
)
