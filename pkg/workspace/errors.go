package workspace

import "errors"

var (
	// ErrNotFound is returned by read when custom, template, and builtin
	// layers all miss. Callers should treat it as a non-fatal miss, not a
	// fault.
	ErrNotFound = errors.New("workspace: file not found")

	// ErrStorage wraps unexpected filesystem faults from read/write/list
	// operations other than a plain missing file.
	ErrStorage = errors.New("workspace: storage error")
)
