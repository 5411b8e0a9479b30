package store

import "errors"

// Sentinel kinds for store errors.
var (
	ErrInvalidPath = errors.New("invalid store path")
)
