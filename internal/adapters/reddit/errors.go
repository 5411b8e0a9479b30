package reddit

import "errors"

// Sentinel errors for the reddit adapter.
var (
	// ErrUnexpectedStatus indicates a non-200 response from the API.
	ErrUnexpectedStatus = errors.New("unexpected response status")
)
