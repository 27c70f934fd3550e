package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Token stores and the realtime layer
// return these (optionally wrapped) so callers can translate them into domain errors.
//
// - ErrNotFound: key or entity does not exist in the backing store
// - ErrUnavailable: backing service or connection temporarily unavailable
// - ErrClosed: resource was closed and cannot be used again
// - ErrInvalidState: resource in the wrong state for the requested operation
var (
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("unavailable")
	ErrClosed       = errors.New("closed")
	ErrInvalidState = errors.New("invalid state")
)
