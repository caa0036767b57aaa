package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrEmptyTrainingSet = errors.New("empty training set")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")

	// ErrCorrupt marks a persisted record that references an ID the store
	// cannot resolve, or that fails to decode. It is never a lookup miss.
	ErrCorrupt = errors.New("corrupt model data")
)
