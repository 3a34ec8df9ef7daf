package domain

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrTimeoutExceeded    = errors.New("timeout exceeded")
	ErrCollectionCanceled = errors.New("collection canceled")
	ErrPersistence        = errors.New("persistence failure")
	ErrUnknownStatus      = errors.New("unknown evidence status")
)
