package chex

import "errors"

var (
	// ErrNotInitialized indicates an accessor was used before Init.
	ErrNotInitialized = errors.New("chex: Init must be called first")

	// ErrNotifierClosed indicates the exit notifier was missing or
	// unusable while delivering a signal. This is an internal invariant
	// violation and is treated as unrecoverable.
	ErrNotifierClosed = errors.New("chex: exit notifier is closed")
)
