package inflight

import "errors"

var (
	// ErrAlreadyRegistered is returned by Register when a call for the key
	// is already pending.
	ErrAlreadyRegistered = errors.New("inflight: call already registered")

	// ErrCallPanicked is delivered to waiters when the leader's function panicked.
	ErrCallPanicked = errors.New("inflight: call panicked")
)
