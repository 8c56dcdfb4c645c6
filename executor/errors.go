package executor

import "errors"

var (
	// ErrNilMethod is returned when Execute is called without a method.
	ErrNilMethod = errors.New("executor: method is nil")

	// ErrNilTransport is returned by New without a transport.
	ErrNilTransport = errors.New("executor: transport is nil")

	// ErrTransform wraps failures of a method's response transform.
	ErrTransform = errors.New("executor: transform failed")
)
