package client

import "errors"

var (
	// ErrConfiguration reports invalid configuration, including mixing
	// states hooks within one runtime.
	ErrConfiguration = errors.New("client: invalid configuration")

	// ErrForeignMethod is returned when a client is asked to send a method
	// created by another client.
	ErrForeignMethod = errors.New("client: method belongs to another client")

	// ErrNilMethod is returned when a method argument is nil.
	ErrNilMethod = errors.New("client: method is nil")
)
