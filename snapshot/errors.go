package snapshot

import "errors"

var (
	// ErrInvalidLimit is returned when a negative snapshot limit is set.
	ErrInvalidLimit = errors.New("snapshot: limit must not be negative")

	// ErrInvalidPattern is returned when a name pattern does not compile.
	ErrInvalidPattern = errors.New("snapshot: pattern is invalid")
)
