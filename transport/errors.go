package transport

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNilMethod is returned when Execute is called without a method.
	ErrNilMethod = errors.New("transport: method is nil")

	// ErrMissingSigningKey is returned when a JWT signer has no key.
	ErrMissingSigningKey = errors.New("transport: signing key is required")

	// ErrLimitReached is returned by a limited transport when no slot frees
	// up within its wait budget.
	ErrLimitReached = errors.New("transport: concurrency limit reached")
)

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	Code int
	Body []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("transport: unexpected status %d %s", e.Code, http.StatusText(e.Code))
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
