package method

import "errors"

// ErrInvalidVerb indicates an unsupported verb.
var ErrInvalidVerb = errors.New("method: verb is invalid")
