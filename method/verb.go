package method

import "strings"

// Verb is the request verb of a method.
type Verb string

// Supported verbs.
const (
	Get     Verb = "GET"
	Post    Verb = "POST"
	Put     Verb = "PUT"
	Patch   Verb = "PATCH"
	Delete  Verb = "DELETE"
	Head    Verb = "HEAD"
	Options Verb = "OPTIONS"
)

// Verbs lists every supported verb.
var Verbs = []Verb{Get, Post, Put, Patch, Delete, Head, Options}

// ParseVerb parses a verb case-insensitively.
func ParseVerb(s string) (Verb, error) {
	v := Verb(strings.ToUpper(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", ErrInvalidVerb
	}
	return v, nil
}

// Valid reports whether v is a supported verb.
func (v Verb) Valid() bool {
	for _, known := range Verbs {
		if v == known {
			return true
		}
	}
	return false
}

// HasBody reports whether requests with this verb carry a body by default.
func (v Verb) HasBody() bool {
	switch v {
	case Post, Put, Patch, Delete:
		return true
	default:
		return false
	}
}

func (v Verb) String() string {
	return string(v)
}
