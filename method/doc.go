// Package method describes callable request operations.
//
// A Method is an immutable-by-convention record of one operation: verb,
// target, body and a configuration bag. Its identity key is derived
// deterministically from the fields that define the logical request, so two
// methods describing the same request share cache entries and in-flight
// calls.
package method
