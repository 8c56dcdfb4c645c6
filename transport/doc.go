// Package transport performs the network call behind a method.
//
// The executor only depends on the Transport interface. HTTPTransport is the
// stock implementation over net/http: it encodes the body and query params,
// applies headers and an optional bearer token from a TokenSource, bounds the
// call by the method timeout and decodes JSON responses into generic values.
// Non-2xx responses are returned as *StatusError.
package transport
