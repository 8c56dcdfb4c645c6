// Package snapshot keeps named method descriptors so they can be found again
// by name or pattern, independently of execution and caching.
//
// A Store holds one ordered sequence per (owner, name). Each sequence is a
// sliding window capped at the store's limit: saving past the limit evicts
// the oldest entry of that sequence. Matching scans entries in global
// registration order, across owners unless a query restricts it to one.
package snapshot
