package common

import "errors"

// Sentinel error kinds surfaced by the storage core, per spec.md §7. NotFound
// and Duplicate are deliberately absent here: the spec treats those as plain
// booleans returned by lookup/insert, never as errors.
var (
	// ErrOutOfMemory names the case where every frame in the pool is pinned
	// and a fresh page is required. The buffer pool reports that case as a
	// nil frame from FetchPage/NewPage and does not return this error.
	ErrOutOfMemory = errors.New("buffer pool: out of memory, all frames pinned")

	// ErrOutOfRange names a programming invariant violation: an index
	// accessor called with an index outside [0, size). The node accessors
	// in package index perform no range check and do not return it.
	ErrOutOfRange = errors.New("index: accessor index out of range")

	// ErrIOFailure marks a disk manager failure. It is fatal for the
	// operation in progress and is never retried by this layer.
	ErrIOFailure = errors.New("disk: I/O failure")
)
