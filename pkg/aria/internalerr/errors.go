// Package internalerr defines the sentinel errors shared across ARIA's
// core packages, matched with errors.Is at call sites.
package internalerr

import "errors"

// Sentinel errors for the four error kinds the store and core wrap their failures in.
var (
	// ErrBackend wraps a Store I/O failure (transient network/DB).
	ErrBackend = errors.New("aria: backend error")

	// ErrConflict signals a unique-key collision on pair insert; the
	// pair engine recovers by falling through to the reinforce branch
	// within the same tick.
	ErrConflict = errors.New("aria: conflict")

	// ErrInvalidInput signals empty text or a missing user/message id.
	// process_message returns {processed:false, reason} without
	// advancing the counter; this error never reaches the caller.
	ErrInvalidInput = errors.New("aria: invalid input")

	// ErrNotFound signals a lookup that returned nothing. Always
	// recoverable: callers create-on-write or treat it as empty.
	ErrNotFound = errors.New("aria: not found")
)
