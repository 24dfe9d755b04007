/*
errors.go - Centralized error types for the wallet engine

PURPOSE:
  All error types in one place for consistency and discoverability.

ERROR CATEGORIES:
  1. Storage errors - KV persistence medium failures
  2. Codec errors - Snapshot serialization problems

NOTE ON PRECONDITION FAILURES:
  Non-positive amounts, insufficient balance, an empty pending bucket, and
  rate-limit rejection are NOT errors. The mutating operations signal them
  with a boolean false return and zero state mutation, so callers retry or
  ignore without exception-style handling. Only the storage and codec
  layers return error values, and even those are recovered locally: a
  corrupt snapshot falls back to the zero state, a failed write is
  swallowed by the mutation that triggered it.

SEE ALSO:
  - persist.go: Uses these errors
  - engine.go: Swallows ErrWriteFailed on the mutation path
*/
package wallet

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrWriteFailed is returned by the internal persist path when the KV
	// medium rejects a write (e.g. quota exceeded). The in-memory mutation
	// is kept; the next load may not reflect it.
	ErrWriteFailed = errors.New("wallet write failed")

	// ErrCorruptSnapshot is returned by the codec when the stored snapshot
	// is not valid JSON. The loader discards it and starts from zero state.
	ErrCorruptSnapshot = errors.New("corrupt wallet snapshot")

	// ErrClosed is returned by KV implementations after Close.
	ErrClosed = errors.New("store closed")
)

// WriteError carries the key that failed to persist.
type WriteError struct {
	Key string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("wallet write failed for key %q: %v", e.Key, e.Err)
}

// Unwrap exposes the medium's underlying failure; Is additionally matches
// the ErrWriteFailed sentinel so both errors.Is checks work.
func (e *WriteError) Unwrap() error { return e.Err }

func (e *WriteError) Is(target error) bool { return target == ErrWriteFailed }

// IsRecoverable reports whether the error has a defined safe fallback.
// Every error this package produces does; the helper exists so callers can
// assert that contract instead of assuming it.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrWriteFailed) || errors.Is(err, ErrCorruptSnapshot)
}
