// Package errors defines all exported error sentinels for the kdftable library.
//
// This is the single source of truth for error values. Both the top-level
// kdftable package and the internal backend packages import from here,
// ensuring errors.Is checks work across package boundaries.
package errors

import "errors"

// Configuration errors, reported before any hashing starts
var (
	ErrInvalidParams  = errors.New("kdftable: invalid backend parameters")
	ErrUnknownBackend = errors.New("kdftable: unknown backend")
	ErrInvalidRange   = errors.New("kdftable: keyspace range outside [1, 99999998] or inverted")
	ErrInvalidWorkers = errors.New("kdftable: worker count must not be negative")
	ErrMemoryBudget   = errors.New("kdftable: memory budget too small for table and one in-flight hash")
)

// Fill errors
var (
	ErrRowHash = errors.New("kdftable: row hash failed, fill aborted")
)

// Table lifecycle errors
var (
	ErrTableClosed  = errors.New("kdftable: table is closed")
	ErrTableFilled  = errors.New("kdftable: table is already filled")
	ErrTableAborted = errors.New("kdftable: table fill was aborted, discard the table")
	ErrTableEmpty   = errors.New("kdftable: table has not been filled")
	ErrTableBusy    = errors.New("kdftable: table is being filled")
)

// Verification errors
var (
	ErrDigestMismatch = errors.New("kdftable: stored digest does not match recomputed digest")
)
