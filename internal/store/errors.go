package store

import "errors"

// Errors returned by Store implementations. All are scoped to the single
// operation in flight; none is fatal to the process.
var (
	// ErrNotFound is returned by lookups that miss. Surfaced to the caller,
	// never retried.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEvent is returned when an insert collides on event
	// identifier. Redelivery is expected, so callers treat this as
	// idempotent success rather than a hard error.
	ErrDuplicateEvent = errors.New("duplicate event")

	// ErrReferentialViolation is returned when an event references a row
	// that does not exist (an unknown supersession target or room). The
	// write is rejected whole; the ingest layer resolves it by fetching
	// the missing ancestry first.
	ErrReferentialViolation = errors.New("referential violation")

	// ErrOrderingConflict is returned when concurrent coordinate
	// assignment races at commit. Callers retry with re-derived
	// coordinates, bounded, before surfacing a transient failure.
	ErrOrderingConflict = errors.New("ordering conflict")
)
