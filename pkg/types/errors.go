package types

import "errors"

// Caller/structural errors. These reject a single call before any write
// becomes visible; the caller must fix its request rather than retry.
var (
	ErrTableNotFound            = errors.New("table not found")
	ErrRowNotFound              = errors.New("row not found")
	ErrDuplicateRow             = errors.New("row already exists")
	ErrAmbiguousRowTarget       = errors.New("more than one physical row matches; resolve checkpoints or conflicts first")
	ErrInvalidRowID             = errors.New("invalid row id")
	ErrUnknownColumn            = errors.New("unknown column")
	ErrMalformedStructuredValue = errors.New("malformed structured column value")
	ErrInvalidColumnSpec        = errors.New("invalid column specification")
	ErrInvalidElementType       = errors.New("unknown element type")
	ErrInvalidSyncState         = errors.New("invalid sync state")
	ErrInvalidConflictType      = errors.New("invalid conflict type")
	ErrRowNotInConflict         = errors.New("row is not in conflict")
	ErrRowInConflict            = errors.New("row is already in conflict")
	ErrInvalidKVSEntry          = errors.New("invalid key-value entry")
)

// Internal-consistency and lifecycle errors.
var (
	// ErrCorruptState marks an invariant violation detected at read time
	// (duplicate table-definition entries, a null required admin column).
	// Not recoverable: the data model was already damaged by an earlier bug.
	ErrCorruptState = errors.New("internal consistency violation")

	// ErrAttachmentCleanup is returned when dropping a table cannot remove
	// its attachment directory. Fatal: stale directories under a dropped
	// table can never be cleaned up later.
	ErrAttachmentCleanup = errors.New("attachment cleanup failed")

	ErrStoreClosed   = errors.New("store is closed")
	ErrNoTransaction = errors.New("no transaction open")
)
