package types

// SyncState is a row's position in the local/remote reconciliation
// lifecycle.
type SyncState string

const (
	SyncStateNew                SyncState = "new_row"
	SyncStateChanged            SyncState = "changed"
	SyncStateSynced             SyncState = "synced"
	SyncStateSyncedPendingFiles SyncState = "synced_pending_files"
	SyncStateDeleted            SyncState = "deleted"
	SyncStateInConflict         SyncState = "in_conflict"
)

var validSyncStates = map[SyncState]bool{
	SyncStateNew:                true,
	SyncStateChanged:            true,
	SyncStateSynced:             true,
	SyncStateSyncedPendingFiles: true,
	SyncStateDeleted:            true,
	SyncStateInConflict:         true,
}

// Valid reports whether s is a member of the closed sync-state enum.
func (s SyncState) Valid() bool {
	return validSyncStates[s]
}

// ConflictType identifies which side (local vs. server) and which kind
// of divergence (deleted vs. updated) a conflicted physical row carries.
// Only meaningful while the row's sync state is in_conflict.
type ConflictType int

const (
	ConflictLocalDeletedOldValues      ConflictType = 0
	ConflictLocalUpdatedUpdatedValues  ConflictType = 1
	ConflictServerDeletedOldValues     ConflictType = 2
	ConflictServerUpdatedUpdatedValues ConflictType = 3
)

// Valid reports whether c is a member of the closed conflict-type enum.
func (c ConflictType) Valid() bool {
	return c >= ConflictLocalDeletedOldValues && c <= ConflictServerUpdatedUpdatedValues
}

// IsLocal reports whether c marks the local-side row of a conflict pair.
func (c ConflictType) IsLocal() bool {
	return c == ConflictLocalDeletedOldValues || c == ConflictLocalUpdatedUpdatedValues
}

// IsServer reports whether c marks the server-side row of a conflict pair.
func (c ConflictType) IsServer() bool {
	return c == ConflictServerDeletedOldValues || c == ConflictServerUpdatedUpdatedValues
}

// Savepoint types. A NULL savepoint type marks a checkpoint: an
// intermediate snapshot of an edit in progress.
const (
	SavepointTypeIncomplete = "INCOMPLETE"
	SavepointTypeComplete   = "COMPLETE"
)

// Admin columns attached to every physical row of every user table.
const (
	ColID                 = "_id"
	ColRowETag            = "_row_etag"
	ColSyncState          = "_sync_state"
	ColConflictType       = "_conflict_type"
	ColFilterType         = "_filter_type"
	ColFilterValue        = "_filter_value"
	ColFormID             = "_form_id"
	ColLocale             = "_locale"
	ColSavepointType      = "_savepoint_type"
	ColSavepointTimestamp = "_savepoint_timestamp"
	ColSavepointCreator   = "_savepoint_creator"
)

// adminColumns is the fixed 11-entry admin set in lexicographic order.
var adminColumns = []string{
	ColConflictType,
	ColFilterType,
	ColFilterValue,
	ColFormID,
	ColID,
	ColLocale,
	ColRowETag,
	ColSavepointCreator,
	ColSavepointTimestamp,
	ColSavepointType,
	ColSyncState,
}

var adminColumnSet = func() map[string]bool {
	m := make(map[string]bool, len(adminColumns))
	for _, c := range adminColumns {
		m[c] = true
	}
	return m
}()

// AdminColumns returns the fixed admin column set sorted
// lexicographically. The caller owns the returned slice.
func AdminColumns() []string {
	out := make([]string, len(adminColumns))
	copy(out, adminColumns)
	return out
}

// IsAdminColumn reports whether name is one of the fixed admin columns.
func IsAdminColumn(name string) bool {
	return adminColumnSet[name]
}

// Row is one physical row of a user table: the admin columns plus the
// retained user column values keyed by element key. A logical row
// (table id + row id) maps to more than one Row only while a checkpoint
// chain or a conflict pair exists.
type Row struct {
	ID                 string         `json:"id"`
	RowETag            *string        `json:"rowETag"`
	SyncState          SyncState      `json:"syncState"`
	ConflictType       *ConflictType  `json:"conflictType"`
	FilterType         *string        `json:"filterType"`
	FilterValue        *string        `json:"filterValue"`
	FormID             *string        `json:"formId"`
	Locale             *string        `json:"locale"`
	SavepointType      *string        `json:"savepointType"` // nil marks a checkpoint
	SavepointTimestamp string         `json:"savepointTimestamp"`
	SavepointCreator   *string        `json:"savepointCreator"`
	Values             map[string]any `json:"values"`
}

// IsCheckpoint reports whether the row is an unresolved checkpoint.
func (r *Row) IsCheckpoint() bool {
	return r.SavepointType == nil
}
