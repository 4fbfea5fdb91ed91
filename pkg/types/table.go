package types

// SyncTimeNever is the last-sync-time sentinel for a table that has
// never synchronized.
const SyncTimeNever = "-1"

// TableDefinition is the registry entry for one user table. The ETags
// are opaque version tokens owned by the sync collaborator.
type TableDefinition struct {
	TableID      string  `json:"tableId"`
	SchemaETag   *string `json:"schemaETag"`
	LastDataETag *string `json:"lastDataETag"`
	LastSyncTime string  `json:"lastSyncTime"`
}

// TableHealth is the aggregate diagnostic state of one table.
type TableHealth int

// TableHealthClean means no unresolved checkpoints and no conflicts.
const TableHealthClean TableHealth = 0

const (
	tableHealthCheckpointBit TableHealth = 1 << iota
	tableHealthConflictBit
)

// WithCheckpoints returns h with the unresolved-checkpoints bit set.
func (h TableHealth) WithCheckpoints() TableHealth { return h | tableHealthCheckpointBit }

// WithConflicts returns h with the unresolved-conflicts bit set.
func (h TableHealth) WithConflicts() TableHealth { return h | tableHealthConflictBit }

// HasCheckpoints reports whether the table holds unresolved checkpoints.
func (h TableHealth) HasCheckpoints() bool { return h&tableHealthCheckpointBit != 0 }

// HasConflicts reports whether the table holds unresolved conflicts.
func (h TableHealth) HasConflicts() bool { return h&tableHealthConflictBit != 0 }

func (h TableHealth) String() string {
	switch {
	case h.HasCheckpoints() && h.HasConflicts():
		return "HAS_BOTH"
	case h.HasCheckpoints():
		return "HAS_CHECKPOINTS"
	case h.HasConflicts():
		return "HAS_CONFLICTS"
	default:
		return "CLEAN"
	}
}

// MarshalJSON renders the health as its diagnostic name.
func (h TableHealth) MarshalJSON() ([]byte, error) {
	return []byte(`"` + h.String() + `"`), nil
}

// TableHealthEntry pairs a table id with its health, as reported by the
// all-tables diagnostic scan.
type TableHealthEntry struct {
	TableID string      `json:"tableId"`
	Health  TableHealth `json:"health"`
}
