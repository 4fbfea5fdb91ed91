package types

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdminColumns(t *testing.T) {
	cols := AdminColumns()

	assert.Len(t, cols, 11)
	assert.True(t, sort.StringsAreSorted(cols), "admin columns are lexicographically sorted")

	for _, c := range cols {
		assert.True(t, IsAdminColumn(c), c)
	}
	assert.False(t, IsAdminColumn("name"))

	// Callers own the returned slice.
	cols[0] = "clobbered"
	assert.Equal(t, ColConflictType, AdminColumns()[0])
}

func TestSyncStateValid(t *testing.T) {
	for _, s := range []SyncState{
		SyncStateNew, SyncStateChanged, SyncStateSynced,
		SyncStateSyncedPendingFiles, SyncStateDeleted, SyncStateInConflict,
	} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, SyncState("").Valid())
	assert.False(t, SyncState("SYNCED").Valid())
}

func TestConflictTypeSides(t *testing.T) {
	assert.True(t, ConflictLocalDeletedOldValues.IsLocal())
	assert.True(t, ConflictLocalUpdatedUpdatedValues.IsLocal())
	assert.True(t, ConflictServerDeletedOldValues.IsServer())
	assert.True(t, ConflictServerUpdatedUpdatedValues.IsServer())
	assert.False(t, ConflictLocalDeletedOldValues.IsServer())

	assert.True(t, ConflictType(3).Valid())
	assert.False(t, ConflictType(4).Valid())
	assert.False(t, ConflictType(-1).Valid())
}

func TestRowIsCheckpoint(t *testing.T) {
	r := &Row{}
	assert.True(t, r.IsCheckpoint())

	sp := SavepointTypeComplete
	r.SavepointType = &sp
	assert.False(t, r.IsCheckpoint())
}

func TestTableHealthBits(t *testing.T) {
	assert.Equal(t, "CLEAN", TableHealthClean.String())
	assert.Equal(t, "HAS_CHECKPOINTS", TableHealthClean.WithCheckpoints().String())
	assert.Equal(t, "HAS_CONFLICTS", TableHealthClean.WithConflicts().String())

	both := TableHealthClean.WithCheckpoints().WithConflicts()
	assert.Equal(t, "HAS_BOTH", both.String())
	assert.True(t, both.HasCheckpoints())
	assert.True(t, both.HasConflicts())
}
