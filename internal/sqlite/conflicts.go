package sqlite

import (
	"context"
	"fmt"

	"github.com/fieldstack/fieldstore/pkg/types"
)

// Conflict pairs: while a row is in conflict it is represented by
// exactly two physical rows sharing the rowID, one tagged with a
// LOCAL_* conflict type and one with a SERVER_*. The sync collaborator
// inserts the second side through InsertRow with an explicit conflict
// type; the operations here move rows into and out of that shape.

// PlaceRowIntoConflict marks the row's single unconflicted physical row
// as in_conflict with the given conflict type. The row must not already
// carry a conflict type, and the target must be unambiguous.
func (s *Store) PlaceRowIntoConflict(ctx context.Context, c *Conn, tableID, rowID string, conflictType types.ConflictType) error {
	if !conflictType.Valid() {
		return fmt.Errorf("%w: %d", types.ErrInvalidConflictType, int(conflictType))
	}
	return c.withTransaction(ctx, true, func() error {
		rows, err := s.GetRows(ctx, c, tableID, rowID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("%w: %q in table %q", types.ErrRowNotFound, rowID, tableID)
		}
		var unconflicted int
		for _, r := range rows {
			if r.ConflictType == nil {
				unconflicted++
			}
		}
		if unconflicted == 0 {
			return fmt.Errorf("%w: %q in table %q", types.ErrRowInConflict, rowID, tableID)
		}
		if unconflicted > 1 {
			return fmt.Errorf("%w: %q in table %q has checkpoints", types.ErrAmbiguousRowTarget, rowID, tableID)
		}

		if _, err := c.exec(ctx,
			"UPDATE "+quoteIdent(tableID)+" SET "+types.ColSyncState+" = ?, "+types.ColConflictType+" = ? WHERE "+
				types.ColID+" = ? AND "+types.ColConflictType+" IS NULL",
			string(types.SyncStateInConflict), int64(conflictType), rowID); err != nil {
			return fmt.Errorf("placing row %q into conflict: %w", rowID, err)
		}
		return nil
	})
}

// DeleteServerConflictRow removes the server-side physical row of a
// conflict pair. Removing a side that is not present is a no-op; the
// resolution flow calls this unconditionally before restoring the local
// side.
func (s *Store) DeleteServerConflictRow(ctx context.Context, c *Conn, tableID, rowID string) error {
	return c.withTransaction(ctx, true, func() error {
		if _, err := c.exec(ctx,
			"DELETE FROM "+quoteIdent(tableID)+" WHERE "+types.ColID+" = ? AND "+types.ColConflictType+" IN (?, ?)",
			rowID, int64(types.ConflictServerDeletedOldValues), int64(types.ConflictServerUpdatedUpdatedValues)); err != nil {
			return fmt.Errorf("deleting server conflict row %q: %w", rowID, err)
		}
		return nil
	})
}

// RestoreRowFromConflict returns the physical row carrying the given
// conflict type to normal life: conflict type cleared, sync state set
// to newState (changed when the surviving values still need pushing,
// deleted when the resolution was to delete). The server side must be
// removed first via DeleteServerConflictRow.
func (s *Store) RestoreRowFromConflict(ctx context.Context, c *Conn, tableID, rowID string, newState types.SyncState, conflictType types.ConflictType) error {
	if newState != types.SyncStateChanged && newState != types.SyncStateDeleted {
		return fmt.Errorf("%w: cannot restore to %q", types.ErrInvalidSyncState, newState)
	}
	if !conflictType.Valid() {
		return fmt.Errorf("%w: %d", types.ErrInvalidConflictType, int(conflictType))
	}
	return c.withTransaction(ctx, true, func() error {
		res, err := c.exec(ctx,
			"UPDATE "+quoteIdent(tableID)+" SET "+types.ColSyncState+" = ?, "+types.ColConflictType+" = NULL WHERE "+
				types.ColID+" = ? AND "+types.ColConflictType+" = ?",
			string(newState), rowID, int64(conflictType))
		if err != nil {
			return fmt.Errorf("restoring row %q from conflict: %w", rowID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("restoring row %q from conflict: %w", rowID, err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %q in table %q", types.ErrRowNotInConflict, rowID, tableID)
		}
		return nil
	})
}

// ResetSyncStateForSchemaChange bulk-resets a table's rows after the
// server announces a schema change, forcing a full re-sync. Conflicts
// are resolved in favor of the local side: server conflict rows are
// dropped, a local delete survives as deleted, a local update as
// changed. Synced rows revert to new_row with their ETags cleared;
// changed and deleted rows are left alone.
func (s *Store) ResetSyncStateForSchemaChange(ctx context.Context, c *Conn, tableID string) error {
	return c.withTransaction(ctx, true, func() error {
		table := quoteIdent(tableID)
		if _, err := c.exec(ctx,
			"DELETE FROM "+table+" WHERE "+types.ColConflictType+" IN (?, ?)",
			int64(types.ConflictServerDeletedOldValues), int64(types.ConflictServerUpdatedUpdatedValues)); err != nil {
			return fmt.Errorf("dropping server conflict rows: %w", err)
		}
		if _, err := c.exec(ctx,
			"UPDATE "+table+" SET "+types.ColSyncState+" = ?, "+types.ColConflictType+" = NULL WHERE "+
				types.ColConflictType+" = ?",
			string(types.SyncStateDeleted), int64(types.ConflictLocalDeletedOldValues)); err != nil {
			return fmt.Errorf("restoring local deletes: %w", err)
		}
		if _, err := c.exec(ctx,
			"UPDATE "+table+" SET "+types.ColSyncState+" = ?, "+types.ColConflictType+" = NULL WHERE "+
				types.ColConflictType+" = ?",
			string(types.SyncStateChanged), int64(types.ConflictLocalUpdatedUpdatedValues)); err != nil {
			return fmt.Errorf("restoring local updates: %w", err)
		}
		if _, err := c.exec(ctx,
			"UPDATE "+table+" SET "+types.ColSyncState+" = ?, "+types.ColRowETag+" = NULL WHERE "+
				types.ColSyncState+" IN (?, ?)",
			string(types.SyncStateNew),
			string(types.SyncStateSynced), string(types.SyncStateSyncedPendingFiles)); err != nil {
			return fmt.Errorf("resetting synced rows: %w", err)
		}
		return nil
	})
}
