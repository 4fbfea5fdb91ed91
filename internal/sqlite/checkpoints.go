package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/fieldstack/fieldstore/pkg/types"
)

// Checkpoint chain: intermediate snapshots of an edit in progress,
// appended as extra physical rows with a NULL savepoint type and
// strictly ascending savepoint timestamps. SaveAsIncomplete and
// SaveAsComplete collapse the chain back to a single physical row.

// InsertCheckpoint appends a checkpoint row for the logical row.
// Columns the bag leaves unspecified are carried forward from the
// newest physical row; a synced row becomes changed. With no prior
// physical row the checkpoint starts a fresh new_row edit. Returns the
// row id used.
func (s *Store) InsertCheckpoint(ctx context.Context, c *Conn, tableID, rowID string, values *types.RowValues) (string, error) {
	var outID string
	err := c.withTransaction(ctx, true, func() error {
		defs, err := s.GetColumnDefinitions(ctx, c, tableID)
		if err != nil {
			return err
		}

		v := types.NewRowValues()
		if values != nil {
			v = values.Clone()
		}
		if err := defs.FlushStructuredValues(v); err != nil {
			return err
		}
		rowID, err = resolveRowID(rowID, v, modeInsert)
		if err != nil {
			return err
		}
		v.Delete(types.ColID)

		rows, err := s.GetRows(ctx, c, tableID, rowID)
		if err != nil {
			return err
		}
		var newest *types.Row
		if len(rows) > 0 {
			newest = rows[len(rows)-1]
		}
		if newest != nil && newest.SyncState == types.SyncStateInConflict {
			return fmt.Errorf("%w: %q in table %q", types.ErrRowInConflict, rowID, tableID)
		}

		state := types.SyncStateNew
		prevTimestamp := ""
		if newest != nil {
			state = newest.SyncState
			if state == types.SyncStateSynced || state == types.SyncStateSyncedPendingFiles {
				state = types.SyncStateChanged
			}
			prevTimestamp = newest.SavepointTimestamp
		}
		if raw, ok := v.Get(types.ColSyncState); ok && raw != nil {
			state, err = syncStateFromValue(raw)
			if err != nil {
				return err
			}
		}
		timestamp, err := types.SavepointTimestampAfter(s.now(), prevTimestamp)
		if err != nil {
			return err
		}

		cols := []string{
			types.ColID, types.ColSyncState, types.ColConflictType,
			types.ColSavepointType, types.ColSavepointTimestamp,
		}
		args := []any{rowID, string(state), nil, nil, timestamp}

		addCarried := func(col string, carried func(*types.Row) *string, fallback any) {
			if raw, ok := v.Get(col); ok && raw != nil {
				cols = append(cols, col)
				args = append(args, raw)
				return
			}
			cols = append(cols, col)
			if newest != nil {
				if p := carried(newest); p != nil {
					args = append(args, *p)
					return
				}
			}
			args = append(args, fallback)
		}
		addCarried(types.ColRowETag, func(r *types.Row) *string { return r.RowETag }, nil)
		addCarried(types.ColFilterType, func(r *types.Row) *string { return r.FilterType }, nil)
		addCarried(types.ColFilterValue, func(r *types.Row) *string { return r.FilterValue }, nil)
		addCarried(types.ColFormID, func(r *types.Row) *string { return r.FormID }, nil)
		addCarried(types.ColLocale, func(r *types.Row) *string { return r.Locale }, s.Locale())
		addCarried(types.ColSavepointCreator, func(r *types.Row) *string { return r.SavepointCreator }, s.ActiveUser())

		for _, key := range defs.RetainedKeys() {
			cols = append(cols, quoteIdent(key))
			if raw, ok := v.Get(key); ok {
				args = append(args, raw)
			} else if newest != nil {
				args = append(args, newest.Values[key])
			} else {
				args = append(args, nil)
			}
		}

		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
		stmt := "INSERT INTO " + quoteIdent(tableID) +
			" (" + strings.Join(cols, ", ") + ") VALUES (" + placeholders + ")"
		if _, err := c.exec(ctx, stmt, args...); err != nil {
			return fmt.Errorf("inserting checkpoint for %q: %w", rowID, err)
		}
		outID = rowID
		return nil
	})
	if err != nil {
		return "", err
	}
	return outID, nil
}

// SaveAsIncomplete collapses the row's checkpoint chain into a single
// physical row with savepoint type INCOMPLETE.
func (s *Store) SaveAsIncomplete(ctx context.Context, c *Conn, tableID, rowID string) error {
	return s.saveCheckpointAs(ctx, c, tableID, rowID, types.SavepointTypeIncomplete)
}

// SaveAsComplete collapses the row's checkpoint chain into a single
// physical row with savepoint type COMPLETE.
func (s *Store) SaveAsComplete(ctx context.Context, c *Conn, tableID, rowID string) error {
	return s.saveCheckpointAs(ctx, c, tableID, rowID, types.SavepointTypeComplete)
}

// saveCheckpointAs stamps the newest physical row with the given
// savepoint type and deletes every other physical row for the rowID,
// keeping the newest values and timestamp.
func (s *Store) saveCheckpointAs(ctx context.Context, c *Conn, tableID, rowID, savepointType string) error {
	return c.withTransaction(ctx, true, func() error {
		rows, err := s.GetRows(ctx, c, tableID, rowID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("%w: %q in table %q", types.ErrRowNotFound, rowID, tableID)
		}
		newest := rows[len(rows)-1]
		if newest.SyncState == types.SyncStateInConflict {
			return fmt.Errorf("%w: %q in table %q", types.ErrRowInConflict, rowID, tableID)
		}

		if _, err := c.exec(ctx,
			"UPDATE "+quoteIdent(tableID)+" SET "+types.ColSavepointType+" = ? WHERE "+
				types.ColID+" = ? AND "+types.ColSavepointTimestamp+" = ?",
			savepointType, rowID, newest.SavepointTimestamp); err != nil {
			return fmt.Errorf("finalizing savepoint for %q: %w", rowID, err)
		}
		if _, err := c.exec(ctx,
			"DELETE FROM "+quoteIdent(tableID)+" WHERE "+
				types.ColID+" = ? AND "+types.ColSavepointTimestamp+" <> ?",
			rowID, newest.SavepointTimestamp); err != nil {
			return fmt.Errorf("collapsing checkpoints for %q: %w", rowID, err)
		}
		return nil
	})
}

// DeleteLastCheckpoint removes the newest checkpoint row for the rowID.
// Having no checkpoint to remove is an error; the caller is unwinding
// an edit it believes exists.
func (s *Store) DeleteLastCheckpoint(ctx context.Context, c *Conn, tableID, rowID string) error {
	return c.withTransaction(ctx, true, func() error {
		table := quoteIdent(tableID)
		res, err := c.exec(ctx,
			"DELETE FROM "+table+" WHERE "+types.ColID+" = ? AND "+types.ColSavepointType+" IS NULL AND "+
				types.ColSavepointTimestamp+" = (SELECT MAX("+types.ColSavepointTimestamp+") FROM "+table+
				" WHERE "+types.ColID+" = ? AND "+types.ColSavepointType+" IS NULL)",
			rowID, rowID)
		if err != nil {
			return fmt.Errorf("deleting last checkpoint for %q: %w", rowID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("deleting last checkpoint for %q: %w", rowID, err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: no checkpoint for %q in table %q", types.ErrRowNotFound, rowID, tableID)
		}
		return nil
	})
}

// DeleteAllCheckpoints discards the row's entire checkpoint chain. A
// row that was never saved disappears entirely; deleting zero
// checkpoints is not an error.
func (s *Store) DeleteAllCheckpoints(ctx context.Context, c *Conn, tableID, rowID string) error {
	return c.withTransaction(ctx, true, func() error {
		if _, err := c.exec(ctx,
			"DELETE FROM "+quoteIdent(tableID)+" WHERE "+types.ColID+" = ? AND "+types.ColSavepointType+" IS NULL",
			rowID); err != nil {
			return fmt.Errorf("deleting checkpoints for %q: %w", rowID, err)
		}
		return nil
	})
}
