package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/fieldstack/fieldstore/pkg/types"
)

// Row engine: the row lifecycle and sync-state machine. A logical row
// (tableId, rowId) maps to one physical row except while a checkpoint
// chain or a conflict pair exists; every mutation here preserves that
// invariant or moves between its legal shapes.

// GetRows returns all physical rows for a logical row, oldest first by
// savepoint timestamp. One row in steady state; several while a
// checkpoint chain or a conflict pair exists; none after a hard delete.
func (s *Store) GetRows(ctx context.Context, c *Conn, tableID, rowID string) ([]*types.Row, error) {
	defs, err := s.GetColumnDefinitions(ctx, c, tableID)
	if err != nil {
		return nil, err
	}
	retained := defs.RetainedKeys()

	selectCols := types.AdminColumns()
	for _, key := range retained {
		selectCols = append(selectCols, quoteIdent(key))
	}
	rows, err := c.query(ctx,
		"SELECT "+strings.Join(selectCols, ", ")+" FROM "+quoteIdent(tableID)+
			" WHERE "+types.ColID+" = ? ORDER BY "+types.ColSavepointTimestamp+" ASC",
		rowID)
	if err != nil {
		return nil, fmt.Errorf("querying rows for %q: %w", rowID, err)
	}
	defer rows.Close()

	var out []*types.Row
	for rows.Next() {
		r, err := scanPhysicalRow(rows, retained)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// scanPhysicalRow scans one result row laid out as AdminColumns()
// followed by the retained user columns. A NULL in a required admin
// column is corruption, not data.
func scanPhysicalRow(rows *sql.Rows, retained []string) (*types.Row, error) {
	var (
		conflictType              sql.NullInt64
		filterType, filterValue   sql.NullString
		formID, id, locale        sql.NullString
		rowETag, savepointCreator sql.NullString
		savepointTimestamp        sql.NullString
		savepointType, syncState  sql.NullString
	)
	dest := []any{
		&conflictType, &filterType, &filterValue, &formID, &id,
		&locale, &rowETag, &savepointCreator, &savepointTimestamp,
		&savepointType, &syncState,
	}
	userVals := make([]any, len(retained))
	for i := range userVals {
		dest = append(dest, &userVals[i])
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scanning row: %w", err)
	}

	if !id.Valid || !syncState.Valid || !savepointTimestamp.Valid {
		return nil, fmt.Errorf("%w: NULL in required admin column", types.ErrCorruptState)
	}
	state := types.SyncState(syncState.String)
	if !state.Valid() {
		return nil, fmt.Errorf("%w: sync state %q", types.ErrCorruptState, syncState.String)
	}

	r := &types.Row{
		ID:                 id.String,
		SyncState:          state,
		SavepointTimestamp: savepointTimestamp.String,
		RowETag:            nullableString(rowETag),
		FilterType:         nullableString(filterType),
		FilterValue:        nullableString(filterValue),
		FormID:             nullableString(formID),
		Locale:             nullableString(locale),
		SavepointType:      nullableString(savepointType),
		SavepointCreator:   nullableString(savepointCreator),
		Values:             make(map[string]any, len(retained)),
	}
	if conflictType.Valid {
		ct := types.ConflictType(conflictType.Int64)
		if !ct.Valid() {
			return nil, fmt.Errorf("%w: conflict type %d", types.ErrCorruptState, conflictType.Int64)
		}
		r.ConflictType = &ct
	}
	for i, key := range retained {
		r.Values[key] = normalizeScanned(userVals[i])
	}
	return r, nil
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// normalizeScanned converts driver-level values to the stable
// representations the rest of the engine works with.
func normalizeScanned(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

type rowWriteMode int

const (
	modeInsert rowWriteMode = iota
	modeUpdate
)

// NewRowID synthesizes a globally-unique row id.
func NewRowID() string {
	return "uuid:" + uuid.NewString()
}

// InsertRow inserts a new logical row. With rowID "" a new id is
// synthesized. Any physical row already matching (rowId, conflictType)
// makes the insert a duplicate. Returns the row id actually used.
func (s *Store) InsertRow(ctx context.Context, c *Conn, tableID, rowID string, values *types.RowValues) (string, error) {
	return s.upsertRow(ctx, c, tableID, rowID, values, modeInsert)
}

// UpdateRow updates an existing logical row in place. Exactly one
// physical row must match (rowId, conflictType); an unresolved
// checkpoint or conflict makes the target ambiguous and rejects the
// call.
func (s *Store) UpdateRow(ctx context.Context, c *Conn, tableID, rowID string, values *types.RowValues) error {
	_, err := s.upsertRow(ctx, c, tableID, rowID, values, modeUpdate)
	return err
}

func (s *Store) upsertRow(ctx context.Context, c *Conn, tableID, rowID string, values *types.RowValues, mode rowWriteMode) (string, error) {
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

		rowID, err = resolveRowID(rowID, v, mode)
		if err != nil {
			return err
		}
		v.Delete(types.ColID)

		where, args, err := rowTargetPredicate(rowID, v)
		if err != nil {
			return err
		}
		var count int
		if err := c.queryRow(ctx,
			"SELECT COUNT(*) FROM "+quoteIdent(tableID)+" WHERE "+where, args...).Scan(&count); err != nil {
			return fmt.Errorf("probing row %q: %w", rowID, err)
		}
		switch mode {
		case modeInsert:
			if count > 0 {
				return fmt.Errorf("%w: %q in table %q", types.ErrDuplicateRow, rowID, tableID)
			}
		case modeUpdate:
			if count == 0 {
				return fmt.Errorf("%w: %q in table %q", types.ErrRowNotFound, rowID, tableID)
			}
			if count > 1 {
				return fmt.Errorf("%w: %q in table %q", types.ErrAmbiguousRowTarget, rowID, tableID)
			}
		}

		if err := s.applyAdminDefaults(v, mode); err != nil {
			return err
		}

		if mode == modeInsert {
			cols := []string{types.ColID}
			placeholders := []string{"?"}
			insertArgs := []any{rowID}
			for _, k := range v.Keys() {
				val, _ := v.Get(k)
				cols = append(cols, quoteIdent(k))
				placeholders = append(placeholders, "?")
				insertArgs = append(insertArgs, val)
			}
			stmt := "INSERT INTO " + quoteIdent(tableID) +
				" (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(placeholders, ", ") + ")"
			if _, err := c.exec(ctx, stmt, insertArgs...); err != nil {
				return fmt.Errorf("inserting row %q: %w", rowID, err)
			}
		} else {
			var sets []string
			var updateArgs []any
			for _, k := range v.Keys() {
				val, _ := v.Get(k)
				sets = append(sets, quoteIdent(k)+" = ?")
				updateArgs = append(updateArgs, val)
			}
			stmt := "UPDATE " + quoteIdent(tableID) + " SET " + strings.Join(sets, ", ") + " WHERE " + where
			if _, err := c.exec(ctx, stmt, append(updateArgs, args...)...); err != nil {
				return fmt.Errorf("updating row %q: %w", rowID, err)
			}
		}
		outID = rowID
		return nil
	})
	if err != nil {
		return "", err
	}
	return outID, nil
}

// resolveRowID reconciles the explicit rowID argument with an _id value
// supplied in the bag, synthesizing a new id for inserts when neither
// is present.
func resolveRowID(rowID string, v *types.RowValues, mode rowWriteMode) (string, error) {
	if raw, ok := v.Get(types.ColID); ok && raw != nil {
		bagID, ok := raw.(string)
		if !ok || bagID == "" {
			return "", fmt.Errorf("%w: _id value %v", types.ErrInvalidRowID, raw)
		}
		if rowID != "" && rowID != bagID {
			return "", fmt.Errorf("%w: argument %q disagrees with _id %q", types.ErrInvalidRowID, rowID, bagID)
		}
		rowID = bagID
	}
	if rowID == "" {
		if mode == modeUpdate {
			return "", fmt.Errorf("%w: update requires a row id", types.ErrInvalidRowID)
		}
		rowID = NewRowID()
	}
	return rowID, nil
}

// rowTargetPredicate builds the uniqueness predicate for an upsert
// probe: the row id, narrowed by conflict type when the bag specifies
// one (IS NULL when explicitly null).
func rowTargetPredicate(rowID string, v *types.RowValues) (string, []any, error) {
	where := types.ColID + " = ?"
	args := []any{rowID}
	raw, specified := v.Get(types.ColConflictType)
	if !specified {
		return where, args, nil
	}
	if raw == nil {
		return where + " AND " + types.ColConflictType + " IS NULL", args, nil
	}
	ct, err := conflictTypeFromValue(raw)
	if err != nil {
		return "", nil, err
	}
	return where + " AND " + types.ColConflictType + " = ?", append(args, int64(ct)), nil
}

// conflictTypeFromValue normalizes a caller-supplied conflict type.
func conflictTypeFromValue(raw any) (types.ConflictType, error) {
	var ct types.ConflictType
	switch n := raw.(type) {
	case types.ConflictType:
		ct = n
	case int:
		ct = types.ConflictType(n)
	case int64:
		ct = types.ConflictType(n)
	case float64:
		ct = types.ConflictType(int(n))
	default:
		return 0, fmt.Errorf("%w: %T", types.ErrInvalidConflictType, raw)
	}
	if !ct.Valid() {
		return 0, fmt.Errorf("%w: %d", types.ErrInvalidConflictType, int(ct))
	}
	return ct, nil
}

// syncStateFromValue normalizes a caller-supplied sync state.
func syncStateFromValue(raw any) (types.SyncState, error) {
	var state types.SyncState
	switch v := raw.(type) {
	case types.SyncState:
		state = v
	case string:
		state = types.SyncState(v)
	default:
		return "", fmt.Errorf("%w: %T", types.ErrInvalidSyncState, raw)
	}
	if !state.Valid() {
		return "", fmt.Errorf("%w: %q", types.ErrInvalidSyncState, state)
	}
	return state, nil
}

// applyAdminDefaults fills the admin columns the bag omits or leaves
// null. Insert defaults the full set (sync state new_row); update
// defaults sync state to changed and refreshes the savepoint.
func (s *Store) applyAdminDefaults(v *types.RowValues, mode rowWriteMode) error {
	if raw, ok := v.Get(types.ColSyncState); !ok || raw == nil {
		if mode == modeInsert {
			v.Set(types.ColSyncState, string(types.SyncStateNew))
		} else {
			v.Set(types.ColSyncState, string(types.SyncStateChanged))
		}
	} else {
		state, err := syncStateFromValue(raw)
		if err != nil {
			return err
		}
		v.Set(types.ColSyncState, string(state))
	}

	if raw, ok := v.Get(types.ColConflictType); ok && raw != nil {
		ct, err := conflictTypeFromValue(raw)
		if err != nil {
			return err
		}
		v.Set(types.ColConflictType, int64(ct))
	} else if mode == modeInsert {
		v.SetNull(types.ColConflictType)
	}

	if mode == modeInsert {
		if !v.Has(types.ColRowETag) {
			v.SetNull(types.ColRowETag)
		}
		if raw, ok := v.Get(types.ColFilterType); !ok || raw == nil {
			setOrNull(v, types.ColFilterType, s.config.FilterType)
		}
		if raw, ok := v.Get(types.ColFilterValue); !ok || raw == nil {
			setOrNull(v, types.ColFilterValue, s.config.FilterValue)
		}
		if !v.Has(types.ColFormID) {
			v.SetNull(types.ColFormID)
		}
	}

	if raw, ok := v.Get(types.ColLocale); !ok || raw == nil {
		v.Set(types.ColLocale, s.Locale())
	}
	if raw, ok := v.Get(types.ColSavepointType); !ok || raw == nil {
		v.Set(types.ColSavepointType, types.SavepointTypeComplete)
	} else if sp, ok := raw.(string); !ok ||
		(sp != types.SavepointTypeIncomplete && sp != types.SavepointTypeComplete) {
		return fmt.Errorf("%w: savepoint type %v", types.ErrInvalidColumnSpec, raw)
	}
	if raw, ok := v.Get(types.ColSavepointTimestamp); !ok || raw == nil {
		v.Set(types.ColSavepointTimestamp, types.FormatSavepointTimestamp(s.now()))
	}
	if raw, ok := v.Get(types.ColSavepointCreator); !ok || raw == nil {
		v.Set(types.ColSavepointCreator, s.ActiveUser())
	}
	return nil
}

// setOrNull stores an explicit NULL when the configured default is
// empty.
func setOrNull(v *types.RowValues, column, value string) {
	if value == "" {
		v.SetNull(column)
		return
	}
	v.Set(column, value)
}

// DeleteRow deletes a logical row. A row still in new_row state is
// hard-deleted along with its checkpoints, and the row's attachment
// instance directory is removed (failure logged, not fatal, since the
// row itself is already gone). Any other state is a soft delete: the
// row remains with sync state deleted and a refreshed savepoint
// timestamp, and attachments persist until the server confirms the
// deletion.
func (s *Store) DeleteRow(ctx context.Context, c *Conn, tableID, rowID string, attachments types.Attachments) error {
	if rowID == "" {
		return types.ErrInvalidRowID
	}
	var hardDeleted bool
	err := c.withTransaction(ctx, true, func() error {
		rows, err := s.GetRows(ctx, c, tableID, rowID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("%w: %q in table %q", types.ErrRowNotFound, rowID, tableID)
		}
		newest := rows[len(rows)-1]

		if newest.SyncState == types.SyncStateNew {
			if _, err := c.exec(ctx,
				"DELETE FROM "+quoteIdent(tableID)+" WHERE "+types.ColID+" = ?", rowID); err != nil {
				return fmt.Errorf("hard-deleting row %q: %w", rowID, err)
			}
			hardDeleted = true
			return nil
		}

		// Checkpoints are discarded; the surviving row carries the
		// deleted state until the server acknowledges it.
		if _, err := c.exec(ctx,
			"DELETE FROM "+quoteIdent(tableID)+" WHERE "+types.ColID+" = ? AND "+types.ColSavepointType+" IS NULL",
			rowID); err != nil {
			return fmt.Errorf("discarding checkpoints for %q: %w", rowID, err)
		}
		if _, err := c.exec(ctx,
			"UPDATE "+quoteIdent(tableID)+" SET "+types.ColSyncState+" = ?, "+types.ColSavepointTimestamp+" = ? WHERE "+types.ColID+" = ?",
			string(types.SyncStateDeleted), types.FormatSavepointTimestamp(s.now()), rowID); err != nil {
			return fmt.Errorf("soft-deleting row %q: %w", rowID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if hardDeleted && attachments != nil {
		if err := attachments.DeleteRowFiles(tableID, rowID); err != nil {
			s.log.Warn("row attachment cleanup failed", "table", tableID, "row", rowID, "error", err)
		}
	}
	return nil
}
