package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fieldstack/fieldstore/pkg/types"
)

// Schema manager: table creation, the table-definition registry, and
// the drop cascade.

// CreateOrOpenTable returns the column definitions for tableID,
// creating the table first if it is not registered. When the table
// already exists the call is a no-op that returns the stored
// definitions; the supplied specs are not compared against them. Table
// creation is atomic: physical table, table-definition entry, column
// definitions, and default metadata all apply together or not at all.
func (s *Store) CreateOrOpenTable(ctx context.Context, c *Conn, tableID string, specs []types.ColumnSpec) (*types.ColumnDefinitionSet, error) {
	if err := validateTableID(tableID); err != nil {
		return nil, err
	}

	var defs *types.ColumnDefinitionSet
	err := c.withTransaction(ctx, false, func() error {
		exists, err := s.tableExists(ctx, c, tableID)
		if err != nil {
			return err
		}
		if exists {
			defs, err = s.GetColumnDefinitions(ctx, c, tableID)
			return err
		}

		defs, err = types.BuildColumnDefinitions(tableID, specs)
		if err != nil {
			return err
		}
		if _, err := c.exec(ctx, buildUserTableDDL(defs)); err != nil {
			return fmt.Errorf("creating table %q: %w", tableID, err)
		}
		if _, err := c.exec(ctx, buildUserTableIndexDDL(tableID)); err != nil {
			return fmt.Errorf("indexing table %q: %w", tableID, err)
		}
		if _, err := c.exec(ctx,
			"INSERT INTO _table_definitions (table_id, schema_etag, last_data_etag, last_sync_time) VALUES (?, NULL, NULL, ?)",
			tableID, types.SyncTimeNever); err != nil {
			return fmt.Errorf("registering table %q: %w", tableID, err)
		}
		for _, spec := range defs.Specs() {
			if _, err := c.exec(ctx,
				"INSERT INTO _column_definitions (table_id, element_key, element_name, element_type, list_child_element_keys) VALUES (?, ?, ?, ?, ?)",
				tableID, spec.ElementKey, spec.ElementName, spec.ElementType, spec.ListChildElementKeys); err != nil {
				return fmt.Errorf("persisting column %q: %w", spec.ElementKey, err)
			}
		}
		return s.PutKVSEntries(ctx, c, tableID, defaultKVSEntries(defs), false)
	})
	if err != nil {
		return nil, err
	}
	return defs, nil
}

// defaultKVSEntries seeds the display and configuration defaults for a
// new table and its columns. Blank-valued defaults (display format,
// sort column, joins) are elided by the blank-put rule in the store.
func defaultKVSEntries(defs *types.ColumnDefinitionSet) []types.KeyValueEntry {
	tableID := defs.TableID
	colOrder, _ := json.Marshal(defs.RetainedKeys())

	entries := []types.KeyValueEntry{
		{TableID: tableID, Partition: types.KVSPartitionTable, Aspect: types.KVSAspectDefault,
			Key: types.KVSKeyDisplayName, ValueType: types.KVSValueTypeString, Value: tableID},
		{TableID: tableID, Partition: types.KVSPartitionTable, Aspect: types.KVSAspectDefault,
			Key: types.KVSKeyDefaultViewType, ValueType: types.KVSValueTypeString, Value: types.KVSDefaultViewType},
		{TableID: tableID, Partition: types.KVSPartitionTable, Aspect: types.KVSAspectDefault,
			Key: types.KVSKeyColOrder, ValueType: types.KVSValueTypeArray, Value: string(colOrder)},
		{TableID: tableID, Partition: types.KVSPartitionTable, Aspect: types.KVSAspectDefault,
			Key: types.KVSKeyGroupByCols, ValueType: types.KVSValueTypeArray, Value: "[]"},
		{TableID: tableID, Partition: types.KVSPartitionTable, Aspect: types.KVSAspectDefault,
			Key: types.KVSKeySortCol, ValueType: types.KVSValueTypeString, Value: ""},
		{TableID: tableID, Partition: types.KVSPartitionTable, Aspect: types.KVSAspectDefault,
			Key: types.KVSKeyIndexCol, ValueType: types.KVSValueTypeString, Value: ""},
	}
	for _, def := range defs.All() {
		visible := "false"
		if def.IsUnitOfRetention() {
			visible = "true"
		}
		entries = append(entries,
			types.KeyValueEntry{TableID: tableID, Partition: types.KVSPartitionColumn, Aspect: def.ElementKey,
				Key: types.KVSKeyDisplayVisible, ValueType: types.KVSValueTypeBool, Value: visible},
			types.KeyValueEntry{TableID: tableID, Partition: types.KVSPartitionColumn, Aspect: def.ElementKey,
				Key: types.KVSKeyDisplayName, ValueType: types.KVSValueTypeString, Value: def.ElementName},
			types.KeyValueEntry{TableID: tableID, Partition: types.KVSPartitionColumn, Aspect: def.ElementKey,
				Key: types.KVSKeyDisplayChoicesList, ValueType: types.KVSValueTypeArray, Value: "[]"},
			types.KeyValueEntry{TableID: tableID, Partition: types.KVSPartitionColumn, Aspect: def.ElementKey,
				Key: types.KVSKeyDisplayFormat, ValueType: types.KVSValueTypeString, Value: ""},
			types.KeyValueEntry{TableID: tableID, Partition: types.KVSPartitionColumn, Aspect: def.ElementKey,
				Key: types.KVSKeyJoins, ValueType: types.KVSValueTypeObject, Value: ""},
		)
	}
	return entries
}

// tableExists probes the table-definition registry. More than one entry
// for a table id means the registry itself is corrupt.
func (s *Store) tableExists(ctx context.Context, c *Conn, tableID string) (bool, error) {
	var count int
	err := c.queryRow(ctx, "SELECT COUNT(*) FROM _table_definitions WHERE table_id = ?", tableID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("probing table definition: %w", err)
	}
	if count > 1 {
		return false, fmt.Errorf("%w: %d table-definition entries for %q", types.ErrCorruptState, count, tableID)
	}
	return count == 1, nil
}

// GetTableDefinition returns the registry entry for tableID.
func (s *Store) GetTableDefinition(ctx context.Context, c *Conn, tableID string) (*types.TableDefinition, error) {
	var def types.TableDefinition
	var schemaETag, lastDataETag sql.NullString
	err := c.queryRow(ctx,
		"SELECT table_id, schema_etag, last_data_etag, last_sync_time FROM _table_definitions WHERE table_id = ?",
		tableID).Scan(&def.TableID, &schemaETag, &lastDataETag, &def.LastSyncTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrTableNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading table definition: %w", err)
	}
	if schemaETag.Valid {
		def.SchemaETag = &schemaETag.String
	}
	if lastDataETag.Valid {
		def.LastDataETag = &lastDataETag.String
	}
	return &def, nil
}

// GetColumnDefinitions loads and revalidates the stored column set for
// tableID.
func (s *Store) GetColumnDefinitions(ctx context.Context, c *Conn, tableID string) (*types.ColumnDefinitionSet, error) {
	rows, err := c.query(ctx,
		"SELECT element_key, element_name, element_type, list_child_element_keys FROM _column_definitions WHERE table_id = ? ORDER BY element_key",
		tableID)
	if err != nil {
		return nil, fmt.Errorf("querying column definitions: %w", err)
	}
	defer rows.Close()

	var specs []types.ColumnSpec
	for rows.Next() {
		var spec types.ColumnSpec
		if err := rows.Scan(&spec.ElementKey, &spec.ElementName, &spec.ElementType, &spec.ListChildElementKeys); err != nil {
			return nil, fmt.Errorf("scanning column definition: %w", err)
		}
		specs = append(specs, spec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return nil, types.ErrTableNotFound
	}
	defs, err := types.BuildColumnDefinitions(tableID, specs)
	if err != nil {
		return nil, fmt.Errorf("%w: stored columns for %q: %v", types.ErrCorruptState, tableID, err)
	}
	return defs, nil
}

// ListTableIDs returns all registered table ids in order.
func (s *Store) ListTableIDs(ctx context.Context, c *Conn) ([]string, error) {
	rows, err := c.query(ctx, "SELECT table_id FROM _table_definitions ORDER BY table_id")
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning table id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateTableETags stores the opaque schema and last-data ETags supplied
// by the sync collaborator.
func (s *Store) UpdateTableETags(ctx context.Context, c *Conn, tableID string, schemaETag, lastDataETag *string) error {
	return c.withTransaction(ctx, false, func() error {
		res, err := c.exec(ctx,
			"UPDATE _table_definitions SET schema_etag = ?, last_data_etag = ? WHERE table_id = ?",
			schemaETag, lastDataETag, tableID)
		if err != nil {
			return fmt.Errorf("updating table etags: %w", err)
		}
		return requireOneAffected(res, types.ErrTableNotFound)
	})
}

// UpdateLastSyncTime records "now" as the table's last successful sync.
func (s *Store) UpdateLastSyncTime(ctx context.Context, c *Conn, tableID string) error {
	return c.withTransaction(ctx, false, func() error {
		res, err := c.exec(ctx,
			"UPDATE _table_definitions SET last_sync_time = ? WHERE table_id = ?",
			types.FormatSavepointTimestamp(s.now()), tableID)
		if err != nil {
			return fmt.Errorf("updating last sync time: %w", err)
		}
		return requireOneAffected(res, types.ErrTableNotFound)
	})
}

// DropTable removes the physical table, all of its metadata entries,
// its table and column definitions, and its sync-ETag bookkeeping, then
// asks the attachment collaborator to remove the table's attachment
// directory. A failed attachment removal is fatal: a stale directory
// under a dropped table can never be cleaned up later.
func (s *Store) DropTable(ctx context.Context, c *Conn, tableID string, attachments types.Attachments) error {
	if err := validateTableID(tableID); err != nil {
		return err
	}
	err := c.withTransaction(ctx, false, func() error {
		exists, err := s.tableExists(ctx, c, tableID)
		if err != nil {
			return err
		}
		if !exists {
			return types.ErrTableNotFound
		}
		if _, err := c.exec(ctx, "DROP TABLE IF EXISTS "+quoteIdent(tableID)); err != nil {
			return fmt.Errorf("dropping table %q: %w", tableID, err)
		}
		if _, err := c.exec(ctx, "DELETE FROM _key_value_store WHERE table_id = ?", tableID); err != nil {
			return fmt.Errorf("deleting table metadata: %w", err)
		}
		if _, err := c.exec(ctx, "DELETE FROM _column_definitions WHERE table_id = ?", tableID); err != nil {
			return fmt.Errorf("deleting column definitions: %w", err)
		}
		if _, err := c.exec(ctx, "DELETE FROM _table_definitions WHERE table_id = ?", tableID); err != nil {
			return fmt.Errorf("deleting table definition: %w", err)
		}
		if _, err := c.exec(ctx, "DELETE FROM _sync_etags WHERE table_id = ?", tableID); err != nil {
			return fmt.Errorf("deleting sync etags: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if attachments != nil {
		if err := attachments.DeleteTableFiles(tableID); err != nil {
			return fmt.Errorf("%w: table %q: %v", types.ErrAttachmentCleanup, tableID, err)
		}
	}
	return nil
}

// requireOneAffected converts a zero-row UPDATE into notFound.
func requireOneAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
