package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/fieldstack/fieldstore/pkg/types"
)

// The key-value metadata store: (tableId, partition, aspect, key) ->
// (valueType, value). Table and column display/configuration properties
// all live here.

const kvsSelect = "SELECT table_id, partition, aspect, key, value_type, value FROM _key_value_store"

// kvsFilter builds an ANDed WHERE clause from the provided filters;
// empty filter strings match everything.
func kvsFilter(tableID, partition, aspect, key string) (string, []any) {
	var conditions []string
	var args []any
	if tableID != "" {
		conditions = append(conditions, "table_id = ?")
		args = append(args, tableID)
	}
	if partition != "" {
		conditions = append(conditions, "partition = ?")
		args = append(args, partition)
	}
	if aspect != "" {
		conditions = append(conditions, "aspect = ?")
		args = append(args, aspect)
	}
	if key != "" {
		conditions = append(conditions, "key = ?")
		args = append(args, key)
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// GetKVSEntries returns the entries matching the provided filters,
// ordered by natural key. Calling with only a tableID returns the whole
// table's metadata.
func (s *Store) GetKVSEntries(ctx context.Context, c *Conn, tableID, partition, aspect, key string) ([]types.KeyValueEntry, error) {
	where, args := kvsFilter(tableID, partition, aspect, key)
	rows, err := c.query(ctx, kvsSelect+where+" ORDER BY table_id, partition, aspect, key", args...)
	if err != nil {
		return nil, fmt.Errorf("querying key-value store: %w", err)
	}
	defer rows.Close()

	var entries []types.KeyValueEntry
	for rows.Next() {
		var e types.KeyValueEntry
		if err := rows.Scan(&e.TableID, &e.Partition, &e.Aspect, &e.Key, &e.ValueType, &e.Value); err != nil {
			return nil, fmt.Errorf("scanning key-value entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PutKVSEntry upserts one entry by its natural key. A blank value is
// redirected to a delete: absence and blankness are equivalent, and
// blank entries must not be stored.
func (s *Store) PutKVSEntry(ctx context.Context, c *Conn, entry types.KeyValueEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	return c.withTransaction(ctx, false, func() error {
		return s.putKVSEntryTx(ctx, c, entry)
	})
}

func (s *Store) putKVSEntryTx(ctx context.Context, c *Conn, entry types.KeyValueEntry) error {
	if entry.IsBlank() {
		_, err := c.exec(ctx,
			"DELETE FROM _key_value_store WHERE table_id = ? AND partition = ? AND aspect = ? AND key = ?",
			entry.TableID, entry.Partition, entry.Aspect, entry.Key)
		if err != nil {
			return fmt.Errorf("deleting blank key-value entry: %w", err)
		}
		return nil
	}
	_, err := c.exec(ctx, `
		INSERT INTO _key_value_store (table_id, partition, aspect, key, value_type, value)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(table_id, partition, aspect, key) DO UPDATE SET
			value_type = excluded.value_type,
			value = excluded.value`,
		entry.TableID, entry.Partition, entry.Aspect, entry.Key, entry.ValueType, entry.Value)
	if err != nil {
		return fmt.Errorf("upserting key-value entry: %w", err)
	}
	return nil
}

// PutKVSEntries atomically applies a batch of entries for one table.
// With clear set, all existing entries for the table are removed first
// (replace semantics). Entries for other tables are rejected.
func (s *Store) PutKVSEntries(ctx context.Context, c *Conn, tableID string, entries []types.KeyValueEntry, clear bool) error {
	for _, e := range entries {
		if e.TableID != tableID {
			return fmt.Errorf("%w: entry for table %q in batch for %q", types.ErrInvalidKVSEntry, e.TableID, tableID)
		}
		if err := e.Validate(); err != nil {
			return err
		}
	}
	return c.withTransaction(ctx, false, func() error {
		if clear {
			if _, err := c.exec(ctx, "DELETE FROM _key_value_store WHERE table_id = ?", tableID); err != nil {
				return fmt.Errorf("clearing key-value entries: %w", err)
			}
		}
		for _, e := range entries {
			if err := s.putKVSEntryTx(ctx, c, e); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteKVSEntries removes the entries matching the provided filters,
// with the same partial-match semantics as GetKVSEntries. Used both for
// targeted deletes and for "delete everything for this table".
func (s *Store) DeleteKVSEntries(ctx context.Context, c *Conn, tableID, partition, aspect, key string) error {
	where, args := kvsFilter(tableID, partition, aspect, key)
	return c.withTransaction(ctx, false, func() error {
		if _, err := c.exec(ctx, "DELETE FROM _key_value_store"+where, args...); err != nil {
			return fmt.Errorf("deleting key-value entries: %w", err)
		}
		return nil
	})
}
