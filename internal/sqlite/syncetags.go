package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Sync-ETag bookkeeping: opaque HTTP validators for per-table resources
// (manifests, attachments) keyed by (tableId, url). The sync
// collaborator stores and reads them; this layer never interprets them.

// UpdateSyncETag upserts the ETag recorded for a URL under a table. A
// blank etag deletes the record, mirroring the blank-means-absent rule
// of the key-value store.
func (s *Store) UpdateSyncETag(ctx context.Context, c *Conn, tableID, url, etag, lastModified string) error {
	return c.withTransaction(ctx, false, func() error {
		if etag == "" {
			if _, err := c.exec(ctx,
				"DELETE FROM _sync_etags WHERE table_id = ? AND url = ?", tableID, url); err != nil {
				return fmt.Errorf("deleting sync etag: %w", err)
			}
			return nil
		}
		_, err := c.exec(ctx, `
			INSERT INTO _sync_etags (table_id, url, etag, last_modified)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(table_id, url) DO UPDATE SET
				etag = excluded.etag,
				last_modified = excluded.last_modified`,
			tableID, url, etag, lastModified)
		if err != nil {
			return fmt.Errorf("upserting sync etag: %w", err)
		}
		return nil
	})
}

// GetSyncETag returns the ETag and last-modified recorded for a URL, or
// empty strings when none is recorded.
func (s *Store) GetSyncETag(ctx context.Context, c *Conn, tableID, url string) (etag, lastModified string, err error) {
	err = c.queryRow(ctx,
		"SELECT etag, last_modified FROM _sync_etags WHERE table_id = ? AND url = ?",
		tableID, url).Scan(&etag, &lastModified)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("querying sync etag: %w", err)
	}
	return etag, lastModified, nil
}

// DeleteSyncETagsForTable drops all ETag records for a table.
func (s *Store) DeleteSyncETagsForTable(ctx context.Context, c *Conn, tableID string) error {
	return c.withTransaction(ctx, false, func() error {
		if _, err := c.exec(ctx, "DELETE FROM _sync_etags WHERE table_id = ?", tableID); err != nil {
			return fmt.Errorf("deleting sync etags for %q: %w", tableID, err)
		}
		return nil
	})
}
