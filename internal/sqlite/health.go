package sqlite

import (
	"context"
	"fmt"

	"github.com/fieldstack/fieldstore/pkg/types"
)

// TableHealth reports whether the table still contains unresolved
// checkpoints or conflicts, from one aggregate scan. Intended for
// periodic diagnostics; cost is a full scan of the table.
func (s *Store) TableHealth(ctx context.Context, c *Conn, tableID string) (types.TableHealth, error) {
	exists, err := s.tableExists(ctx, c, tableID)
	if err != nil {
		return types.TableHealthClean, err
	}
	if !exists {
		return types.TableHealthClean, fmt.Errorf("%w: %q", types.ErrTableNotFound, tableID)
	}

	var checkpoints, conflicts int
	err = c.queryRow(ctx,
		"SELECT COALESCE(SUM("+types.ColSavepointType+" IS NULL), 0), "+
			"COALESCE(SUM("+types.ColConflictType+" IS NOT NULL), 0) FROM "+quoteIdent(tableID)).
		Scan(&checkpoints, &conflicts)
	if err != nil {
		return types.TableHealthClean, fmt.Errorf("scanning health of %q: %w", tableID, err)
	}

	health := types.TableHealthClean
	if checkpoints > 0 {
		health = health.WithCheckpoints()
	}
	if conflicts > 0 {
		health = health.WithConflicts()
	}
	return health, nil
}

// TableHealthAll reports the health of every registered table, ordered
// by table id.
func (s *Store) TableHealthAll(ctx context.Context, c *Conn) ([]types.TableHealthEntry, error) {
	tableIDs, err := s.ListTableIDs(ctx, c)
	if err != nil {
		return nil, err
	}
	entries := make([]types.TableHealthEntry, 0, len(tableIDs))
	for _, tableID := range tableIDs {
		health, err := s.TableHealth(ctx, c, tableID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, types.TableHealthEntry{TableID: tableID, Health: health})
	}
	return entries, nil
}
