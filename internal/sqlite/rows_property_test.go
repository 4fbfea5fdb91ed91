package sqlite

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/fieldstack/fieldstore/pkg/types"
)

// With no checkpoints and no conflict, any sequence of inserts, updates,
// and deletes leaves at most one physical row per row id.
func TestProperty_RowUniqueness(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 25
	properties := gopter.NewProperties(parameters)

	properties.Property("at most one physical row per id", prop.ForAll(
		func(ops []int) bool {
			ctx := context.Background()
			store, err := Open(types.Config{DataDir: t.TempDir()})
			if err != nil {
				return false
			}
			defer store.Close()
			conn, err := store.OpenConn(ctx)
			if err != nil {
				return false
			}
			defer conn.Close()

			if _, err := store.CreateOrOpenTable(ctx, conn, "t", []types.ColumnSpec{
				{ElementKey: "c", ElementName: "c", ElementType: "integer", ListChildElementKeys: "[]"},
			}); err != nil {
				return false
			}

			const rowID = "row-1"
			exists := false
			for _, op := range ops {
				switch op % 3 {
				case 0:
					_, err := store.InsertRow(ctx, conn, "t", rowID,
						types.NewRowValues().Set("c", op))
					if exists {
						if err == nil {
							return false
						}
					} else if err != nil {
						return false
					}
					exists = true
				case 1:
					err := store.UpdateRow(ctx, conn, "t", rowID,
						types.NewRowValues().Set("c", op))
					if !exists {
						if err == nil {
							return false
						}
					} else if err != nil {
						return false
					}
				case 2:
					err := store.DeleteRow(ctx, conn, "t", rowID, nil)
					if !exists && err == nil {
						return false
					}
					// A soft-deleted row still occupies its id, so
					// it stays "existing" for the state model unless
					// it was never synced and hard-deleted.
					if exists {
						rows, err := store.GetRows(ctx, conn, "t", rowID)
						if err != nil {
							return false
						}
						exists = len(rows) > 0
					}
				}

				rows, err := store.GetRows(ctx, conn, "t", rowID)
				if err != nil {
					return false
				}
				if len(rows) > 1 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 32)),
	))

	properties.TestingRun(t)
}
