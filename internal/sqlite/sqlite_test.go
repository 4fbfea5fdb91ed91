package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fieldstack/fieldstore/pkg/types"
)

// setupStore opens a store in a temp directory with a dedicated
// connection for the test.
func setupStore(t *testing.T) (*Store, *Conn) {
	t.Helper()
	store, err := Open(types.Config{
		DataDir:    t.TempDir(),
		ActiveUser: "enumerator7",
		Locale:     "sw_KE",
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	conn, err := store.OpenConn(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return store, conn
}

// householdSpecs is the standard test table: two scalars and a
// composite geopoint with four numeric children.
func householdSpecs() []types.ColumnSpec {
	return []types.ColumnSpec{
		{ElementKey: "name", ElementName: "name", ElementType: "string", ListChildElementKeys: "[]"},
		{ElementKey: "members", ElementName: "members", ElementType: "integer", ListChildElementKeys: "[]"},
		{ElementKey: "location", ElementName: "location", ElementType: "geopoint",
			ListChildElementKeys: `["location_latitude","location_longitude","location_altitude","location_accuracy"]`},
		{ElementKey: "location_latitude", ElementName: "latitude", ElementType: "number", ListChildElementKeys: "[]"},
		{ElementKey: "location_longitude", ElementName: "longitude", ElementType: "number", ListChildElementKeys: "[]"},
		{ElementKey: "location_altitude", ElementName: "altitude", ElementType: "number", ListChildElementKeys: "[]"},
		{ElementKey: "location_accuracy", ElementName: "accuracy", ElementType: "number", ListChildElementKeys: "[]"},
	}
}

// createHouseholds creates the standard test table.
func createHouseholds(t *testing.T, store *Store, conn *Conn) *types.ColumnDefinitionSet {
	t.Helper()
	defs, err := store.CreateOrOpenTable(context.Background(), conn, "households", householdSpecs())
	require.NoError(t, err)
	return defs
}

// fakeAttachments records attachment-delete requests.
type fakeAttachments struct {
	tableDeletes []string
	rowDeletes   [][2]string
	err          error
}

func (f *fakeAttachments) DeleteTableFiles(tableID string) error {
	f.tableDeletes = append(f.tableDeletes, tableID)
	return f.err
}

func (f *fakeAttachments) DeleteRowFiles(tableID, rowID string) error {
	f.rowDeletes = append(f.rowDeletes, [2]string{tableID, rowID})
	return f.err
}
