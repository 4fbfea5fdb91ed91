package sqlite

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fieldstack/fieldstore/pkg/types"
)

// Registry DDL. One table-definition registry, one column-definition
// registry, one shared key-value metadata store, and the sync-ETag
// bookkeeping store cascaded on table drop.
const (
	createTableDefinitions = `CREATE TABLE IF NOT EXISTS _table_definitions (
    table_id TEXT PRIMARY KEY,
    schema_etag TEXT,
    last_data_etag TEXT,
    last_sync_time TEXT NOT NULL
);`

	createColumnDefinitions = `CREATE TABLE IF NOT EXISTS _column_definitions (
    table_id TEXT NOT NULL,
    element_key TEXT NOT NULL,
    element_name TEXT NOT NULL,
    element_type TEXT NOT NULL,
    list_child_element_keys TEXT NOT NULL,
    PRIMARY KEY (table_id, element_key)
);`

	createKeyValueStore = `CREATE TABLE IF NOT EXISTS _key_value_store (
    table_id TEXT NOT NULL,
    partition TEXT NOT NULL,
    aspect TEXT NOT NULL,
    key TEXT NOT NULL,
    value_type TEXT NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (table_id, partition, aspect, key)
);`

	createSyncETags = `CREATE TABLE IF NOT EXISTS _sync_etags (
    table_id TEXT NOT NULL,
    url TEXT NOT NULL,
    etag TEXT NOT NULL,
    last_modified TEXT NOT NULL,
    PRIMARY KEY (table_id, url)
);`
)

// registryDDL lists the registry statements in dependency order.
var registryDDL = []string{
	createTableDefinitions,
	createColumnDefinitions,
	createKeyValueStore,
	createSyncETags,
}

// tableIDPattern restricts table ids to safe SQL identifiers. Leading
// underscores are reserved for the registry tables.
var tableIDPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// validateTableID rejects table ids that cannot be used as identifiers.
func validateTableID(tableID string) error {
	if !tableIDPattern.MatchString(tableID) {
		return fmt.Errorf("%w: invalid table id %q", types.ErrInvalidColumnSpec, tableID)
	}
	return nil
}

// quoteIdent double-quotes a SQL identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// adminColumnDDL returns the DDL fragment for one admin column.
func adminColumnDDL(name string) string {
	switch name {
	case types.ColID:
		return name + " TEXT NOT NULL"
	case types.ColSyncState:
		return name + " TEXT NOT NULL"
	case types.ColSavepointTimestamp:
		return name + " TEXT NOT NULL"
	case types.ColConflictType:
		return name + " INTEGER"
	default:
		return name + " TEXT"
	}
}

// buildUserTableDDL emits the CREATE TABLE statement for a user table:
// the fixed admin column set followed by one physical column per
// retained user column, typed by the deterministic element-type map.
func buildUserTableDDL(defs *types.ColumnDefinitionSet) string {
	var cols []string
	for _, name := range types.AdminColumns() {
		cols = append(cols, "    "+adminColumnDDL(name))
	}
	for _, key := range defs.RetainedKeys() {
		def, _ := defs.Get(key)
		cols = append(cols, "    "+quoteIdent(key)+" "+def.ElementType.SQLType())
	}
	return "CREATE TABLE IF NOT EXISTS " + quoteIdent(defs.TableID) + " (\n" +
		strings.Join(cols, ",\n") + "\n);"
}

// buildUserTableIndexDDL emits the row-id index for a user table.
// Checkpoint chains and conflict pairs make _id non-unique.
func buildUserTableIndexDDL(tableID string) string {
	return "CREATE INDEX IF NOT EXISTS " + quoteIdent("idx_"+tableID+"_id") +
		" ON " + quoteIdent(tableID) + " (" + types.ColID + ");"
}
