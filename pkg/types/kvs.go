package types

// Key-value store partitions. The partition scopes an entry to the
// table as a whole, to one column (aspect = element key), or to a
// caller-defined scope.
const (
	KVSPartitionTable  = "Table"
	KVSPartitionColumn = "Column"
)

// KVSAspectDefault is the aspect used for table-wide entries.
const KVSAspectDefault = "default"

// Value types for key-value entries. Values are serialized scalars,
// arrays, or objects (JSON-encoded) typed by one of these.
const (
	KVSValueTypeString  = "string"
	KVSValueTypeInteger = "integer"
	KVSValueTypeNumber  = "number"
	KVSValueTypeBool    = "bool"
	KVSValueTypeArray   = "array"
	KVSValueTypeObject  = "object"
)

var validKVSValueTypes = map[string]bool{
	KVSValueTypeString:  true,
	KVSValueTypeInteger: true,
	KVSValueTypeNumber:  true,
	KVSValueTypeBool:    true,
	KVSValueTypeArray:   true,
	KVSValueTypeObject:  true,
}

// Well-known keys seeded at table creation.
const (
	KVSKeyDisplayName        = "displayName"
	KVSKeyDefaultViewType    = "defaultViewType"
	KVSKeyColOrder           = "colOrder"
	KVSKeyGroupByCols        = "groupByCols"
	KVSKeySortCol            = "sortCol"
	KVSKeyIndexCol           = "indexCol"
	KVSKeyDisplayVisible     = "displayVisible"
	KVSKeyDisplayChoicesList = "displayChoicesList"
	KVSKeyDisplayFormat      = "displayFormat"
	KVSKeyJoins              = "joins"
)

// KVSDefaultViewType is the view seeded for new tables.
const KVSDefaultViewType = "SPREADSHEET"

// KeyValueEntry is one row of the shared metadata store, addressed by
// the natural key (tableId, partition, aspect, key). An entry whose
// value is blank is equivalent to absence and is deleted rather than
// stored.
type KeyValueEntry struct {
	TableID   string `json:"tableId"`
	Partition string `json:"partition"`
	Aspect    string `json:"aspect"`
	Key       string `json:"key"`
	ValueType string `json:"type"`
	Value     string `json:"value"`
}

// IsBlank reports whether the entry's value means absence.
func (e KeyValueEntry) IsBlank() bool {
	return e.Value == ""
}

// Validate checks the natural key and value type.
func (e KeyValueEntry) Validate() error {
	if e.TableID == "" || e.Partition == "" || e.Aspect == "" || e.Key == "" {
		return ErrInvalidKVSEntry
	}
	if !validKVSValueTypes[e.ValueType] {
		return ErrInvalidKVSEntry
	}
	return nil
}
