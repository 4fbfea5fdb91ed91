package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// geopointSpecs returns a column set with a scalar column, a composite
// geopoint, and the geopoint's four numeric children.
func geopointSpecs() []ColumnSpec {
	return []ColumnSpec{
		{ElementKey: "name", ElementName: "name", ElementType: "string", ListChildElementKeys: "[]"},
		{ElementKey: "location", ElementName: "location", ElementType: "geopoint",
			ListChildElementKeys: `["location_latitude","location_longitude","location_altitude","location_accuracy"]`},
		{ElementKey: "location_latitude", ElementName: "latitude", ElementType: "number", ListChildElementKeys: "[]"},
		{ElementKey: "location_longitude", ElementName: "longitude", ElementType: "number", ListChildElementKeys: "[]"},
		{ElementKey: "location_altitude", ElementName: "altitude", ElementType: "number", ListChildElementKeys: "[]"},
		{ElementKey: "location_accuracy", ElementName: "accuracy", ElementType: "number", ListChildElementKeys: "[]"},
	}
}

func TestBuildColumnDefinitions(t *testing.T) {
	tests := []struct {
		name    string
		tableID string
		specs   []ColumnSpec
		wantErr error
		check   func(t *testing.T, set *ColumnDefinitionSet)
	}{
		{
			name:    "geopoint set builds and sorts by element key",
			tableID: "households",
			specs:   geopointSpecs(),
			check: func(t *testing.T, set *ColumnDefinitionSet) {
				assert.Equal(t, 6, set.Len())
				var keys []string
				for _, def := range set.All() {
					keys = append(keys, def.ElementKey)
				}
				assert.Equal(t, []string{
					"location", "location_accuracy", "location_altitude",
					"location_latitude", "location_longitude", "name",
				}, keys)
			},
		},
		{
			name:    "composite parent is not a unit of retention",
			tableID: "households",
			specs:   geopointSpecs(),
			check: func(t *testing.T, set *ColumnDefinitionSet) {
				loc, ok := set.Get("location")
				require.True(t, ok)
				assert.False(t, loc.IsUnitOfRetention())

				lat, ok := set.Get("location_latitude")
				require.True(t, ok)
				assert.True(t, lat.IsUnitOfRetention())

				assert.Equal(t, []string{
					"location_accuracy", "location_altitude",
					"location_latitude", "location_longitude", "name",
				}, set.RetainedKeys())
			},
		},
		{
			name:    "array column retains itself, not its item subtree",
			tableID: "surveys",
			specs: []ColumnSpec{
				{ElementKey: "tags", ElementName: "tags", ElementType: "array",
					ListChildElementKeys: `["tags_items"]`},
				{ElementKey: "tags_items", ElementName: "items", ElementType: "string", ListChildElementKeys: "[]"},
			},
			check: func(t *testing.T, set *ColumnDefinitionSet) {
				assert.Equal(t, []string{"tags"}, set.RetainedKeys())
			},
		},
		{
			name:    "empty table id rejected",
			tableID: "",
			specs:   geopointSpecs(),
			wantErr: ErrInvalidColumnSpec,
		},
		{
			name:    "admin column name rejected",
			tableID: "t",
			specs: []ColumnSpec{
				{ElementKey: "_id", ElementName: "id", ElementType: "string", ListChildElementKeys: "[]"},
			},
			wantErr: ErrInvalidColumnSpec,
		},
		{
			name:    "underscore-prefixed key rejected",
			tableID: "t",
			specs: []ColumnSpec{
				{ElementKey: "_private", ElementName: "private", ElementType: "string", ListChildElementKeys: "[]"},
			},
			wantErr: ErrInvalidColumnSpec,
		},
		{
			name:    "unknown element type rejected",
			tableID: "t",
			specs: []ColumnSpec{
				{ElementKey: "blob", ElementName: "blob", ElementType: "binary", ListChildElementKeys: "[]"},
			},
			wantErr: ErrInvalidElementType,
		},
		{
			name:    "duplicate element key rejected",
			tableID: "t",
			specs: []ColumnSpec{
				{ElementKey: "a", ElementName: "a", ElementType: "string", ListChildElementKeys: "[]"},
				{ElementKey: "a", ElementName: "a", ElementType: "integer", ListChildElementKeys: "[]"},
			},
			wantErr: ErrInvalidColumnSpec,
		},
		{
			name:    "missing child column rejected",
			tableID: "t",
			specs: []ColumnSpec{
				{ElementKey: "point", ElementName: "point", ElementType: "geopoint",
					ListChildElementKeys: `["point_latitude"]`},
			},
			wantErr: ErrInvalidColumnSpec,
		},
		{
			name:    "child key must be parentKey_childName",
			tableID: "t",
			specs: []ColumnSpec{
				{ElementKey: "point", ElementName: "point", ElementType: "geopoint",
					ListChildElementKeys: `["lat"]`},
				{ElementKey: "lat", ElementName: "latitude", ElementType: "number", ListChildElementKeys: "[]"},
			},
			wantErr: ErrInvalidColumnSpec,
		},
		{
			name:    "malformed child key list rejected",
			tableID: "t",
			specs: []ColumnSpec{
				{ElementKey: "point", ElementName: "point", ElementType: "geopoint",
					ListChildElementKeys: `not json`},
			},
			wantErr: ErrInvalidColumnSpec,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := BuildColumnDefinitions(tt.tableID, tt.specs)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, set)
		})
	}
}

func TestElementTypeSQLType(t *testing.T) {
	assert.Equal(t, "INTEGER", ElementTypeBool.SQLType())
	assert.Equal(t, "INTEGER", ElementTypeInteger.SQLType())
	assert.Equal(t, "REAL", ElementTypeNumber.SQLType())
	assert.Equal(t, "TEXT", ElementTypeString.SQLType())
	assert.Equal(t, "TEXT", ElementTypeGeopoint.SQLType())
	assert.Equal(t, "TEXT", ElementTypeMimeURI.SQLType())
}
