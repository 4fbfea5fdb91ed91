package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ElementType is the logical type of a user column. The set is closed:
// scalar types, container types stored as JSON text, path types, and
// composite types that decompose into child element keys.
type ElementType string

const (
	ElementTypeString     ElementType = "string"
	ElementTypeInteger    ElementType = "integer"
	ElementTypeNumber     ElementType = "number"
	ElementTypeBool       ElementType = "bool"
	ElementTypeArray      ElementType = "array"
	ElementTypeObject     ElementType = "object"
	ElementTypeRowPath    ElementType = "rowpath"
	ElementTypeConfigPath ElementType = "configpath"
	ElementTypeGeopoint   ElementType = "geopoint"
	ElementTypeMimeURI    ElementType = "mimeUri"
	ElementTypeDate       ElementType = "date"
	ElementTypeDatetime   ElementType = "datetime"
	ElementTypeTime       ElementType = "time"
)

var validElementTypes = map[ElementType]bool{
	ElementTypeString:     true,
	ElementTypeInteger:    true,
	ElementTypeNumber:     true,
	ElementTypeBool:       true,
	ElementTypeArray:      true,
	ElementTypeObject:     true,
	ElementTypeRowPath:    true,
	ElementTypeConfigPath: true,
	ElementTypeGeopoint:   true,
	ElementTypeMimeURI:    true,
	ElementTypeDate:       true,
	ElementTypeDatetime:   true,
	ElementTypeTime:       true,
}

// Valid reports whether t is a recognized element type.
func (t ElementType) Valid() bool {
	return validElementTypes[t]
}

// SQLType returns the physical column type used to store values of t.
func (t ElementType) SQLType() string {
	switch t {
	case ElementTypeInteger, ElementTypeBool:
		return "INTEGER"
	case ElementTypeNumber:
		return "REAL"
	default:
		return "TEXT"
	}
}

// ColumnSpec is the caller-facing flat description of one column, as
// supplied to table creation. ListChildElementKeys is a JSON array of
// sibling element keys ("" or "[]" for scalar columns).
type ColumnSpec struct {
	ElementKey           string `json:"elementKey"`
	ElementName          string `json:"elementName"`
	ElementType          string `json:"elementType"`
	ListChildElementKeys string `json:"listChildElementKeys"`
}

// ColumnDefinition is one validated column of a table.
type ColumnDefinition struct {
	ElementKey  string
	ElementName string
	ElementType ElementType
	ChildKeys   []string // ordered child element keys, empty when scalar

	retained bool
}

// IsUnitOfRetention reports whether the column is physically stored as
// its own database column. Composite "envelope" columns whose value
// resides entirely in their children are not retained; the children of
// an array column are not retained because the array is stored
// serialized in the parent.
func (c *ColumnDefinition) IsUnitOfRetention() bool {
	return c.retained
}

// Spec converts the definition back into its flat spec form.
func (c *ColumnDefinition) Spec() ColumnSpec {
	children := "[]"
	if len(c.ChildKeys) > 0 {
		b, _ := json.Marshal(c.ChildKeys)
		children = string(b)
	}
	return ColumnSpec{
		ElementKey:           c.ElementKey,
		ElementName:          c.ElementName,
		ElementType:          string(c.ElementType),
		ListChildElementKeys: children,
	}
}

// ColumnDefinitionSet is the ordered, validated column set of one table.
// Ordering is by element key ascending, which also fixes the physical
// retention column order.
type ColumnDefinitionSet struct {
	TableID string

	defs  []*ColumnDefinition
	byKey map[string]*ColumnDefinition
}

// BuildColumnDefinitions validates a flat list of column specs and
// produces the ordered definition set for tableID. Any structural
// violation fails the whole set; the caller must not create a
// partially-valid table.
func BuildColumnDefinitions(tableID string, specs []ColumnSpec) (*ColumnDefinitionSet, error) {
	if tableID == "" {
		return nil, fmt.Errorf("%w: empty table id", ErrInvalidColumnSpec)
	}

	set := &ColumnDefinitionSet{
		TableID: tableID,
		byKey:   make(map[string]*ColumnDefinition, len(specs)),
	}

	for _, spec := range specs {
		if spec.ElementKey == "" || spec.ElementName == "" {
			return nil, fmt.Errorf("%w: empty element key or name", ErrInvalidColumnSpec)
		}
		if IsAdminColumn(spec.ElementKey) || strings.HasPrefix(spec.ElementKey, "_") {
			return nil, fmt.Errorf("%w: element key %q collides with admin columns", ErrInvalidColumnSpec, spec.ElementKey)
		}
		et := ElementType(spec.ElementType)
		if !et.Valid() {
			return nil, fmt.Errorf("%w: %q on column %q", ErrInvalidElementType, spec.ElementType, spec.ElementKey)
		}
		if _, dup := set.byKey[spec.ElementKey]; dup {
			return nil, fmt.Errorf("%w: duplicate element key %q", ErrInvalidColumnSpec, spec.ElementKey)
		}
		children, err := parseChildKeys(spec.ListChildElementKeys)
		if err != nil {
			return nil, fmt.Errorf("%w: column %q child list: %v", ErrInvalidColumnSpec, spec.ElementKey, err)
		}
		def := &ColumnDefinition{
			ElementKey:  spec.ElementKey,
			ElementName: spec.ElementName,
			ElementType: et,
			ChildKeys:   children,
			retained:    true,
		}
		set.byKey[def.ElementKey] = def
		set.defs = append(set.defs, def)
	}

	sort.Slice(set.defs, func(i, j int) bool {
		return set.defs[i].ElementKey < set.defs[j].ElementKey
	})

	if err := set.validateChildren(); err != nil {
		return nil, err
	}
	set.markUnitsOfRetention()
	return set, nil
}

// parseChildKeys decodes the JSON child-key list; "" and "[]" mean none.
func parseChildKeys(raw string) ([]string, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// validateChildren checks the composite-type structural rules: every
// declared child key exists as a sibling, follows the
// parentKey_childName naming convention, is not self-referential, has a
// distinct element name among its siblings, and belongs to at most one
// parent.
func (s *ColumnDefinitionSet) validateChildren() error {
	parentOf := make(map[string]string)
	for _, def := range s.defs {
		seenNames := make(map[string]bool, len(def.ChildKeys))
		for _, childKey := range def.ChildKeys {
			if childKey == def.ElementKey {
				return fmt.Errorf("%w: column %q references itself as a child", ErrInvalidColumnSpec, def.ElementKey)
			}
			child, ok := s.byKey[childKey]
			if !ok {
				return fmt.Errorf("%w: column %q declares missing child %q", ErrInvalidColumnSpec, def.ElementKey, childKey)
			}
			if childKey != def.ElementKey+"_"+child.ElementName {
				return fmt.Errorf("%w: child %q of %q does not match element name %q",
					ErrInvalidColumnSpec, childKey, def.ElementKey, child.ElementName)
			}
			if seenNames[child.ElementName] {
				return fmt.Errorf("%w: column %q declares duplicate child name %q", ErrInvalidColumnSpec, def.ElementKey, child.ElementName)
			}
			seenNames[child.ElementName] = true
			if prev, claimed := parentOf[childKey]; claimed {
				return fmt.Errorf("%w: column %q is a child of both %q and %q", ErrInvalidColumnSpec, childKey, prev, def.ElementKey)
			}
			parentOf[childKey] = def.ElementKey
		}
	}
	return nil
}

// markUnitsOfRetention computes which columns are physically stored.
// Default is retained. A column with children is not retained unless it
// is an array (arrays are stored serialized in the parent, so the item
// children are not retained).
func (s *ColumnDefinitionSet) markUnitsOfRetention() {
	for _, def := range s.defs {
		if len(def.ChildKeys) == 0 {
			continue
		}
		if def.ElementType == ElementTypeArray {
			s.markSubtreeNotRetained(def.ChildKeys)
		} else {
			def.retained = false
		}
	}
}

func (s *ColumnDefinitionSet) markSubtreeNotRetained(keys []string) {
	for _, key := range keys {
		child, ok := s.byKey[key]
		if !ok {
			continue
		}
		child.retained = false
		s.markSubtreeNotRetained(child.ChildKeys)
	}
}

// Get returns the definition for the given element key.
func (s *ColumnDefinitionSet) Get(elementKey string) (*ColumnDefinition, bool) {
	def, ok := s.byKey[elementKey]
	return def, ok
}

// All returns the definitions ordered by element key.
func (s *ColumnDefinitionSet) All() []*ColumnDefinition {
	out := make([]*ColumnDefinition, len(s.defs))
	copy(out, s.defs)
	return out
}

// Len returns the number of column definitions.
func (s *ColumnDefinitionSet) Len() int {
	return len(s.defs)
}

// RetainedKeys returns the flattened retention column order used for
// physical schema generation and cursor-to-row mapping.
func (s *ColumnDefinitionSet) RetainedKeys() []string {
	var keys []string
	for _, def := range s.defs {
		if def.retained {
			keys = append(keys, def.ElementKey)
		}
	}
	return keys
}

// Specs converts the set back into flat spec form, ordered by element
// key.
func (s *ColumnDefinitionSet) Specs() []ColumnSpec {
	out := make([]ColumnSpec, 0, len(s.defs))
	for _, def := range s.defs {
		out = append(out, def.Spec())
	}
	return out
}
