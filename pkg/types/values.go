package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// RowValues is a strongly-ordered bag of column values for an insert,
// update, or checkpoint. Keys are column names: user element keys or
// admin column names. A nil value means an explicit SQL NULL, which is
// distinct from an absent key.
type RowValues struct {
	keys []string
	m    map[string]any
}

// NewRowValues returns an empty value bag.
func NewRowValues() *RowValues {
	return &RowValues{m: make(map[string]any)}
}

// Set stores a value under the given column name, preserving first-set
// insertion order. Returns the receiver for chaining.
func (v *RowValues) Set(column string, value any) *RowValues {
	if _, ok := v.m[column]; !ok {
		v.keys = append(v.keys, column)
	}
	v.m[column] = value
	return v
}

// SetNull stores an explicit NULL for the column.
func (v *RowValues) SetNull(column string) *RowValues {
	return v.Set(column, nil)
}

// Get returns the value and whether the column is present.
func (v *RowValues) Get(column string) (any, bool) {
	val, ok := v.m[column]
	return val, ok
}

// Has reports whether the column is present (possibly as NULL).
func (v *RowValues) Has(column string) bool {
	_, ok := v.m[column]
	return ok
}

// Delete removes the column from the bag.
func (v *RowValues) Delete(column string) {
	if _, ok := v.m[column]; !ok {
		return
	}
	delete(v.m, column)
	for i, k := range v.keys {
		if k == column {
			v.keys = append(v.keys[:i], v.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the column names in insertion order.
func (v *RowValues) Keys() []string {
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

// Len returns the number of columns in the bag.
func (v *RowValues) Len() int {
	return len(v.keys)
}

// Clone returns an independent copy of the bag.
func (v *RowValues) Clone() *RowValues {
	out := NewRowValues()
	for _, k := range v.keys {
		out.Set(k, v.m[k])
	}
	return out
}

// FlushStructuredValues validates and normalizes the user columns of a
// value bag against the column set, in place:
//
//   - unknown user column names are rejected;
//   - values for retained columns are coerced to their storage type
//     (bool as 0/1, integer as int64, number as float64, containers as
//     JSON text);
//   - values supplied for non-retained composite columns are parsed as
//     JSON objects and pushed down into their retained children,
//     iterating through nested composites until none remain.
//
// Admin columns pass through untouched. A malformed JSON value at any
// level rejects the whole bag.
func (s *ColumnDefinitionSet) FlushStructuredValues(values *RowValues) error {
	type pending struct {
		def *ColumnDefinition
		raw any
	}
	var queue []pending

	for _, key := range values.Keys() {
		if IsAdminColumn(key) {
			continue
		}
		def, ok := s.byKey[key]
		if !ok {
			return fmt.Errorf("%w: %q in table %q", ErrUnknownColumn, key, s.TableID)
		}
		val, _ := values.Get(key)
		if def.retained {
			coerced, err := coerceToStorageType(def.ElementType, val)
			if err != nil {
				return fmt.Errorf("column %q: %w", key, err)
			}
			values.Set(key, coerced)
			continue
		}
		values.Delete(key)
		if val != nil {
			queue = append(queue, pending{def: def, raw: val})
		}
	}

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		obj, err := decodeStructuredObject(next.raw)
		if err != nil {
			return fmt.Errorf("column %q: %w", next.def.ElementKey, err)
		}
		for _, childKey := range next.def.ChildKeys {
			child, ok := s.byKey[childKey]
			if !ok {
				return fmt.Errorf("%w: child %q of %q", ErrCorruptState, childKey, next.def.ElementKey)
			}
			sub, present := obj[child.ElementName]
			if !present || sub == nil {
				continue
			}
			if child.retained {
				coerced, err := coerceToStorageType(child.ElementType, sub)
				if err != nil {
					return fmt.Errorf("column %q: %w", childKey, err)
				}
				values.Set(childKey, coerced)
				continue
			}
			reencoded, err := json.Marshal(sub)
			if err != nil {
				return fmt.Errorf("column %q: %w: %v", childKey, ErrMalformedStructuredValue, err)
			}
			queue = append(queue, pending{def: child, raw: string(reencoded)})
		}
	}
	return nil
}

// decodeStructuredObject interprets a composite column value as a JSON
// object: either an already-decoded map or a JSON-encoded string.
func decodeStructuredObject(raw any) (map[string]any, error) {
	switch v := raw.(type) {
	case map[string]any:
		return v, nil
	case string:
		var obj map[string]any
		if err := json.Unmarshal([]byte(v), &obj); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedStructuredValue, err)
		}
		return obj, nil
	case []byte:
		var obj map[string]any
		if err := json.Unmarshal(v, &obj); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedStructuredValue, err)
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("%w: value of type %T is not a JSON object", ErrMalformedStructuredValue, raw)
	}
}

// coerceToStorageType converts a caller-supplied value to the physical
// storage representation of the element type.
func coerceToStorageType(t ElementType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case ElementTypeBool:
		return coerceBool(v)
	case ElementTypeInteger:
		return coerceInteger(v)
	case ElementTypeNumber:
		return coerceNumber(v)
	case ElementTypeArray, ElementTypeObject:
		return coerceJSONText(v)
	default:
		return coerceText(v)
	}
}

// coerceBool stores booleans as 0/1 integers.
func coerceBool(v any) (any, error) {
	switch b := v.(type) {
	case bool:
		if b {
			return int64(1), nil
		}
		return int64(0), nil
	case int:
		return boolInt(b != 0), nil
	case int64:
		return boolInt(b != 0), nil
	case float64:
		return boolInt(b != 0), nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a bool", ErrMalformedStructuredValue, b)
		}
		return boolInt(parsed), nil
	default:
		return nil, fmt.Errorf("%w: %T is not a bool", ErrMalformedStructuredValue, v)
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func coerceInteger(v any) (any, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrMalformedStructuredValue, n.String())
		}
		return i, nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrMalformedStructuredValue, n)
		}
		return i, nil
	default:
		return nil, fmt.Errorf("%w: %T is not an integer", ErrMalformedStructuredValue, v)
	}
}

func coerceNumber(v any) (any, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrMalformedStructuredValue, n.String())
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrMalformedStructuredValue, n)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%w: %T is not a number", ErrMalformedStructuredValue, v)
	}
}

// coerceJSONText stores container values as their JSON encoding.
func coerceJSONText(v any) (any, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedStructuredValue, err)
	}
	return string(b), nil
}

func coerceText(v any) (any, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case fmt.Stringer:
		return s.String(), nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	case int64:
		return strconv.FormatInt(s, 10), nil
	case int:
		return strconv.Itoa(s), nil
	case bool:
		return strconv.FormatBool(s), nil
	default:
		return nil, fmt.Errorf("%w: cannot store %T as text", ErrMalformedStructuredValue, v)
	}
}
