package tuple

import (
	"strings"

	"github.com/pkg/errors"

	"tupledb/pkg/types"
)

// Tuple is a row of data: field values conforming to a descriptor, plus the
// record id assigned once the tuple is stored on a page.
type Tuple struct {
	TupleDesc *TupleDescription
	fields    []types.Field
	RecordID  *RecordID
}

// NewTuple creates an empty tuple with the given schema.
func NewTuple(td *TupleDescription) *Tuple {
	return &Tuple{
		TupleDesc: td,
		fields:    make([]types.Field, td.NumFields()),
	}
}

// SetField sets the value of the ith field, checking the declared type.
func (t *Tuple) SetField(i int, field types.Field) error {
	if i < 0 || i >= len(t.fields) {
		return errors.Errorf("field index %d out of bounds [0, %d)", i, len(t.fields))
	}

	expectedType, _ := t.TupleDesc.TypeAtIndex(i)
	if field.Type() != expectedType {
		return errors.Errorf("field type mismatch: expected %v, got %v", expectedType, field.Type())
	}

	t.fields[i] = field
	return nil
}

// GetField returns the value of the ith field.
func (t *Tuple) GetField(i int) (types.Field, error) {
	if i < 0 || i >= len(t.fields) {
		return nil, errors.Errorf("field index %d out of bounds [0, %d)", i, len(t.fields))
	}
	return t.fields[i], nil
}

// Equals reports whether two tuples have equal schemas and field values.
// Record ids are not compared.
func (t *Tuple) Equals(other *Tuple) bool {
	if other == nil || !t.TupleDesc.Equals(other.TupleDesc) {
		return false
	}
	for i, field := range t.fields {
		if field == nil || other.fields[i] == nil {
			if field != other.fields[i] {
				return false
			}
			continue
		}
		if !field.Equals(other.fields[i]) {
			return false
		}
	}
	return true
}

// Clone creates a copy of this tuple sharing the (immutable) field values.
// The clone carries no record id.
func (t *Tuple) Clone() *Tuple {
	clone := NewTuple(t.TupleDesc)
	copy(clone.fields, t.fields)
	return clone
}

// String renders the tuple as tab-separated field values.
func (t *Tuple) String() string {
	parts := make([]string, 0, len(t.fields))
	for _, field := range t.fields {
		if field != nil {
			parts = append(parts, field.String())
		} else {
			parts = append(parts, "null")
		}
	}
	return strings.Join(parts, "\t")
}

// CombineTuples concatenates two tuples, as needed by joins.
func CombineTuples(t1, t2 *Tuple) (*Tuple, error) {
	if t1 == nil || t2 == nil {
		return nil, errors.New("cannot combine nil tuples")
	}

	combined := NewTuple(Combine(t1.TupleDesc, t2.TupleDesc))
	copy(combined.fields, t1.fields)
	copy(combined.fields[t1.TupleDesc.NumFields():], t2.fields)
	return combined, nil
}
