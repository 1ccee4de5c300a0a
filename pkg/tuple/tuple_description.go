package tuple

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"tupledb/pkg/dberr"
	"tupledb/pkg/types"
)

// TupleDescription describes the schema of a tuple: the ordered field types
// and their optional names. It is immutable once constructed.
type TupleDescription struct {
	Types      []types.Type
	FieldNames []string
}

// NewTupleDesc creates a tuple descriptor from field types and optional
// field names. If fieldNames is nil, fields are unnamed.
func NewTupleDesc(fieldTypes []types.Type, fieldNames []string) (*TupleDescription, error) {
	if len(fieldTypes) < 1 {
		return nil, errors.Wrap(dberr.ErrInvalidArgument, "must provide at least one field type")
	}

	typesCopy := make([]types.Type, len(fieldTypes))
	copy(typesCopy, fieldTypes)

	var namesCopy []string
	if fieldNames != nil {
		if len(fieldNames) != len(fieldTypes) {
			return nil, errors.Wrapf(dberr.ErrInvalidArgument,
				"field names length (%d) must match field types length (%d)",
				len(fieldNames), len(fieldTypes))
		}
		namesCopy = make([]string, len(fieldNames))
		copy(namesCopy, fieldNames)
	}

	return &TupleDescription{
		Types:      typesCopy,
		FieldNames: namesCopy,
	}, nil
}

// NumFields returns the number of fields in this descriptor.
func (td *TupleDescription) NumFields() int {
	return len(td.Types)
}

// GetFieldName returns the name of the ith field, or an empty string if no
// names were provided.
func (td *TupleDescription) GetFieldName(i int) (string, error) {
	if i < 0 || i >= len(td.Types) {
		return "", errors.Errorf("field index %d out of bounds [0, %d)", i, len(td.Types))
	}
	if td.FieldNames == nil {
		return "", nil
	}
	return td.FieldNames[i], nil
}

// TypeAtIndex returns the type of the ith field.
func (td *TupleDescription) TypeAtIndex(i int) (types.Type, error) {
	if i < 0 || i >= len(td.Types) {
		return 0, errors.Errorf("field index %d out of bounds [0, %d)", i, len(td.Types))
	}
	return td.Types[i], nil
}

// GetSize returns the serialized size in bytes of tuples with this schema.
func (td *TupleDescription) GetSize() int {
	size := 0
	for _, fieldType := range td.Types {
		size += fieldType.Size()
	}
	return size
}

// Equals reports whether two descriptors have the same field types in the
// same order. Field names are not compared.
func (td *TupleDescription) Equals(other *TupleDescription) bool {
	if other == nil {
		return false
	}
	if len(td.Types) != len(other.Types) {
		return false
	}
	for i, fieldType := range td.Types {
		if fieldType != other.Types[i] {
			return false
		}
	}
	return true
}

// FindFieldIndex locates a field by name with a case-sensitive linear scan.
func (td *TupleDescription) FindFieldIndex(fieldName string) (int, error) {
	for i := 0; i < td.NumFields(); i++ {
		name, _ := td.GetFieldName(i)
		if name == fieldName {
			return i, nil
		}
	}
	return -1, errors.Errorf("column %s not found", fieldName)
}

// String returns "Type1(name1),Type2(name2),..." with "null" for unnamed
// fields.
func (td *TupleDescription) String() string {
	parts := make([]string, 0, len(td.Types))
	for i, fieldType := range td.Types {
		fieldName := "null"
		if td.FieldNames != nil && i < len(td.FieldNames) {
			fieldName = td.FieldNames[i]
		}
		parts = append(parts, fmt.Sprintf("%s(%s)", fieldType, fieldName))
	}
	return strings.Join(parts, ",")
}

// Combine merges two descriptors: all fields of td1 followed by all fields
// of td2. If either is nil the other is returned.
func Combine(td1, td2 *TupleDescription) *TupleDescription {
	if td1 == nil {
		return td2
	}
	if td2 == nil {
		return td1
	}

	newTypes := make([]types.Type, 0, len(td1.Types)+len(td2.Types))
	newTypes = append(newTypes, td1.Types...)
	newTypes = append(newTypes, td2.Types...)

	var newNames []string
	if td1.FieldNames != nil || td2.FieldNames != nil {
		newNames = make([]string, 0, len(newTypes))
		newNames = appendNames(newNames, td1)
		newNames = appendNames(newNames, td2)
	}

	combined, _ := NewTupleDesc(newTypes, newNames)
	return combined
}

func appendNames(names []string, td *TupleDescription) []string {
	if td.FieldNames != nil {
		return append(names, td.FieldNames...)
	}
	for range td.Types {
		names = append(names, "")
	}
	return names
}
