package types

import (
	"encoding/binary"
	"hash/fnv"
	"io"
	"strconv"
)

// IntField represents a 32-bit signed integer field.
type IntField struct {
	Value int32
}

func NewIntField(value int32) *IntField {
	return &IntField{Value: value}
}

// Serialize writes the value as 4 bytes, big-endian two's complement.
func (f *IntField) Serialize(w io.Writer) error {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(f.Value))
	_, err := w.Write(buf)
	return err
}

func (f *IntField) Compare(op Predicate, other Field) (bool, error) {
	otherInt, ok := other.(*IntField)
	if !ok {
		return false, nil
	}

	a, b := f.Value, otherInt.Value
	switch op {
	case Equals:
		return a == b, nil
	case LessThan:
		return a < b, nil
	case GreaterThan:
		return a > b, nil
	case LessThanOrEqual:
		return a <= b, nil
	case GreaterThanOrEqual:
		return a >= b, nil
	case NotEqual:
		return a != b, nil
	default:
		return false, nil
	}
}

func (f *IntField) Type() Type {
	return IntType
}

func (f *IntField) String() string {
	return strconv.FormatInt(int64(f.Value), 10)
}

func (f *IntField) Equals(other Field) bool {
	otherInt, ok := other.(*IntField)
	if !ok {
		return false
	}
	return f.Value == otherInt.Value
}

func (f *IntField) Hash() (uint32, error) {
	h := fnv.New32a()
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(f.Value))
	_, _ = h.Write(buf)
	return h.Sum32(), nil
}
