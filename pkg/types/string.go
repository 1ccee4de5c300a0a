package types

import (
	"encoding/binary"
	"hash/fnv"
	"io"
	"strings"
)

// StringField represents a fixed-maximum-length string field.
type StringField struct {
	Value   string
	MaxSize int
}

// NewStringField creates a string field, truncating the value to maxSize
// bytes if necessary.
func NewStringField(value string, maxSize int) *StringField {
	if len(value) > maxSize {
		value = value[:maxSize]
	}
	return &StringField{
		Value:   value,
		MaxSize: maxSize,
	}
}

// Serialize writes a 4-byte big-endian length prefix followed by the string
// bytes padded with zeros up to MaxSize.
func (s *StringField) Serialize(w io.Writer) error {
	length := min(len(s.Value), s.MaxSize)

	lengthBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(lengthBytes, uint32(length))
	if _, err := w.Write(lengthBytes); err != nil {
		return err
	}

	if _, err := w.Write([]byte(s.Value[:length])); err != nil {
		return err
	}

	padding := make([]byte, s.MaxSize-length)
	_, err := w.Write(padding)
	return err
}

// Compare performs a lexicographic comparison. Like is substring match.
func (s *StringField) Compare(op Predicate, other Field) (bool, error) {
	otherStr, ok := other.(*StringField)
	if !ok {
		return false, nil
	}

	cmp := strings.Compare(s.Value, otherStr.Value)
	switch op {
	case Equals:
		return cmp == 0, nil
	case LessThan:
		return cmp < 0, nil
	case GreaterThan:
		return cmp > 0, nil
	case LessThanOrEqual:
		return cmp <= 0, nil
	case GreaterThanOrEqual:
		return cmp >= 0, nil
	case NotEqual:
		return cmp != 0, nil
	case Like:
		return strings.Contains(s.Value, otherStr.Value), nil
	default:
		return false, nil
	}
}

func (s *StringField) Type() Type {
	return StringType
}

func (s *StringField) String() string {
	return s.Value
}

func (s *StringField) Equals(other Field) bool {
	otherStr, ok := other.(*StringField)
	if !ok {
		return false
	}
	return s.Value == otherStr.Value && s.MaxSize == otherStr.MaxSize
}

func (s *StringField) Hash() (uint32, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s.Value))
	return h.Sum32(), nil
}
