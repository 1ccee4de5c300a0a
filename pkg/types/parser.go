package types

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// ParseField reads one field of the given type from r. The stream must be
// positioned at the start of the field's fixed-width binary form, as laid
// out by Field.Serialize.
func ParseField(r io.Reader, t Type) (Field, error) {
	switch t {
	case IntType:
		return parseIntField(r)
	case StringType:
		return parseStringField(r)
	default:
		return nil, errors.Errorf("unknown field type %v", t)
	}
}

func parseIntField(r io.Reader) (Field, error) {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Wrap(err, "failed to read int field")
	}
	return NewIntField(int32(binary.BigEndian.Uint32(buf))), nil
}

func parseStringField(r io.Reader) (Field, error) {
	lengthBytes := make([]byte, 4)
	if _, err := io.ReadFull(r, lengthBytes); err != nil {
		return nil, errors.Wrap(err, "failed to read string length")
	}

	length := int(binary.BigEndian.Uint32(lengthBytes))
	if length > StringMaxSize {
		return nil, errors.Errorf("string length %d exceeds maximum %d", length, StringMaxSize)
	}

	buf := make([]byte, StringMaxSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Wrap(err, "failed to read string bytes")
	}

	return NewStringField(string(buf[:length]), StringMaxSize), nil
}
