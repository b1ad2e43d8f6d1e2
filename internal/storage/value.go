package storage

import (
	"encoding/binary"
	"fmt"
)

// ValueKind tags the runtime type carried by a Value, mirroring the column
// kinds a schema can declare.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindInt64
	KindText
	KindBool
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt64:
		return "integer"
	case KindText:
		return "text"
	case KindBool:
		return "boolean"
	default:
		return "unknown"
	}
}

// Value is a tagged scalar: exactly one of the typed fields is meaningful,
// selected by Kind. Null values carry no payload.
type Value struct {
	Kind ValueKind
	Int  int64
	Text string
	Bool bool
}

func NewNull() Value                { return Value{Kind: KindNull} }
func NewInt64(v int64) Value        { return Value{Kind: KindInt64, Int: v} }
func NewText(v string) Value        { return Value{Kind: KindText, Text: v} }
func NewBool(v bool) Value          { return Value{Kind: KindBool, Bool: v} }
func (v Value) IsNull() bool        { return v.Kind == KindNull }

// encodedSize returns the number of bytes Value occupies in the tuple wire
// format: 1 tag byte, then a kind-specific payload.
func (v Value) encodedSize() int {
	switch v.Kind {
	case KindNull:
		return 1
	case KindInt64:
		return 1 + 8
	case KindBool:
		return 1 + 1
	case KindText:
		return 1 + 4 + len(v.Text)
	default:
		return 1
	}
}

func (v Value) encode(buf []byte) int {
	buf[0] = byte(v.Kind)
	switch v.Kind {
	case KindNull:
		return 1
	case KindInt64:
		binary.LittleEndian.PutUint64(buf[1:9], uint64(v.Int))
		return 9
	case KindBool:
		if v.Bool {
			buf[1] = 1
		} else {
			buf[1] = 0
		}
		return 2
	case KindText:
		binary.LittleEndian.PutUint32(buf[1:5], uint32(len(v.Text)))
		copy(buf[5:5+len(v.Text)], v.Text)
		return 5 + len(v.Text)
	default:
		return 1
	}
}

func decodeValue(buf []byte) (Value, int, error) {
	if len(buf) < 1 {
		return Value{}, 0, fmt.Errorf("%w: empty value buffer", ErrDeserialize)
	}
	kind := ValueKind(buf[0])
	switch kind {
	case KindNull:
		return Value{Kind: KindNull}, 1, nil
	case KindInt64:
		if len(buf) < 9 {
			return Value{}, 0, fmt.Errorf("%w: truncated integer value", ErrDeserialize)
		}
		return Value{Kind: KindInt64, Int: int64(binary.LittleEndian.Uint64(buf[1:9]))}, 9, nil
	case KindBool:
		if len(buf) < 2 {
			return Value{}, 0, fmt.Errorf("%w: truncated boolean value", ErrDeserialize)
		}
		return Value{Kind: KindBool, Bool: buf[1] == 1}, 2, nil
	case KindText:
		if len(buf) < 5 {
			return Value{}, 0, fmt.Errorf("%w: truncated text length", ErrDeserialize)
		}
		n := int(binary.LittleEndian.Uint32(buf[1:5]))
		if len(buf) < 5+n {
			return Value{}, 0, fmt.Errorf("%w: truncated text payload", ErrDeserialize)
		}
		return Value{Kind: KindText, Text: string(buf[5 : 5+n])}, 5 + n, nil
	default:
		return Value{}, 0, fmt.Errorf("%w: unknown value kind %d", ErrDeserialize, kind)
	}
}
