package storage

import (
	"encoding/binary"
	"fmt"
)

// encodeTuple renders (row_id, values) to the self-describing binary blob
// stored in a page's tuple area: an 8-byte row id, a 2-byte value count,
// then each value's tagged encoding in order.
func encodeTuple(rowID uint64, values []Value) []byte {
	size := 8 + 2
	for _, v := range values {
		size += v.encodedSize()
	}

	buf := make([]byte, size)
	binary.LittleEndian.PutUint64(buf[0:8], rowID)
	binary.LittleEndian.PutUint16(buf[8:10], uint16(len(values)))

	off := 10
	for _, v := range values {
		off += v.encode(buf[off:])
	}
	return buf
}

func decodeTuple(buf []byte) (uint64, []Value, error) {
	if len(buf) < 10 {
		return 0, nil, fmt.Errorf("%w: tuple header truncated", ErrDeserialize)
	}
	rowID := binary.LittleEndian.Uint64(buf[0:8])
	count := int(binary.LittleEndian.Uint16(buf[8:10]))

	values := make([]Value, 0, count)
	off := 10
	for i := 0; i < count; i++ {
		v, n, err := decodeValue(buf[off:])
		if err != nil {
			return 0, nil, err
		}
		values = append(values, v)
		off += n
	}
	return rowID, values, nil
}

// tupleSize returns the encoded size a row would occupy, computed by
// encoding it into a scratch buffer; used by callers that must decide page
// placement before committing to an insert.
func tupleSize(rowID uint64, values []Value) int {
	return len(encodeTuple(rowID, values))
}
