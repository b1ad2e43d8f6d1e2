package storage

import (
	"encoding/binary"
	"fmt"
	"time"
)

// PageFormatVersion is the version stamped into every table's header-page
// metadata record. It increments only when the tuple/page wire format
// changes incompatibly.
const PageFormatVersion = 1

// TableMeta is the metadata record carried by the single tuple on page 0
// of every table's page file, per spec.md §3 ("Page File").
type TableMeta struct {
	TableName         string
	CreatedAt         time.Time
	PageFormatVersion uint32
	Columns           Schema
	TotalTuples       uint64
}

// marshal renders the metadata record to a flat binary blob. This is kept
// distinct from the per-row tuple encoding in tuple.go: a metadata record
// is a single nested structure, not a sequence of typed scalar columns.
func (m TableMeta) marshal() []byte {
	size := 4 + len(m.TableName) + 8 + 4 + 4 + 8
	for _, c := range m.Columns {
		size += 4 + len(c.Name) + 1 + 4
	}

	buf := make([]byte, size)
	off := 0

	binary.LittleEndian.PutUint32(buf[off:], uint32(len(m.TableName)))
	off += 4
	copy(buf[off:], m.TableName)
	off += len(m.TableName)

	binary.LittleEndian.PutUint64(buf[off:], uint64(m.CreatedAt.Unix()))
	off += 8

	binary.LittleEndian.PutUint32(buf[off:], m.PageFormatVersion)
	off += 4

	binary.LittleEndian.PutUint32(buf[off:], uint32(len(m.Columns)))
	off += 4
	for _, c := range m.Columns {
		binary.LittleEndian.PutUint32(buf[off:], uint32(len(c.Name)))
		off += 4
		copy(buf[off:], c.Name)
		off += len(c.Name)
		buf[off] = byte(c.Kind)
		off++
		binary.LittleEndian.PutUint32(buf[off:], c.Size)
		off += 4
	}

	binary.LittleEndian.PutUint64(buf[off:], m.TotalTuples)
	off += 8

	return buf[:off]
}

func unmarshalTableMeta(buf []byte) (TableMeta, error) {
	var m TableMeta
	off := 0

	read32 := func() (uint32, error) {
		if off+4 > len(buf) {
			return 0, fmt.Errorf("%w: metadata truncated", ErrDeserialize)
		}
		v := binary.LittleEndian.Uint32(buf[off:])
		off += 4
		return v, nil
	}

	nameLen, err := read32()
	if err != nil {
		return m, err
	}
	if off+int(nameLen) > len(buf) {
		return m, fmt.Errorf("%w: metadata table name truncated", ErrDeserialize)
	}
	m.TableName = string(buf[off : off+int(nameLen)])
	off += int(nameLen)

	if off+8 > len(buf) {
		return m, fmt.Errorf("%w: metadata created_at truncated", ErrDeserialize)
	}
	m.CreatedAt = time.Unix(int64(binary.LittleEndian.Uint64(buf[off:])), 0).UTC()
	off += 8

	version, err := read32()
	if err != nil {
		return m, err
	}
	m.PageFormatVersion = version

	colCount, err := read32()
	if err != nil {
		return m, err
	}

	m.Columns = make(Schema, 0, colCount)
	for i := uint32(0); i < colCount; i++ {
		nameLen, err := read32()
		if err != nil {
			return m, err
		}
		if off+int(nameLen) > len(buf) {
			return m, fmt.Errorf("%w: metadata column name truncated", ErrDeserialize)
		}
		name := string(buf[off : off+int(nameLen)])
		off += int(nameLen)

		if off+1 > len(buf) {
			return m, fmt.Errorf("%w: metadata column kind truncated", ErrDeserialize)
		}
		kind := ColumnKind(buf[off])
		off++

		size, err := read32()
		if err != nil {
			return m, err
		}
		m.Columns = append(m.Columns, ColumnDef{Name: name, Kind: kind, Size: size})
	}

	if off+8 > len(buf) {
		return m, fmt.Errorf("%w: metadata total_tuples truncated", ErrDeserialize)
	}
	m.TotalTuples = binary.LittleEndian.Uint64(buf[off:])
	off += 8

	return m, nil
}

// metaRowID is the fixed row id of the header page's sole metadata tuple.
const metaRowID uint64 = 0

func newHeaderPage(meta TableMeta) (*Page, error) {
	page := New(0)
	blob := meta.marshal()
	if err := page.AddTuple(metaRowID, []Value{{Kind: KindText, Text: string(blob)}}); err != nil {
		return nil, fmt.Errorf("%w: header page metadata does not fit: %v", ErrInternal, err)
	}
	return page, nil
}

func readHeaderMeta(page *Page) (TableMeta, error) {
	tuples, err := page.Tuples()
	if err != nil {
		return TableMeta{}, err
	}
	if len(tuples) != 1 || len(tuples[0].Values) != 1 {
		return TableMeta{}, fmt.Errorf("%w: malformed header page", ErrDeserialize)
	}
	return unmarshalTableMeta([]byte(tuples[0].Values[0].Text))
}
