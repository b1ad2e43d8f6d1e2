package storage

import (
	"encoding/binary"
	"fmt"
)

const (
	// PageSize is the fixed size of every page on disk and in the buffer
	// pool, per spec.md §3 ("Page").
	PageSize = 8192

	pageHeaderSize = 24 // page_id(8) + tuple_count(4) + free_start(4) + free_end(4) + flags(2) + checksum(2)
	linePtrSize    = 4  // offset(2) + length(2)
)

// linePointer locates one tuple within the page's tuple area.
type linePointer struct {
	Offset uint16
	Length uint16
}

// Page is the in-memory representation of one 8KiB slotted page: a fixed
// header, a line-pointer array growing up from offset 24, and tuple bytes
// growing down from offset 8192, meeting in a shrinking free-space middle.
type Page struct {
	PageID     uint64
	FreeStart  uint32
	FreeEnd    uint32
	Flags      uint16
	Checksum   uint16
	linePtrs   []linePointer
	tupleBytes []byte // raw bytes, offset-addressed as in the serialized page (len == PageSize)
}

// New returns an empty page with free_start=24, free_end=8192, per
// spec.md §4.1.
func New(pageID uint64) *Page {
	p := &Page{
		PageID:     pageID,
		FreeStart:  pageHeaderSize,
		FreeEnd:    PageSize,
		tupleBytes: make([]byte, PageSize),
	}
	return p
}

// TupleCount returns the number of line pointers (and hence tuples) on the
// page.
func (p *Page) TupleCount() int { return len(p.linePtrs) }

// HasSpaceFor reports whether a tuple of sizeBytes (plus its 4-byte line
// pointer) currently fits in the free-space middle.
func (p *Page) HasSpaceFor(sizeBytes int) bool {
	return uint32(sizeBytes)+linePtrSize <= p.FreeEnd-p.FreeStart
}

// AddTuple serializes (rowID, values) and appends it to the page: tuple
// bytes go at the end of the tuple area (free_end shrinks), a new line
// pointer is appended to the line-pointer array (free_start grows), and the
// checksum is recomputed over all tuple-data bytes.
func (p *Page) AddTuple(rowID uint64, values []Value) error {
	encoded := encodeTuple(rowID, values)
	if !p.HasSpaceFor(len(encoded)) {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrNoSpace, len(encoded)+linePtrSize, p.FreeEnd-p.FreeStart)
	}

	newFreeEnd := p.FreeEnd - uint32(len(encoded))
	copy(p.tupleBytes[newFreeEnd:p.FreeEnd], encoded)
	p.FreeEnd = newFreeEnd

	p.linePtrs = append(p.linePtrs, linePointer{
		Offset: uint16(p.FreeEnd),
		Length: uint16(len(encoded)),
	})
	p.FreeStart += linePtrSize

	p.recomputeChecksum()
	return nil
}

func (p *Page) recomputeChecksum() {
	var sum uint32
	for _, lp := range p.linePtrs {
		for _, b := range p.tupleBytes[lp.Offset : lp.Offset+lp.Length] {
			sum += uint32(b)
		}
	}
	p.Checksum = uint16(sum % 65536)
}

// Tuple is one decoded (row_id, values) pair as stored on a page.
type Tuple struct {
	RowID  uint64
	Values []Value
}

// Tuples decodes every tuple on the page in insertion (line-pointer) order.
func (p *Page) Tuples() ([]Tuple, error) {
	out := make([]Tuple, 0, len(p.linePtrs))
	for i, lp := range p.linePtrs {
		if int(lp.Offset)+int(lp.Length) > PageSize {
			return nil, fmt.Errorf("%w: line pointer %d out of bounds", ErrDeserialize, i)
		}
		rowID, values, err := decodeTuple(p.tupleBytes[lp.Offset : lp.Offset+lp.Length])
		if err != nil {
			return nil, fmt.Errorf("%w: tuple %d: %v", ErrDeserialize, i, err)
		}
		out = append(out, Tuple{RowID: rowID, Values: values})
	}
	return out, nil
}

// Serialize renders the page to its exact 8192-byte on-disk form.
func (p *Page) Serialize() []byte {
	buf := make([]byte, PageSize)

	binary.LittleEndian.PutUint64(buf[0:8], p.PageID)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(p.linePtrs)))
	binary.LittleEndian.PutUint32(buf[12:16], p.FreeStart)
	binary.LittleEndian.PutUint32(buf[16:20], p.FreeEnd)
	binary.LittleEndian.PutUint16(buf[20:22], p.Flags)
	binary.LittleEndian.PutUint16(buf[22:24], p.Checksum)

	off := pageHeaderSize
	for _, lp := range p.linePtrs {
		binary.LittleEndian.PutUint16(buf[off:off+2], lp.Offset)
		binary.LittleEndian.PutUint16(buf[off+2:off+4], lp.Length)
		off += linePtrSize
	}

	copy(buf[p.FreeEnd:PageSize], p.tupleBytes[p.FreeEnd:PageSize])

	return buf
}

// Deserialize parses an exact 8192-byte page image back into a Page. The
// per-page checksum is informational and is not verified on read, per
// spec.md §4.1.
func Deserialize(buf []byte) (*Page, error) {
	if len(buf) != PageSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidPageSize, len(buf), PageSize)
	}

	p := &Page{
		PageID:     binary.LittleEndian.Uint64(buf[0:8]),
		FreeStart:  binary.LittleEndian.Uint32(buf[12:16]),
		FreeEnd:    binary.LittleEndian.Uint32(buf[16:20]),
		Flags:      binary.LittleEndian.Uint16(buf[20:22]),
		Checksum:   binary.LittleEndian.Uint16(buf[22:24]),
		tupleBytes: make([]byte, PageSize),
	}
	tupleCount := binary.LittleEndian.Uint32(buf[8:12])

	if p.FreeStart < pageHeaderSize || p.FreeStart > p.FreeEnd || p.FreeEnd > PageSize {
		return nil, fmt.Errorf("%w: inconsistent free pointers start=%d end=%d", ErrDeserialize, p.FreeStart, p.FreeEnd)
	}

	copy(p.tupleBytes, buf)

	p.linePtrs = make([]linePointer, 0, tupleCount)
	off := pageHeaderSize
	for i := uint32(0); i < tupleCount; i++ {
		if off+linePtrSize > int(p.FreeStart) {
			return nil, fmt.Errorf("%w: line pointer array overruns free_start", ErrDeserialize)
		}
		p.linePtrs = append(p.linePtrs, linePointer{
			Offset: binary.LittleEndian.Uint16(buf[off : off+2]),
			Length: binary.LittleEndian.Uint16(buf[off+2 : off+4]),
		})
		off += linePtrSize
	}

	return p, nil
}
