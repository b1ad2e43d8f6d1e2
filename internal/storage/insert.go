package storage

import (
	"errors"
	"fmt"
)

// InsertRow allocates the next row id, places the encoded tuple on the
// first page with room (or a fresh appended page), and bumps the header's
// total_tuples counter.
func (h *Heap) InsertRow(table string, values []Value) (uint64, error) {
	meta, err := h.headerMeta(table)
	if err != nil {
		return 0, err
	}

	rowID := meta.TotalTuples + 1
	size := tupleSize(rowID, values)

	pageNo, err := h.pfm.FindPageWithSpace(table, size)
	if err != nil {
		page := New(0)
		newPageNo, appendErr := h.pfm.Append(table, page)
		if appendErr != nil {
			return 0, fmt.Errorf("%w: %v", ErrInternal, appendErr)
		}
		pageNo = newPageNo
	}

	page, err := h.loadPage(table, pageNo)
	if err != nil {
		return 0, err
	}
	// FindPageWithSpace reads on-disk images, which lag behind pages still
	// dirty in the pool: move on (appending when past the end) until the
	// cached page really has room. An empty page that lacks room stops here.
	for !page.HasSpaceFor(size) && page.TupleCount() > 0 {
		h.pool.UnpinPage(table, pageNo)
		pageNo++
		page, err = h.loadPage(table, pageNo)
		if errors.Is(err, ErrPageNotFound) {
			if pageNo, err = h.pfm.Append(table, New(0)); err == nil {
				page, err = h.loadPage(table, pageNo)
			}
		}
		if err != nil {
			return 0, err
		}
	}
	defer h.pool.UnpinPage(table, pageNo)

	page.PageID = pageNo
	if err := page.AddTuple(rowID, values); err != nil {
		return 0, err
	}

	if err := h.pool.MarkDirty(table, pageNo, page); err != nil {
		if err := h.pfm.Write(table, pageNo, page); err != nil {
			return 0, err
		}
	}

	meta.TotalTuples = rowID
	if err := h.writeHeaderMeta(table, meta); err != nil {
		return 0, err
	}

	return rowID, nil
}
