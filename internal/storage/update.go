package storage

import "fmt"

// UpdateRow scans every data page, replacing the named column's value on
// each row for which match returns true, then rebuilds the page from
// scratch (new page with the same page id, re-adding surviving tuples in
// order) and writes it back. Returns the count of updated rows.
//
// If a rebuilt page can no longer hold all of its surviving tuples (only
// possible with variable-length text columns), UpdateRow stops and
// returns ErrInternal rather than silently dropping rows.
func (h *Heap) UpdateRow(table string, columnOrdinal int, newValue Value, match func(values []Value) bool) (int, error) {
	if !h.pfm.Exists(table) {
		return 0, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	count, err := h.pfm.PageCount(table)
	if err != nil {
		return 0, err
	}

	updated := 0
	for n := uint64(1); n < count; n++ {
		page, err := h.loadPage(table, n)
		if err != nil {
			continue
		}

		tuples, err := page.Tuples()
		if err != nil {
			h.pool.UnpinPage(table, n)
			continue
		}

		changed := false
		rebuilt := New(n)
		for _, t := range tuples {
			values := t.Values
			if match(values) {
				values = append([]Value(nil), values...)
				values[columnOrdinal] = newValue
				changed = true
				updated++
			}
			if err := rebuilt.AddTuple(t.RowID, values); err != nil {
				h.pool.UnpinPage(table, n)
				return 0, fmt.Errorf("%w: rebuilt page %d no longer fits its tuples: %v", ErrInternal, n, err)
			}
		}

		if changed {
			if err := h.pool.MarkDirty(table, n, rebuilt); err != nil {
				if err := h.pfm.Write(table, n, rebuilt); err != nil {
					h.pool.UnpinPage(table, n)
					return 0, err
				}
			}
		}
		h.pool.UnpinPage(table, n)
	}

	return updated, nil
}
