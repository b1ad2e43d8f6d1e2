package storage

import "fmt"

// Row pairs a decoded row id with its column values, as returned by scans.
type Row struct {
	RowID  uint64
	Values []Value
}

// SelectAllRows scans data pages 1..N-1 in order, concatenating each
// page's tuples. Pages that fail to read are skipped, not fatal, since a
// single corrupt page should not abort a whole-table scan.
func (h *Heap) SelectAllRows(table string) ([]Row, error) {
	if !h.pfm.Exists(table) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	count, err := h.pfm.PageCount(table)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0)
	for n := uint64(1); n < count; n++ {
		page, err := h.loadPage(table, n)
		if err != nil {
			continue
		}
		tuples, err := page.Tuples()
		h.pool.UnpinPage(table, n)
		if err != nil {
			continue
		}
		for _, t := range tuples {
			rows = append(rows, Row{RowID: t.RowID, Values: t.Values})
		}
	}

	return rows, nil
}
