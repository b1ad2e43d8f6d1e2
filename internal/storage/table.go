package storage

import (
	"fmt"
	"time"
)

// TableInfo summarizes a table for diagnostics.
type TableInfo struct {
	RowCount  uint64
	PageCount uint64
	DataPages uint64
	FileSize  uint64
	CreatedAt time.Time
	Schema    Schema
}

// Heap is the table-lifecycle and row-access layer: it translates
// create/insert/scan/update operations into page-file and buffer-pool
// calls. Heap holds no page objects directly — it borrows them from the
// buffer pool under a pin.
type Heap struct {
	pfm  *PageFileManager
	pool *BufferPool
}

func NewHeap(pfm *PageFileManager, pool *BufferPool) *Heap {
	return &Heap{pfm: pfm, pool: pool}
}

// CreateTable creates a fresh page file whose header metadata record holds
// columns and total_tuples=0. Fails with ErrTableAlreadyExists if the table
// already exists.
func (h *Heap) CreateTable(name string, columns Schema) error {
	if h.pfm.Exists(name) {
		return fmt.Errorf("%w: %s", ErrTableAlreadyExists, name)
	}
	return h.pfm.Create(name, columns)
}

// TableExists reports whether name's page file is present.
func (h *Heap) TableExists(name string) bool {
	return h.pfm.Exists(name)
}

func (h *Heap) headerMeta(name string) (TableMeta, error) {
	if !h.pfm.Exists(name) {
		return TableMeta{}, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	page, err := h.loadPage(name, 0)
	if err != nil {
		return TableMeta{}, err
	}
	defer h.pool.UnpinPage(name, 0)
	return readHeaderMeta(page)
}

// loadPage fetches a page through the buffer pool, pinning it. Callers
// must unpin it exactly once.
func (h *Heap) loadPage(table string, n uint64) (*Page, error) {
	return h.pool.GetPage(table, n)
}

// writeHeaderMeta rewrites the header page's metadata tuple atomically
// (the header page always holds exactly one tuple, so "rewrite" means
// "rebuild the page from scratch with the new record").
func (h *Heap) writeHeaderMeta(table string, meta TableMeta) error {
	header, err := newHeaderPage(meta)
	if err != nil {
		return err
	}
	header.PageID = 0

	if _, err := h.loadPage(table, 0); err != nil {
		return err
	}
	defer h.pool.UnpinPage(table, 0)

	if err := h.pool.MarkDirty(table, 0, header); err != nil {
		return h.pfm.Write(table, 0, header)
	}
	return nil
}

// GetSchema decodes the schema from the header page.
func (h *Heap) GetSchema(name string) (Schema, error) {
	meta, err := h.headerMeta(name)
	if err != nil {
		return nil, err
	}
	return meta.Columns, nil
}

// TableInfo returns summary statistics for table.
func (h *Heap) TableInfo(table string) (TableInfo, error) {
	meta, err := h.headerMeta(table)
	if err != nil {
		return TableInfo{}, err
	}

	pageCount, err := h.pfm.PageCount(table)
	if err != nil {
		return TableInfo{}, err
	}

	return TableInfo{
		RowCount:  meta.TotalTuples,
		PageCount: pageCount,
		DataPages: pageCount - 1,
		FileSize:  pageCount * PageSize,
		CreatedAt: meta.CreatedAt,
		Schema:    meta.Columns,
	}, nil
}
