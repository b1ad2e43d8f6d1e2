package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// PageFileManager owns per-table append-only page files under
// <data-root>/pages/<table>.pages, per spec.md §4.2. It holds no page
// objects in memory, only open file handles.
type PageFileManager struct {
	dataRoot string

	mu    sync.Mutex
	files map[string]*os.File
}

func NewPageFileManager(dataRoot string) *PageFileManager {
	return &PageFileManager{
		dataRoot: dataRoot,
		files:    make(map[string]*os.File),
	}
}

func (m *PageFileManager) pagesDir() string {
	return filepath.Join(m.dataRoot, "pages")
}

func (m *PageFileManager) path(table string) string {
	return filepath.Join(m.pagesDir(), table+".pages")
}

// Create creates a fresh page file for table and writes the bootstrap
// header page. Fails with ErrFileAlreadyExists if the file is already
// present.
func (m *PageFileManager) Create(table string, columns Schema) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.pagesDir(), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	path := m.path(table)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrFileAlreadyExists, table)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	header, err := newHeaderPage(TableMeta{
		TableName:         table,
		CreatedAt:         time.Now(),
		PageFormatVersion: PageFormatVersion,
		Columns:           columns,
		TotalTuples:       0,
	})
	if err != nil {
		f.Close()
		os.Remove(path)
		return err
	}

	if _, err := f.WriteAt(header.Serialize(), 0); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	m.files[table] = f
	return nil
}

// Exists reports whether table's page file is present on disk.
func (m *PageFileManager) Exists(table string) bool {
	_, err := os.Stat(m.path(table))
	return err == nil
}

// Remove deletes the page file for table and closes any open handle.
func (m *PageFileManager) Remove(table string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f, ok := m.files[table]; ok {
		f.Close()
		delete(m.files, table)
	}
	if err := os.Remove(m.path(table)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return nil
}

func (m *PageFileManager) handle(table string) (*os.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f, ok := m.files[table]; ok {
		return f, nil
	}

	path := m.path(table)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, table)
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	m.files[table] = f
	return f, nil
}

// PageCount returns file_size / 8192 for table.
func (m *PageFileManager) PageCount(table string) (uint64, error) {
	f, err := m.handle(table)
	if err != nil {
		return 0, err
	}
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return uint64(info.Size()) / PageSize, nil
}

// Read performs a positioned read of the n-th page (8192 bytes at offset
// n*8192).
func (m *PageFileManager) Read(table string, n uint64) (*Page, error) {
	f, err := m.handle(table)
	if err != nil {
		return nil, err
	}

	count, err := m.PageCount(table)
	if err != nil {
		return nil, err
	}
	if n >= count {
		return nil, newPageNotFound(n)
	}

	buf := make([]byte, PageSize)
	if _, err := f.ReadAt(buf, int64(n)*PageSize); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserialize, err)
	}

	return Deserialize(buf)
}

// Write performs a positioned write of page's serialization at page n.
func (m *PageFileManager) Write(table string, n uint64, page *Page) error {
	buf := page.Serialize()
	if len(buf) != PageSize {
		return ErrInvalidPageSize
	}

	f, err := m.handle(table)
	if err != nil {
		return err
	}
	if _, err := f.WriteAt(buf, int64(n)*PageSize); err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return nil
}

// Append writes page at the end of the file and returns its new page
// number (the old page count).
func (m *PageFileManager) Append(table string, page *Page) (uint64, error) {
	count, err := m.PageCount(table)
	if err != nil {
		return 0, err
	}
	page.PageID = count
	if err := m.Write(table, count, page); err != nil {
		return 0, err
	}
	return count, nil
}

// FindPageWithSpace linearly scans data pages (1..N-1) for the first one
// with room for bytesNeeded. Read failures on intermediate pages are
// skipped, not fatal, per spec.md §4.2.
func (m *PageFileManager) FindPageWithSpace(table string, bytesNeeded int) (uint64, error) {
	count, err := m.PageCount(table)
	if err != nil {
		return 0, err
	}
	if count <= 1 {
		return 0, ErrNoDataPages
	}

	for n := uint64(1); n < count; n++ {
		page, err := m.Read(table, n)
		if err != nil {
			continue
		}
		if page.HasSpaceFor(bytesNeeded) {
			return n, nil
		}
	}
	return 0, ErrNoSpace
}

// Sync flushes OS buffers for table's open file handle, if any.
func (m *PageFileManager) Sync(table string) error {
	m.mu.Lock()
	f, ok := m.files[table]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return f.Sync()
}

// Close closes every open file handle.
func (m *PageFileManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for table, f := range m.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(m.files, table)
	}
	return firstErr
}
