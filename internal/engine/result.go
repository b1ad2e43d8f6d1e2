package engine

import "github.com/pgheap/pgheap/internal/storage"

// ResultColumn describes one output column of a query result: its display
// name and the storage kind used to pick a wire-protocol type OID.
type ResultColumn struct {
	Name string
	Kind storage.ColumnKind
}

// QueryResult is the outcome of executing one statement. Tag is the
// PostgreSQL command-complete string (e.g. "SELECT 3", "INSERT 0 1").
// Columns and Rows are populated only for statements that return a
// result set.
type QueryResult struct {
	Columns []ResultColumn
	Rows    [][]storage.Value
	Tag     string
}

func valueColumnKind(v storage.Value) storage.ColumnKind {
	switch v.Kind {
	case storage.KindInt64:
		return storage.ColumnInteger
	case storage.KindBool:
		return storage.ColumnBoolean
	default:
		return storage.ColumnText
	}
}
