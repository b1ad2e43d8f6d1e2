package engine

import (
	"fmt"

	"github.com/pgheap/pgheap/internal/sql"
	"github.com/pgheap/pgheap/internal/storage"
)

// Executor validates and dispatches parsed statements to the heap storage
// layer. It holds no per-connection state: a single Executor is shared by
// every session, since the heap and buffer pool beneath it are already
// safe for concurrent use.
type Executor struct {
	heap *storage.Heap
}

func New(heap *storage.Heap) *Executor {
	return &Executor{heap: heap}
}

// Execute runs one parsed statement to completion, returning its result
// set (if any) and command-complete tag.
func (ex *Executor) Execute(stmt sql.Statement) (*QueryResult, error) {
	switch s := stmt.(type) {
	case *sql.CreateTableStatement:
		return ex.executeCreateTable(s)
	case *sql.InsertStatement:
		return ex.executeInsert(s)
	case *sql.SelectStatement:
		return ex.executeSelect(s)
	case *sql.UpdateStatement:
		return ex.executeUpdate(s)
	default:
		return nil, newError(KindInternal, "unsupported statement type %T", stmt)
	}
}

func (ex *Executor) executeCreateTable(s *sql.CreateTableStatement) (*QueryResult, error) {
	if ex.heap.TableExists(s.Table) {
		return nil, errTableAlreadyExists(s.Table)
	}

	columns := s.Columns
	if columns == nil {
		columns = storage.Schema{}
	}
	if err := ex.heap.CreateTable(s.Table, columns); err != nil {
		return nil, newError(KindInternal, "create table %q: %v", s.Table, err)
	}

	return &QueryResult{Tag: "CREATE TABLE"}, nil
}

func (ex *Executor) executeInsert(s *sql.InsertStatement) (*QueryResult, error) {
	if !ex.heap.TableExists(s.Table) {
		return nil, errTableNotFound(s.Table)
	}

	schema, err := ex.heap.GetSchema(s.Table)
	if err != nil {
		return nil, newError(KindInternal, "%v", err)
	}

	values := make([]storage.Value, len(s.Values))
	for i, lit := range s.Values {
		values[i] = lit.Value
	}

	if len(schema) > 0 {
		if len(values) != len(schema) {
			return nil, errColumnCountMismatch(len(values), len(schema))
		}
		for i, col := range schema {
			if err := checkType(col, values[i]); err != nil {
				return nil, err
			}
		}
	}

	if _, err := ex.heap.InsertRow(s.Table, values); err != nil {
		return nil, newError(KindInternal, "insert into %q: %v", s.Table, err)
	}

	return &QueryResult{Tag: "INSERT 0 1"}, nil
}

// checkType validates one INSERT value against its target column,
// per the integer/text-or-varchar/boolean type-check rules. Nulls are
// always accepted regardless of declared column type.
func checkType(col storage.ColumnDef, v storage.Value) error {
	if v.IsNull() {
		return nil
	}

	switch col.Kind {
	case storage.ColumnInteger:
		if v.Kind != storage.KindInt64 {
			return errTypeMismatch(col.Name, v.Kind.String(), col.Kind.String())
		}
	case storage.ColumnText, storage.ColumnVarchar:
		if v.Kind != storage.KindText {
			return errTypeMismatch(col.Name, v.Kind.String(), col.Kind.String())
		}
		if col.Kind == storage.ColumnVarchar {
			limit := col.EffectiveSize()
			if uint32(len(v.Text)) > limit {
				return errValueTooLong(col.Name, len(v.Text), limit)
			}
		}
	case storage.ColumnBoolean:
		if v.Kind != storage.KindBool {
			return errTypeMismatch(col.Name, v.Kind.String(), col.Kind.String())
		}
	}
	return nil
}

func (ex *Executor) executeSelect(s *sql.SelectStatement) (*QueryResult, error) {
	if !s.HasFrom {
		return ex.executeLiteralSelect(s)
	}

	if !ex.heap.TableExists(s.From) {
		return nil, errTableNotFound(s.From)
	}

	schema, err := ex.heap.GetSchema(s.From)
	if err != nil {
		return nil, newError(KindInternal, "%v", err)
	}

	rows, err := ex.heap.SelectAllRows(s.From)
	if err != nil {
		return nil, newError(KindInternal, "select from %q: %v", s.From, err)
	}

	columns, projection, err := resolveProjection(s.Items, schema)
	if err != nil {
		return nil, err
	}

	resultRows := make([][]storage.Value, 0, len(rows))
	for _, row := range rows {
		if s.Where != nil && !evalWhere(s.Where, row.Values, schema) {
			continue
		}
		resultRows = append(resultRows, projectRow(row.Values, projection))
	}

	return &QueryResult{
		Columns: columns,
		Rows:    resultRows,
		Tag:     fmt.Sprintf("SELECT %d", len(resultRows)),
	}, nil
}

// executeLiteralSelect handles a SELECT with no FROM clause: each item is
// evaluated directly with no row context, producing a single result row.
func (ex *Executor) executeLiteralSelect(s *sql.SelectStatement) (*QueryResult, error) {
	columns := make([]ResultColumn, 0, len(s.Items))
	values := make([]storage.Value, 0, len(s.Items))

	for _, item := range s.Items {
		switch it := item.(type) {
		case sql.Literal:
			columns = append(columns, ResultColumn{Name: "?column?", Kind: valueColumnKind(it.Value)})
			values = append(values, it.Value)
		case sql.ColumnRef:
			return nil, newError(KindUnsupportedFeature, "column reference %q requires a FROM clause", it.Name)
		case sql.Wildcard:
			return nil, newError(KindUnsupportedFeature, "SELECT * requires a FROM clause")
		default:
			return nil, newError(KindInternal, "unsupported select item %T", item)
		}
	}

	return &QueryResult{
		Columns: columns,
		Rows:    [][]storage.Value{values},
		Tag:     "SELECT 1",
	}, nil
}

// projSpec is one resolved projection slot: either a positional column
// read (Ordinal >= 0) or a literal constant repeated for every row.
type projSpec struct {
	ordinal   int
	isLiteral bool
	literal   storage.Value
}

func resolveProjection(items []sql.SelectItem, schema storage.Schema) ([]ResultColumn, []projSpec, error) {
	var columns []ResultColumn
	var specs []projSpec

	for _, item := range items {
		switch it := item.(type) {
		case sql.Wildcard:
			if len(schema) == 0 {
				return nil, nil, newError(KindUnsupportedFeature, "SELECT * on a schemaless table")
			}
			for i, col := range schema {
				columns = append(columns, ResultColumn{Name: col.Name, Kind: col.Kind})
				specs = append(specs, projSpec{ordinal: i})
			}
		case sql.ColumnRef:
			ord := schema.Ordinal(it.Name)
			if ord < 0 {
				return nil, nil, newError(KindUnsupportedFeature, "column %q does not exist", it.Name)
			}
			columns = append(columns, ResultColumn{Name: it.Name, Kind: schema[ord].Kind})
			specs = append(specs, projSpec{ordinal: ord})
		case sql.Literal:
			columns = append(columns, ResultColumn{Name: "?column?", Kind: valueColumnKind(it.Value)})
			specs = append(specs, projSpec{ordinal: -1, isLiteral: true, literal: it.Value})
		default:
			return nil, nil, newError(KindInternal, "unsupported select item %T", item)
		}
	}

	return columns, specs, nil
}

func projectRow(values []storage.Value, specs []projSpec) []storage.Value {
	out := make([]storage.Value, len(specs))
	for i, s := range specs {
		if s.isLiteral {
			out[i] = s.literal
			continue
		}
		if s.ordinal >= 0 && s.ordinal < len(values) {
			out[i] = values[s.ordinal]
			continue
		}
		out[i] = storage.NewNull()
	}
	return out
}

func (ex *Executor) executeUpdate(s *sql.UpdateStatement) (*QueryResult, error) {
	if !ex.heap.TableExists(s.Table) {
		return nil, errTableNotFound(s.Table)
	}

	schema, err := ex.heap.GetSchema(s.Table)
	if err != nil {
		return nil, newError(KindInternal, "%v", err)
	}

	ordinal := schema.Ordinal(s.Column)
	if ordinal < 0 {
		return nil, newError(KindUnsupportedFeature, "column %q does not exist", s.Column)
	}

	match := func(values []storage.Value) bool {
		if s.Where == nil {
			return true
		}
		return evalWhere(s.Where, values, schema)
	}

	updated, err := ex.heap.UpdateRow(s.Table, ordinal, s.Value.Value, match)
	if err != nil {
		return nil, newError(KindInternal, "update %q: %v", s.Table, err)
	}

	return &QueryResult{Tag: fmt.Sprintf("UPDATE %d", updated)}, nil
}
