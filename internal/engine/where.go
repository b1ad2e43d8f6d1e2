package engine

import (
	"github.com/pgheap/pgheap/internal/sql"
	"github.com/pgheap/pgheap/internal/storage"
)

// evalWhere recursively evaluates a WHERE expression against one row's
// decoded values, resolving column references positionally via schema.
// Unsupported comparisons (mismatched kinds, unknown columns) evaluate to
// false rather than erroring, filtering the row out.
func evalWhere(expr sql.Expr, row []storage.Value, schema storage.Schema) bool {
	b, ok := expr.(sql.BinaryOp)
	if !ok {
		return false
	}

	switch b.Op {
	case "AND":
		return evalWhere(b.Left, row, schema) && evalWhere(b.Right, row, schema)
	case "OR":
		return evalWhere(b.Left, row, schema) || evalWhere(b.Right, row, schema)
	default:
		left, lok := evalOperand(b.Left, row, schema)
		right, rok := evalOperand(b.Right, row, schema)
		if !lok || !rok {
			return false
		}
		return compareValues(left, right, b.Op)
	}
}

func evalOperand(expr sql.Expr, row []storage.Value, schema storage.Schema) (storage.Value, bool) {
	switch e := expr.(type) {
	case sql.ColumnRef:
		ord := schema.Ordinal(e.Name)
		if ord < 0 || ord >= len(row) {
			return storage.Value{}, false
		}
		return row[ord], true
	case sql.Literal:
		return e.Value, true
	default:
		return storage.Value{}, false
	}
}

// compareValues applies op to two values of the same kind. Comparisons
// across different kinds have no implicit coercion and are unsupported.
func compareValues(l, r storage.Value, op string) bool {
	if l.Kind != r.Kind {
		return false
	}
	switch l.Kind {
	case storage.KindInt64:
		return compareOrdered(l.Int, r.Int, op)
	case storage.KindText:
		return compareOrdered(l.Text, r.Text, op)
	case storage.KindBool:
		return compareEquality(l.Bool, r.Bool, op)
	default:
		return false
	}
}

type ordered interface {
	~int64 | ~string
}

func compareOrdered[T ordered](l, r T, op string) bool {
	switch op {
	case "=":
		return l == r
	case "!=":
		return l != r
	case "<":
		return l < r
	case ">":
		return l > r
	case "<=":
		return l <= r
	case ">=":
		return l >= r
	default:
		return false
	}
}

func compareEquality(l, r bool, op string) bool {
	switch op {
	case "=":
		return l == r
	case "!=":
		return l != r
	default:
		return false
	}
}
