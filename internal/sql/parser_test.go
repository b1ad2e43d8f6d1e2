package sql

import (
	"testing"

	"github.com/pgheap/pgheap/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParse_EmptyQuery checks the sentinel message for blank input.
func TestParse_EmptyQuery(t *testing.T) {
	t.Parallel()

	_, err := Parse("   ")
	assert.EqualError(t, err, "Empty query")
}

// TestParse_LiteralSelect checks a SELECT with no FROM clause parses its
// literal select list, per the wire protocol's literal-only SELECT case.
func TestParse_LiteralSelect(t *testing.T) {
	t.Parallel()

	stmt, err := Parse("SELECT 1")
	require.NoError(t, err)

	sel, ok := stmt.(*SelectStatement)
	require.True(t, ok)
	require.False(t, sel.HasFrom)
	require.Len(t, sel.Items, 1)
	lit, ok := sel.Items[0].(Literal)
	require.True(t, ok)
	assert.Equal(t, int64(1), lit.Value.Int)
}

// TestParse_SelectStarFrom checks SELECT * FROM <table> parses a wildcard
// item with a table name and no WHERE clause.
func TestParse_SelectStarFrom(t *testing.T) {
	t.Parallel()

	stmt, err := Parse("SELECT * FROM users")
	require.NoError(t, err)

	sel, ok := stmt.(*SelectStatement)
	require.True(t, ok)
	assert.True(t, sel.HasFrom)
	assert.Equal(t, "users", sel.From)
	require.Len(t, sel.Items, 1)
	_, ok = sel.Items[0].(Wildcard)
	assert.True(t, ok)
	assert.Nil(t, sel.Where)
}

// TestParse_SelectWithWhere checks a WHERE clause with a single
// comparison parses into the expected BinaryOp tree.
func TestParse_SelectWithWhere(t *testing.T) {
	t.Parallel()

	stmt, err := Parse("SELECT id, name FROM users WHERE id = 1")
	require.NoError(t, err)

	sel := stmt.(*SelectStatement)
	require.Len(t, sel.Items, 2)
	assert.Equal(t, ColumnRef{Name: "id"}, sel.Items[0])
	assert.Equal(t, ColumnRef{Name: "name"}, sel.Items[1])

	where, ok := sel.Where.(BinaryOp)
	require.True(t, ok)
	assert.Equal(t, "=", where.Op)
	assert.Equal(t, ColumnRef{Name: "id"}, where.Left)
	assert.Equal(t, Literal{Value: storage.NewInt64(1)}, where.Right)
}

// TestParse_WhereOperatorPrecedence checks OR binds more loosely than AND,
// so "a AND b OR c" parses as "(a AND b) OR c".
func TestParse_WhereOperatorPrecedence(t *testing.T) {
	t.Parallel()

	stmt, err := Parse("SELECT * FROM t WHERE a = 1 AND b = 2 OR c = 3")
	require.NoError(t, err)

	sel := stmt.(*SelectStatement)
	top, ok := sel.Where.(BinaryOp)
	require.True(t, ok)
	require.Equal(t, "OR", top.Op)

	left, ok := top.Left.(BinaryOp)
	require.True(t, ok)
	assert.Equal(t, "AND", left.Op)

	right, ok := top.Right.(BinaryOp)
	require.True(t, ok)
	assert.Equal(t, "=", right.Op)
}

// TestParse_ComparisonsDoNotChain checks "a = 1 = 2" is rejected.
func TestParse_ComparisonsDoNotChain(t *testing.T) {
	t.Parallel()

	_, err := Parse("SELECT * FROM t WHERE a = 1 = 2")
	assert.Error(t, err)
}

// TestParse_FromRejectsNonIdentifier checks FROM followed by a literal is
// a specific parse error, not a generic one.
func TestParse_FromRejectsNonIdentifier(t *testing.T) {
	t.Parallel()

	_, err := Parse("SELECT * FROM 1")
	assert.Error(t, err)
}

// TestParse_Insert checks INSERT INTO ... VALUES (...) parses its literal
// list in order.
func TestParse_Insert(t *testing.T) {
	t.Parallel()

	stmt, err := Parse("INSERT INTO users VALUES (1, 'John')")
	require.NoError(t, err)

	ins, ok := stmt.(*InsertStatement)
	require.True(t, ok)
	assert.Equal(t, "users", ins.Table)
	require.Len(t, ins.Values, 2)
	assert.Equal(t, int64(1), ins.Values[0].Value.Int)
	assert.Equal(t, "John", ins.Values[1].Value.Text)
}

// TestParse_Insert_EmptyValuesRejected checks an empty VALUES list is an
// error, not an empty-row insert.
func TestParse_Insert_EmptyValuesRejected(t *testing.T) {
	t.Parallel()

	_, err := Parse("INSERT INTO users VALUES ()")
	assert.Error(t, err)
}

// TestParse_CreateTable checks column defs including a sized VARCHAR and
// an unsized VARCHAR (which must default to 255).
func TestParse_CreateTable(t *testing.T) {
	t.Parallel()

	stmt, err := Parse("CREATE TABLE users (id INTEGER, name VARCHAR(255), bio TEXT, active BOOLEAN, tag VARCHAR)")
	require.NoError(t, err)

	ct, ok := stmt.(*CreateTableStatement)
	require.True(t, ok)
	assert.Equal(t, "users", ct.Table)
	require.Len(t, ct.Columns, 5)

	assert.Equal(t, storage.ColumnInteger, ct.Columns[0].Kind)
	assert.Equal(t, storage.ColumnVarchar, ct.Columns[1].Kind)
	assert.EqualValues(t, 255, ct.Columns[1].Size)
	assert.Equal(t, storage.ColumnText, ct.Columns[2].Kind)
	assert.Equal(t, storage.ColumnBoolean, ct.Columns[3].Kind)
	assert.EqualValues(t, storage.DefaultVarcharSize, ct.Columns[4].EffectiveSize())
}

// TestParse_CreateTable_NoColumns checks a bare CREATE TABLE with no
// column list is legal (legacy/schemaless table).
func TestParse_CreateTable_NoColumns(t *testing.T) {
	t.Parallel()

	stmt, err := Parse("CREATE TABLE legacy")
	require.NoError(t, err)

	ct := stmt.(*CreateTableStatement)
	assert.Equal(t, "legacy", ct.Table)
	assert.Empty(t, ct.Columns)
}

// TestParse_Update checks SET and an optional WHERE clause parse.
func TestParse_Update(t *testing.T) {
	t.Parallel()

	stmt, err := Parse("UPDATE users SET name = 'Jane' WHERE id = 1")
	require.NoError(t, err)

	upd, ok := stmt.(*UpdateStatement)
	require.True(t, ok)
	assert.Equal(t, "users", upd.Table)
	assert.Equal(t, "name", upd.Column)
	assert.Equal(t, "Jane", upd.Value.Value.Text)
	require.NotNil(t, upd.Where)
}

// TestParse_CaseInsensitiveKeywords checks keywords are recognized
// regardless of case, while identifiers preserve their original case.
func TestParse_CaseInsensitiveKeywords(t *testing.T) {
	t.Parallel()

	stmt, err := Parse("select * from Users")
	require.NoError(t, err)

	sel := stmt.(*SelectStatement)
	assert.Equal(t, "Users", sel.From)
}

// TestParse_IsDeterministic checks parsing the same string twice yields
// equal results, matching the parser's purity requirement.
func TestParse_IsDeterministic(t *testing.T) {
	t.Parallel()

	a, errA := Parse("SELECT * FROM users WHERE id = 1")
	b, errB := Parse("SELECT * FROM users WHERE id = 1")
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, a, b)
}

// TestParse_UnexpectedStatementKind surfaces a parse error for an
// unrecognized leading keyword.
func TestParse_UnexpectedStatementKind(t *testing.T) {
	t.Parallel()

	_, err := Parse("DELETE FROM users")
	assert.Error(t, err)
}

// TestParse_UnterminatedStringLiteral checks a query with a string literal
// missing its closing quote surfaces the lexer's specific error instead of
// a generic syntax error against a silently truncated token.
func TestParse_UnterminatedStringLiteral(t *testing.T) {
	t.Parallel()

	_, err := Parse("SELECT 'oops")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unterminated string literal")
}

// TestParse_InvalidCharacter checks a query containing a character outside
// the dialect's operator/punctuation set is rejected by name rather than
// silently accepted as an operator.
func TestParse_InvalidCharacter(t *testing.T) {
	t.Parallel()

	_, err := Parse("SELECT id FROM users WHERE id = #1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid character: #")
}
