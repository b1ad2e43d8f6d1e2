package engine

import "fmt"

// ErrorKind classifies an executor-level failure so the wire session can
// map it to the right SQLSTATE code and severity without re-inspecting the
// underlying storage/parse error.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindTableNotFound
	KindTableAlreadyExists
	KindSyntax
	KindUnsupportedFeature
	KindColumnCountMismatch
	KindTypeMismatch
	KindValueTooLong
	KindProtocolViolation
)

// SQLState returns the five-character SQLSTATE code for kind, per the
// executor-error-to-SQLSTATE mapping table.
func (k ErrorKind) SQLState() string {
	switch k {
	case KindTableNotFound:
		return "42P01"
	case KindTableAlreadyExists:
		return "42P07"
	case KindSyntax:
		return "42601"
	case KindUnsupportedFeature:
		return "0A000"
	case KindTypeMismatch:
		return "22P02"
	case KindColumnCountMismatch, KindValueTooLong:
		return "22026"
	case KindProtocolViolation:
		return "08P01"
	default:
		return "XX000"
	}
}

// Fatal reports whether kind terminates the connection rather than just
// the current query.
func (k ErrorKind) Fatal() bool {
	return k == KindProtocolViolation
}

// Error is the typed error value Execute returns for every failure,
// Internal ones included; the wire session renders it as an ErrorResponse.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func errTableNotFound(name string) *Error {
	return newError(KindTableNotFound, "relation %q does not exist", name)
}

func errTableAlreadyExists(name string) *Error {
	return newError(KindTableAlreadyExists, "relation %q already exists", name)
}

func errColumnCountMismatch(provided, expected int) *Error {
	return newError(KindColumnCountMismatch, "INSERT has %d expressions but table has %d columns", provided, expected)
}

func errTypeMismatch(column, actual, expected string) *Error {
	return newError(KindTypeMismatch, "column %q is of type %s but expression is of type %s", column, expected, actual)
}

func errValueTooLong(column string, actualLen int, limit uint32) *Error {
	return newError(KindValueTooLong, "value too long for type character varying(%d): column %q has length %d", limit, column, actualLen)
}
