package sql

import "fmt"

// ParseError is a parser-level failure: the unmet expectation plus the
// byte offset the parser had reached, rendered as a single descriptive
// string per the dialect's error convention.
type ParseError struct {
	Message string
	Pos     int
}

func (e *ParseError) Error() string {
	return e.Message
}

func errf(pos int, format string, args ...any) error {
	return &ParseError{Message: fmt.Sprintf(format, args...), Pos: pos}
}

// errEmptyQuery is returned verbatim for a blank or whitespace-only input.
var errEmptyQuery = &ParseError{Message: "Empty query"}
