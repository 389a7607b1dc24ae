package xmlir

import (
	"fmt"
	"strings"
)

// ParseError reports malformed XML input. Line is filled when the
// underlying decoder reported one.
type ParseError struct {
	Line   int
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("xml parse: line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("xml parse: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FragmentError reports a markup fragment that could not be turned into
// nodes. When the cause is prefixes with no declaration in reach,
// MissingPrefixes lists them and Err is nil.
type FragmentError struct {
	Fragment        string
	MissingPrefixes []string
	Err             error
}

func (e *FragmentError) Error() string {
	if len(e.MissingPrefixes) > 0 {
		return fmt.Sprintf("xml fragment: undeclared prefixes: %s",
			strings.Join(e.MissingPrefixes, ", "))
	}
	return fmt.Sprintf("xml fragment: %v", e.Err)
}

func (e *FragmentError) Unwrap() error { return e.Err }
