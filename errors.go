package gridlate

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for errors.Is matching. The typed errors below wrap
// these so callers can branch on the failure class without unpacking
// the struct.
var (
	ErrLex                  = errors.New("lex error")
	ErrParse                = errors.New("parse error")
	ErrUnsupportedConstruct = errors.New("unsupported construct")
	ErrRangeTooLarge        = errors.New("range too large")
	ErrCircularReference    = errors.New("circular reference")
)

// LexError reports an unrecognized character or unterminated literal
// at a rune position within the formula text.
type LexError struct {
	Pos    int
	Reason string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at position %d: %s", e.Pos, e.Reason)
}

func (e *LexError) Unwrap() error { return ErrLex }

// ParseError reports malformed grammar: what the parser expected and
// what it found at the failing token's position.
type ParseError struct {
	Pos      int
	Expected string
	Found    string
}

func (e *ParseError) Error() string {
	if e.Found == "" {
		return fmt.Sprintf("parse error at position %d: expected %s, found end of formula", e.Pos, e.Expected)
	}
	return fmt.Sprintf("parse error at position %d: expected %s, found %q", e.Pos, e.Expected, e.Found)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// UnsupportedConstructError marks grammar the translator deliberately
// refuses: array literals, spill ranges, external workbook references.
// These are surfaced rather than approximated.
type UnsupportedConstructError struct {
	Pos       int
	Construct string
}

func (e *UnsupportedConstructError) Error() string {
	return fmt.Sprintf("unsupported construct at position %d: %s", e.Pos, e.Construct)
}

func (e *UnsupportedConstructError) Unwrap() error { return ErrUnsupportedConstruct }

// RangeTooLargeError is returned when expanding a range would exceed
// the configured cell limit.
type RangeTooLargeError struct {
	Ref   string
	Cells int
	Limit int
}

func (e *RangeTooLargeError) Error() string {
	return fmt.Sprintf("range %s expands to %d cells, limit is %d", e.Ref, e.Cells, e.Limit)
}

func (e *RangeTooLargeError) Unwrap() error { return ErrRangeTooLarge }

// CircularReferenceError reports one dependency cycle. Cycle holds the
// coordinates in reference order; the first element is repeated
// conceptually (the last cell's formula reads the first).
type CircularReferenceError struct {
	Cycle []CellCoordinate
}

func (e *CircularReferenceError) Error() string {
	refs := make([]string, len(e.Cycle))
	for i, c := range e.Cycle {
		refs[i] = c.String()
	}
	return "circular reference: " + strings.Join(refs, " -> ")
}

func (e *CircularReferenceError) Unwrap() error { return ErrCircularReference }
