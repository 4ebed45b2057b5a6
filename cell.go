package gridlate

import (
	"fmt"
	"strconv"
	"strings"
)

// ErrorCode represents standard spreadsheet error codes following
// Excel conventions. Emitted JavaScript surfaces these as values
// (a cell can hold "#DIV/0!"), never as thrown exceptions.
type ErrorCode uint8

const (
	ErrorCodeNull  ErrorCode = 1 // #NULL! - no cells in common between ranges
	ErrorCodeDiv0  ErrorCode = 2 // #DIV/0! - division by zero
	ErrorCodeValue ErrorCode = 3 // #VALUE! - wrong type of argument or operand
	ErrorCodeRef   ErrorCode = 4 // #REF! - invalid cell reference
	ErrorCodeName  ErrorCode = 5 // #NAME? - unrecognized function name
	ErrorCodeNum   ErrorCode = 6 // #NUM! - number too large or small to be represented
	ErrorCodeNA    ErrorCode = 7 // #N/A - not enough arguments for function
	ErrorCodeOther ErrorCode = 8 // #ERROR! - all other errors
)

// ErrorLabels maps error codes to their display strings.
var ErrorLabels = map[ErrorCode]string{
	ErrorCodeNull:  "#NULL!",
	ErrorCodeDiv0:  "#DIV/0!",
	ErrorCodeValue: "#VALUE!",
	ErrorCodeRef:   "#REF!",
	ErrorCodeName:  "#NAME?",
	ErrorCodeNum:   "#NUM!",
	ErrorCodeNA:    "#N/A",
	ErrorCodeOther: "#ERROR!",
}

// CellCoordinate identifies a single cell by sheet, column, and row.
// Column and Row are zero-based. ColAbs and RowAbs record the `$`
// anchors from the source text; they affect re-anchoring during copy
// but never dependency identity (see Key).
type CellCoordinate struct {
	Sheet  string
	Col    int
	Row    int
	ColAbs bool
	RowAbs bool
}

// CoordKey is the normalized identity of a coordinate: two references
// that differ only in anchor style compare equal through their keys.
type CoordKey struct {
	Sheet string
	Col   int
	Row   int
}

// Key returns the anchor-insensitive identity of the coordinate.
func (c CellCoordinate) Key() CoordKey {
	return CoordKey{Sheet: c.Sheet, Col: c.Col, Row: c.Row}
}

// String renders the coordinate in A1 notation, including anchors and
// the sheet qualifier when present. Sheet names containing characters
// outside [A-Za-z0-9_] are single-quoted.
func (c CellCoordinate) String() string {
	var sb strings.Builder
	if c.Sheet != "" {
		if sheetNeedsQuoting(c.Sheet) {
			sb.WriteByte('\'')
			sb.WriteString(c.Sheet)
			sb.WriteByte('\'')
		} else {
			sb.WriteString(c.Sheet)
		}
		sb.WriteByte('!')
	}
	if c.ColAbs {
		sb.WriteByte('$')
	}
	sb.WriteString(ColumnName(c.Col))
	if c.RowAbs {
		sb.WriteByte('$')
	}
	sb.WriteString(strconv.Itoa(c.Row + 1))
	return sb.String()
}

// Ref renders the coordinate without the sheet qualifier.
func (c CellCoordinate) Ref() string {
	bare := c
	bare.Sheet = ""
	return bare.String()
}

// Less orders coordinates by (sheet, row, column) ascending. This is
// the tie-break order used for deterministic evaluation ordering.
func (c CellCoordinate) Less(o CellCoordinate) bool {
	if c.Sheet != o.Sheet {
		return c.Sheet < o.Sheet
	}
	if c.Row != o.Row {
		return c.Row < o.Row
	}
	return c.Col < o.Col
}

func sheetNeedsQuoting(name string) bool {
	for _, ch := range name {
		if ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' ||
			ch >= '0' && ch <= '9' || ch == '_' {
			continue
		}
		return true
	}
	return false
}

// ColumnName converts a zero-based column index to its letter name
// (0 -> A, 25 -> Z, 26 -> AA).
func ColumnName(col int) string {
	if col < 0 {
		return ""
	}
	var buf [8]byte
	i := len(buf)
	for {
		i--
		buf[i] = byte('A' + col%26)
		col = col/26 - 1
		if col < 0 {
			break
		}
	}
	return string(buf[i:])
}

// ColumnIndex converts a column letter name to its zero-based index
// (A -> 0, Z -> 25, AA -> 26).
func ColumnIndex(name string) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("empty column name")
	}
	col := 0
	for i, ch := range strings.ToUpper(name) {
		if ch < 'A' || ch > 'Z' {
			return 0, fmt.Errorf("invalid column name: %s", name)
		}
		col = col*26 + int(ch-'A')
		if i < len(name)-1 {
			col++ // account for positional notation
		}
	}
	return col, nil
}

// parseCellText parses an A1-style cell reference with optional `$`
// anchors, e.g. "B2", "$B$2". The sheet qualifier must already be
// stripped. Returns a coordinate with Sheet left empty.
func parseCellText(cell string) (CellCoordinate, error) {
	rest := cell
	coord := CellCoordinate{}

	if strings.HasPrefix(rest, "$") {
		coord.ColAbs = true
		rest = rest[1:]
	}

	letterEnd := 0
	for i := 0; i < len(rest); i++ {
		ch := rest[i]
		if ch >= 'A' && ch <= 'Z' || ch >= 'a' && ch <= 'z' {
			letterEnd = i + 1
		} else {
			break
		}
	}
	if letterEnd == 0 {
		return CellCoordinate{}, fmt.Errorf("invalid cell reference: %s", cell)
	}

	col, err := ColumnIndex(rest[:letterEnd])
	if err != nil {
		return CellCoordinate{}, fmt.Errorf("invalid cell reference: %s", cell)
	}
	coord.Col = col
	rest = rest[letterEnd:]

	if strings.HasPrefix(rest, "$") {
		coord.RowAbs = true
		rest = rest[1:]
	}
	if rest == "" {
		return CellCoordinate{}, fmt.Errorf("invalid cell reference: %s", cell)
	}

	rowNum, err := strconv.ParseInt(rest, 10, 32)
	if err != nil || rowNum < 1 {
		return CellCoordinate{}, fmt.Errorf("invalid row in cell reference: %s", cell)
	}
	coord.Row = int(rowNum - 1)

	return coord, nil
}

// splitSheet splits a possibly sheet-qualified reference into sheet
// name (unquoted, empty when absent) and the cell-local remainder.
func splitSheet(ref string) (sheet, rest string) {
	idx := strings.LastIndex(ref, "!")
	if idx == -1 {
		return "", ref
	}
	sheet = ref[:idx]
	rest = ref[idx+1:]
	if strings.HasPrefix(sheet, "'") && strings.HasSuffix(sheet, "'") && len(sheet) >= 2 {
		sheet = sheet[1 : len(sheet)-1]
	}
	return sheet, rest
}
