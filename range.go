package gridlate

import "iter"

// CellRange is a rectangular, inclusive span of cells. After
// Normalize, Start.Col <= End.Col and Start.Row <= End.Row. Both
// corners share the same sheet; the lexer rejects cross-sheet ranges
// before a CellRange can be built.
type CellRange struct {
	Start CellCoordinate
	End   CellCoordinate
}

// Normalize returns an equivalent range whose start corner is the
// top-left cell. Anchors travel with their column/row.
func (r CellRange) Normalize() CellRange {
	out := r
	if out.Start.Col > out.End.Col {
		out.Start.Col, out.End.Col = out.End.Col, out.Start.Col
		out.Start.ColAbs, out.End.ColAbs = out.End.ColAbs, out.Start.ColAbs
	}
	if out.Start.Row > out.End.Row {
		out.Start.Row, out.End.Row = out.End.Row, out.Start.Row
		out.Start.RowAbs, out.End.RowAbs = out.End.RowAbs, out.Start.RowAbs
	}
	out.End.Sheet = out.Start.Sheet
	return out
}

// Count returns the number of cells the range spans.
func (r CellRange) Count() int {
	n := r.Normalize()
	return (n.End.Row - n.Start.Row + 1) * (n.End.Col - n.Start.Col + 1)
}

// Contains reports whether the coordinate lies within the range.
func (r CellRange) Contains(c CellCoordinate) bool {
	n := r.Normalize()
	return c.Sheet == n.Start.Sheet &&
		c.Row >= n.Start.Row && c.Row <= n.End.Row &&
		c.Col >= n.Start.Col && c.Col <= n.End.Col
}

// String renders the range in A1 notation, qualifying only the start
// corner with the sheet name.
func (r CellRange) String() string {
	n := r.Normalize()
	return n.Start.String() + ":" + n.End.Ref()
}

// Cells returns a lazy iterator over every coordinate in the range in
// row-major order. Yielded coordinates carry the range's sheet and no
// anchors; they are evaluation identities, not source text.
func (r CellRange) Cells() iter.Seq[CellCoordinate] {
	n := r.Normalize()
	return func(yield func(CellCoordinate) bool) {
		for row := n.Start.Row; row <= n.End.Row; row++ {
			for col := n.Start.Col; col <= n.End.Col; col++ {
				c := CellCoordinate{Sheet: n.Start.Sheet, Col: col, Row: row}
				if !yield(c) {
					return
				}
			}
		}
	}
}

// Expand materializes the range into a coordinate slice, failing with
// RangeTooLargeError when the cell count exceeds limit. A limit of
// zero or less means unbounded.
func (r CellRange) Expand(limit int) ([]CellCoordinate, error) {
	count := r.Count()
	if limit > 0 && count > limit {
		return nil, &RangeTooLargeError{Ref: r.String(), Cells: count, Limit: limit}
	}
	out := make([]CellCoordinate, 0, count)
	for c := range r.Cells() {
		out = append(out, c)
	}
	return out, nil
}

// parseRangeText parses "A1:B3" (sheet qualifier already stripped)
// into a normalized range on the given sheet.
func parseRangeText(text, sheet string) (CellRange, error) {
	colon := -1
	for i := 0; i < len(text); i++ {
		if text[i] == ':' {
			colon = i
			break
		}
	}
	if colon == -1 {
		return CellRange{}, &LexError{Reason: "range is missing ':' separator"}
	}

	start, err := parseCellText(text[:colon])
	if err != nil {
		return CellRange{}, err
	}
	end, err := parseCellText(text[colon+1:])
	if err != nil {
		return CellRange{}, err
	}
	start.Sheet = sheet
	end.Sheet = sheet

	return CellRange{Start: start, End: end}.Normalize(), nil
}
