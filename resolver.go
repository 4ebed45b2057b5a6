package gridlate

// Resolver normalizes raw reference text into coordinates and
// flattens parsed expressions into dependency sets. Range expansion
// is bounded by MaxRangeCells; AllowTruncation downgrades an
// over-large range to its leading cells instead of failing.
type Resolver struct {
	MaxRangeCells   int
	AllowTruncation bool
}

// NewResolver builds a resolver from the config's range limits.
func NewResolver(cfg Config) *Resolver {
	return &Resolver{
		MaxRangeCells:   cfg.MaxRangeCells,
		AllowTruncation: cfg.AllowTruncation,
	}
}

// Resolve parses raw reference text ("B2", "$B$2", "Sheet2!C3",
// "A1:B3") into a *CellRef or *RangeRef. Unqualified references
// resolve to contextSheet. Syntactically invalid text fails with a
// lex or parse error; valid references never fail.
func (r *Resolver) Resolve(raw, contextSheet string) (Expr, error) {
	tokens, err := NewLexerForReference(raw).Tokenize()
	if err != nil {
		return nil, err
	}

	parser := NewParser(tokens, contextSheet)
	node, err := parser.Parse()
	if err != nil {
		return nil, err
	}

	switch node.(type) {
	case *CellRef, *RangeRef:
		return node, nil
	default:
		return nil, &ParseError{Pos: 0, Expected: "cell or range reference", Found: raw}
	}
}

// ResolveCell is Resolve restricted to a single-cell reference.
func (r *Resolver) ResolveCell(raw, contextSheet string) (CellCoordinate, error) {
	node, err := r.Resolve(raw, contextSheet)
	if err != nil {
		return CellCoordinate{}, err
	}
	ref, ok := node.(*CellRef)
	if !ok {
		return CellCoordinate{}, &ParseError{Pos: 0, Expected: "single cell reference", Found: raw}
	}
	return ref.Coord, nil
}

// Dependencies flattens every CellRef and RangeRef leaf of expr into
// a deduplicated, first-occurrence-ordered coordinate list. Anchors
// are dropped: dependency identity is (sheet, column, row) only.
// Ranges larger than MaxRangeCells either truncate (AllowTruncation)
// or fail with RangeTooLargeError; truncated reports whether any
// range was cut short.
func (r *Resolver) Dependencies(expr Expr) (deps []CellCoordinate, truncated bool, err error) {
	seen := make(map[CoordKey]struct{})

	add := func(c CellCoordinate) {
		key := c.Key()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		deps = append(deps, CellCoordinate{Sheet: key.Sheet, Col: key.Col, Row: key.Row})
	}

	Walk(expr, func(node Expr) bool {
		if err != nil {
			return false
		}
		switch n := node.(type) {
		case *CellRef:
			add(n.Coord)
		case *RangeRef:
			count := n.Range.Count()
			if r.MaxRangeCells > 0 && count > r.MaxRangeCells {
				if !r.AllowTruncation {
					err = &RangeTooLargeError{Ref: n.Range.String(), Cells: count, Limit: r.MaxRangeCells}
					return false
				}
				truncated = true
				remaining := r.MaxRangeCells
				for c := range n.Range.Cells() {
					if remaining == 0 {
						break
					}
					add(c)
					remaining--
				}
				return true
			}
			for c := range n.Range.Cells() {
				add(c)
			}
		}
		return true
	})

	if err != nil {
		return nil, false, err
	}
	return deps, truncated, nil
}
