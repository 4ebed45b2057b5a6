package gridlate

import "fmt"

// Complexity is the advisory score attached to a translated formula.
// Scores at or above the configured threshold flag the formula as a
// candidate for manual review, without blocking translation.
type Complexity struct {
	Score   int
	Reasons []string
	Complex bool
}

// Classify scores a parsed formula for structural complexity. The
// score accumulates one point per function call beyond the first, two
// per reference leaving ownerSheet, three per non-core function, and
// one per nesting level beyond three.
func Classify(expr Expr, ownerSheet string, cfg Config) Complexity {
	var c Complexity

	calls := 0
	crossSheet := 0
	nonCore := 0
	Walk(expr, func(node Expr) bool {
		switch n := node.(type) {
		case *CallExpr:
			calls++
			// unknown functions count as non-core
			if spec, exists := LookupFunction(n.Name); !exists || !spec.Core {
				nonCore++
			}
		case *CellRef:
			if n.Coord.Sheet != "" && n.Coord.Sheet != ownerSheet {
				crossSheet++
			}
		case *RangeRef:
			if n.Range.Start.Sheet != "" && n.Range.Start.Sheet != ownerSheet {
				crossSheet++
			}
		}
		return true
	})

	if calls > 1 {
		c.Score += calls - 1
		c.Reasons = append(c.Reasons, fmt.Sprintf("%d function calls", calls))
	}
	if crossSheet > 0 {
		c.Score += 2 * crossSheet
		c.Reasons = append(c.Reasons, fmt.Sprintf("%d cross-sheet references", crossSheet))
	}
	if nonCore > 0 {
		c.Score += 3 * nonCore
		c.Reasons = append(c.Reasons, fmt.Sprintf("%d non-core functions", nonCore))
	}
	if depth := Depth(expr); depth > 3 {
		c.Score += depth - 3
		c.Reasons = append(c.Reasons, fmt.Sprintf("nesting depth %d", depth))
	}

	c.Complex = c.Score >= cfg.ComplexityThreshold
	return c
}
