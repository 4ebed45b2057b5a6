package gridlate

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestParserValidFormulas(t *testing.T) {
	valid := []string{
		"=1+2",
		"=A1",
		"=SUM(A1:A10)",
		"=Sheet2!A1",
		"=Sheet2!A1:B2",
		"=SUM(Sheet2!A1:A10)",
		"=Sheet2!A1 + Sheet3!B1",
		"=SUM(B2:A1)",
		"=SUM(A1:A1)",
		"=SUM(A1:Z1000)",
		"='My Sheet'!A1",
		`="Hello"&" "&"World"`,
		`=CONCATENATE("a", "b", "c")`,
		"=IF(A1>10, 1, 0)",
		"=IF(A1>10, 1)",
		"=1+2*3",
		"=(1+2)*3",
		"=-A1",
		"=+A1",
		"=50%",
		"=2^3^2",
		"=A1<>B1",
		"=TRUE",
		"=FALSE",
		"=NOW()",
		"A1*2",
		"=$A$1+$B2+C$3",
		"=ROUND(A1/B1, 2)",
	}

	for _, formula := range valid {
		t.Run(formula, func(t *testing.T) {
			if _, err := ParseFormula(formula, "Sheet1"); err != nil {
				t.Errorf("ParseFormula(%q) failed: %v", formula, err)
			}
		})
	}
}

func TestParserInvalidFormulas(t *testing.T) {
	invalid := []string{
		"=1+",
		"=*2",
		"=SUM(",
		"=SUM)",
		"=SUM(A1:A3",
		"=(1+2",
		"=1+2)",
		"=,",
		"=IF(,1,0)",
		"=A1 A2",
		"=Sheet2!",
		"=MyNamedRange",
	}

	for _, formula := range invalid {
		t.Run(formula, func(t *testing.T) {
			if _, err := ParseFormula(formula, "Sheet1"); err == nil {
				t.Errorf("expected ParseFormula(%q) to fail", formula)
			}
		})
	}
}

func TestParserAST(t *testing.T) {
	ignoreSpans := cmpopts.IgnoreTypes(Span{})

	tests := []struct {
		formula string
		want    Expr
	}{
		{
			formula: "=1+2*3",
			want: &BinaryExpr{
				Op:   BinOpAdd,
				Left: &NumberLit{Value: 1},
				Right: &BinaryExpr{
					Op:    BinOpMultiply,
					Left:  &NumberLit{Value: 2},
					Right: &NumberLit{Value: 3},
				},
			},
		},
		{
			formula: "=2^3^2",
			want: &BinaryExpr{
				Op:   BinOpPower,
				Left: &NumberLit{Value: 2},
				Right: &BinaryExpr{
					Op:    BinOpPower,
					Left:  &NumberLit{Value: 3},
					Right: &NumberLit{Value: 2},
				},
			},
		},
		{
			formula: "=-A1%",
			want: &UnaryExpr{
				Op: UnaryOpMinus,
				Operand: &UnaryExpr{
					Op:      UnaryOpPercent,
					Operand: &CellRef{Coord: CellCoordinate{Sheet: "Sheet1", Col: 0, Row: 0}},
				},
			},
		},
		{
			formula: "=Sheet2!C3*2",
			want: &BinaryExpr{
				Op:    BinOpMultiply,
				Left:  &CellRef{Coord: CellCoordinate{Sheet: "Sheet2", Col: 2, Row: 2}},
				Right: &NumberLit{Value: 2},
			},
		},
		{
			formula: "=SUM(A1:A3)+IF(B1>10,1,0)",
			want: &BinaryExpr{
				Op: BinOpAdd,
				Left: &CallExpr{
					Name: "SUM",
					Args: []Expr{
						&RangeRef{Range: CellRange{
							Start: CellCoordinate{Sheet: "Sheet1", Col: 0, Row: 0},
							End:   CellCoordinate{Sheet: "Sheet1", Col: 0, Row: 2},
						}},
					},
				},
				Right: &CallExpr{
					Name: "IF",
					Args: []Expr{
						&BinaryExpr{
							Op:    BinOpGreater,
							Left:  &CellRef{Coord: CellCoordinate{Sheet: "Sheet1", Col: 1, Row: 0}},
							Right: &NumberLit{Value: 10},
						},
						&NumberLit{Value: 1},
						&NumberLit{Value: 0},
					},
				},
			},
		},
		{
			formula: `="a"&"b"`,
			want: &BinaryExpr{
				Op:    BinOpConcat,
				Left:  &StringLit{Value: "a"},
				Right: &StringLit{Value: "b"},
			},
		},
		{
			formula: "=$B$2",
			want: &CellRef{Coord: CellCoordinate{
				Sheet: "Sheet1", Col: 1, Row: 1, ColAbs: true, RowAbs: true,
			}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.formula, func(t *testing.T) {
			got, err := ParseFormula(tc.formula, "Sheet1")
			if err != nil {
				t.Fatalf("ParseFormula(%q) failed: %v", tc.formula, err)
			}
			if diff := cmp.Diff(tc.want, got, ignoreSpans); diff != "" {
				t.Errorf("ParseFormula(%q) mismatch (-want +got):\n%s", tc.formula, diff)
			}
		})
	}
}

// stripGroups rebuilds the tree without GroupExpr wrappers. Render
// parenthesizes binary expressions, so a reparse of rendered text
// differs from the original only in grouping nodes.
func stripGroups(e Expr) Expr {
	switch n := e.(type) {
	case *GroupExpr:
		return stripGroups(n.Inner)
	case *UnaryExpr:
		return &UnaryExpr{Op: n.Op, Operand: stripGroups(n.Operand), Span: n.Span}
	case *BinaryExpr:
		return &BinaryExpr{Op: n.Op, Left: stripGroups(n.Left), Right: stripGroups(n.Right), Span: n.Span}
	case *CallExpr:
		args := make([]Expr, len(n.Args))
		for i, arg := range n.Args {
			args[i] = stripGroups(arg)
		}
		return &CallExpr{Name: n.Name, Args: args, Span: n.Span}
	default:
		return e
	}
}

func TestParserRoundTrip(t *testing.T) {
	// parse, render, parse again: the two trees must match up to
	// explicit grouping
	formulas := []string{
		"=1+2*3",
		"=SUM(A1:A10)",
		"=IF(A1>10, 1, 0)",
		"=Sheet2!C3*2",
		"=(1+2)*3",
		"=-A1+50%",
		`="a"&"b"`,
		"=$A$1:$B$3",
		"=ROUND(AVERAGE(B1:B9), 2)",
	}

	ignoreSpans := cmpopts.IgnoreTypes(Span{})
	for _, formula := range formulas {
		t.Run(formula, func(t *testing.T) {
			first, err := ParseFormula(formula, "Sheet1")
			if err != nil {
				t.Fatalf("ParseFormula(%q) failed: %v", formula, err)
			}
			rendered := first.Render()
			second, err := ParseFormula(rendered, "Sheet1")
			if err != nil {
				t.Fatalf("reparse of %q failed: %v", rendered, err)
			}
			if diff := cmp.Diff(stripGroups(first), stripGroups(second), ignoreSpans); diff != "" {
				t.Errorf("round trip of %q via %q changed the tree (-first +second):\n%s", formula, rendered, diff)
			}
		})
	}
}

func TestParserErrorDetails(t *testing.T) {
	_, err := ParseFormula("=1+", "Sheet1")
	if !errors.Is(err, ErrParse) {
		t.Fatalf("error = %v, want ErrParse", err)
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error %v is not a ParseError", err)
	}
}

func TestParserNamedRangeRejected(t *testing.T) {
	_, err := ParseFormula("=Revenue*2", "Sheet1")
	if err == nil {
		t.Fatal("expected named range reference to be rejected")
	}
	if !errors.Is(err, ErrParse) {
		t.Fatalf("error = %v, want ErrParse", err)
	}
}
