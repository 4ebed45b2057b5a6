package gridlate

import (
	"errors"
	"strings"
	"testing"
)

// entryFor builds a FormulaEntry by parsing and resolving the formula
// the way Workbook.Translate does.
func entryFor(t *testing.T, sheet, ref, formula string) *FormulaEntry {
	t.Helper()
	coord, err := parseCellText(ref)
	if err != nil {
		t.Fatalf("parseCellText(%q) failed: %v", ref, err)
	}
	coord.Sheet = sheet

	expr, err := ParseFormula(formula, sheet)
	if err != nil {
		t.Fatalf("ParseFormula(%q) failed: %v", formula, err)
	}

	deps, _, err := NewResolver(DefaultConfig()).Dependencies(expr)
	if err != nil {
		t.Fatalf("Dependencies(%q) failed: %v", formula, err)
	}

	return &FormulaEntry{Coord: coord, Source: formula, Expr: expr, Deps: deps}
}

func orderRefs(order []CellCoordinate) []string {
	refs := make([]string, len(order))
	for i, coord := range order {
		refs[i] = coord.Ref()
	}
	return refs
}

func indexOf(refs []string, ref string) int {
	for i, r := range refs {
		if r == ref {
			return i
		}
	}
	return -1
}

func TestGraphEvaluationOrder(t *testing.T) {
	entries := []*FormulaEntry{
		entryFor(t, "Sheet1", "C1", "=A1+B1"),
		entryFor(t, "Sheet1", "D1", "=C1*2"),
		entryFor(t, "Sheet1", "B1", "=A1+1"),
	}

	g := BuildGraph(entries)
	order, err := g.EvaluationOrder()
	if err != nil {
		t.Fatalf("EvaluationOrder failed: %v", err)
	}

	refs := orderRefs(order)
	// every dependency must precede its dependent
	pairs := [][2]string{
		{"A1", "B1"},
		{"A1", "C1"},
		{"B1", "C1"},
		{"C1", "D1"},
	}
	for _, p := range pairs {
		if indexOf(refs, p[0]) >= indexOf(refs, p[1]) {
			t.Errorf("%s must precede %s in %v", p[0], p[1], refs)
		}
	}
}

func TestGraphOrderDeterministic(t *testing.T) {
	build := func(entries []*FormulaEntry) []string {
		g := BuildGraph(entries)
		order, err := g.EvaluationOrder()
		if err != nil {
			t.Fatalf("EvaluationOrder failed: %v", err)
		}
		return orderRefs(order)
	}

	a := []*FormulaEntry{
		entryFor(t, "Sheet1", "C1", "=A1+B1"),
		entryFor(t, "Sheet1", "C2", "=A2+B2"),
		entryFor(t, "Sheet1", "C3", "=A3+B3"),
	}
	b := []*FormulaEntry{a[2], a[0], a[1]}

	first := build(a)
	second := build(b)
	if len(first) != len(second) {
		t.Fatalf("order lengths differ: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("entry order changed the result: %v vs %v", first, second)
		}
	}

	// independent ready cells come out in coordinate order
	want := []string{"A1", "B1", "C1", "A2", "B2", "C2", "A3", "B3", "C3"}
	for i := range want {
		if first[i] != want[i] {
			t.Fatalf("order = %v, want %v", first, want)
		}
	}
}

func TestGraphCycleDetection(t *testing.T) {
	entries := []*FormulaEntry{
		entryFor(t, "Sheet1", "A1", "=B1+1"),
		entryFor(t, "Sheet1", "B1", "=A1+1"),
	}

	g := BuildGraph(entries)
	cycles := g.Cycles()
	if len(cycles) != 1 {
		t.Fatalf("got %d cycles, want 1", len(cycles))
	}

	// the report must name both cells
	msg := cycles[0].Error()
	if !strings.Contains(msg, "A1") || !strings.Contains(msg, "B1") {
		t.Errorf("cycle %q must name both A1 and B1", msg)
	}

	_, err := g.EvaluationOrder()
	if !errors.Is(err, ErrCircularReference) {
		t.Fatalf("EvaluationOrder error = %v, want ErrCircularReference", err)
	}
}

func TestGraphSelfReference(t *testing.T) {
	entries := []*FormulaEntry{
		entryFor(t, "Sheet1", "A1", "=A1+1"),
	}

	g := BuildGraph(entries)
	cycles := g.Cycles()
	if len(cycles) != 1 {
		t.Fatalf("got %d cycles, want 1", len(cycles))
	}
	if len(cycles[0].Cycle) != 1 || cycles[0].Cycle[0].Ref() != "A1" {
		t.Errorf("self reference cycle = %v, want [A1]", cycles[0].Cycle)
	}
}

func TestGraphAcyclicHasNoCycles(t *testing.T) {
	entries := []*FormulaEntry{
		entryFor(t, "Sheet1", "B1", "=A1*2"),
		entryFor(t, "Sheet1", "C1", "=B1*2"),
	}

	g := BuildGraph(entries)
	if cycles := g.Cycles(); len(cycles) != 0 {
		t.Fatalf("unexpected cycles: %v", cycles)
	}
}

func TestGraphNeighbors(t *testing.T) {
	entries := []*FormulaEntry{
		entryFor(t, "Sheet1", "C1", "=SUM(A1:A3)"),
		entryFor(t, "Sheet1", "D1", "=C1+A1"),
	}

	g := BuildGraph(entries)

	a1 := CellCoordinate{Sheet: "Sheet1", Col: 0, Row: 0}
	dependents := g.DirectDependents(a1)
	refs := orderRefs(dependents)
	if len(refs) != 2 || refs[0] != "C1" || refs[1] != "D1" {
		t.Errorf("DirectDependents(A1) = %v, want [C1 D1]", refs)
	}

	d1 := CellCoordinate{Sheet: "Sheet1", Col: 3, Row: 0}
	precedents := orderRefs(g.DirectPrecedents(d1))
	if len(precedents) != 2 || precedents[0] != "A1" || precedents[1] != "C1" {
		t.Errorf("DirectPrecedents(D1) = %v, want [A1 C1]", precedents)
	}
}

func TestGraphInputCells(t *testing.T) {
	entries := []*FormulaEntry{
		entryFor(t, "Sheet1", "C1", "=A1+B1"),
		entryFor(t, "Sheet1", "D1", "=C1*2"),
	}

	g := BuildGraph(entries)
	inputs := orderRefs(g.InputCells())
	if len(inputs) != 2 || inputs[0] != "A1" || inputs[1] != "B1" {
		t.Errorf("InputCells = %v, want [A1 B1]", inputs)
	}
}

func TestGraphCrossSheet(t *testing.T) {
	entries := []*FormulaEntry{
		entryFor(t, "Sheet1", "B2", "=Sheet2!C3*2"),
	}

	g := BuildGraph(entries)
	if !g.Contains(CellCoordinate{Sheet: "Sheet2", Col: 2, Row: 2}) {
		t.Error("expected Sheet2!C3 to be a graph node")
	}

	order, err := g.EvaluationOrder()
	if err != nil {
		t.Fatalf("EvaluationOrder failed: %v", err)
	}
	if order[0].Sheet != "Sheet2" {
		t.Errorf("input cell must come first, got %v", order)
	}
}
