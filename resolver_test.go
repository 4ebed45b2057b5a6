package gridlate

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResolverResolve(t *testing.T) {
	r := NewResolver(DefaultConfig())

	tests := []struct {
		raw   string
		sheet string
		want  string
	}{
		{"B2", "Sheet1", "Sheet1!B2"},
		{"$B$2", "Sheet1", "Sheet1!$B$2"},
		{"Sheet2!C3", "Sheet1", "Sheet2!C3"},
		{"'My Sheet'!A1", "Sheet1", "'My Sheet'!A1"},
		{"A1:B3", "Sheet1", "Sheet1!A1:B3"},
		{"Sheet2!A1:B3", "Sheet1", "Sheet2!A1:B3"},
	}

	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			node, err := r.Resolve(tc.raw, tc.sheet)
			if err != nil {
				t.Fatalf("Resolve(%q) failed: %v", tc.raw, err)
			}
			if got := node.Render(); got != tc.want {
				t.Errorf("Resolve(%q) = %s, want %s", tc.raw, got, tc.want)
			}
		})
	}
}

func TestResolverResolveInvalid(t *testing.T) {
	r := NewResolver(DefaultConfig())

	invalid := []string{
		"",
		"B",
		"2B",
		"B0",
		"1+2",
		"SUM(A1)",
		"Sheet2!",
	}

	for _, raw := range invalid {
		t.Run(raw, func(t *testing.T) {
			if _, err := r.Resolve(raw, "Sheet1"); err == nil {
				t.Errorf("expected Resolve(%q) to fail", raw)
			}
		})
	}
}

func TestResolverResolveCell(t *testing.T) {
	r := NewResolver(DefaultConfig())

	coord, err := r.ResolveCell("$C$3", "Sheet1")
	if err != nil {
		t.Fatalf("ResolveCell failed: %v", err)
	}
	want := CellCoordinate{Sheet: "Sheet1", Col: 2, Row: 2, ColAbs: true, RowAbs: true}
	if diff := cmp.Diff(want, coord); diff != "" {
		t.Errorf("ResolveCell mismatch (-want +got):\n%s", diff)
	}

	if _, err := r.ResolveCell("A1:B3", "Sheet1"); err == nil {
		t.Error("expected ResolveCell to reject a range")
	}
}

func TestResolverDependencies(t *testing.T) {
	r := NewResolver(DefaultConfig())

	expr, err := ParseFormula("=SUM(A1:A3)+IF(B1>10,A1,0)", "Sheet1")
	if err != nil {
		t.Fatalf("ParseFormula failed: %v", err)
	}

	deps, truncated, err := r.Dependencies(expr)
	if err != nil {
		t.Fatalf("Dependencies failed: %v", err)
	}
	if truncated {
		t.Error("unexpected truncation")
	}

	// A1 appears in the range and again as a bare reference; it must
	// be reported once, at its first occurrence
	var refs []string
	for _, dep := range deps {
		refs = append(refs, dep.Ref())
	}
	want := []string{"A1", "A2", "A3", "B1"}
	if diff := cmp.Diff(want, refs); diff != "" {
		t.Errorf("Dependencies mismatch (-want +got):\n%s", diff)
	}
}

func TestResolverDependenciesAnchorsDropped(t *testing.T) {
	r := NewResolver(DefaultConfig())

	expr, err := ParseFormula("=$A$1+A1", "Sheet1")
	if err != nil {
		t.Fatalf("ParseFormula failed: %v", err)
	}

	deps, _, err := r.Dependencies(expr)
	if err != nil {
		t.Fatalf("Dependencies failed: %v", err)
	}
	if len(deps) != 1 {
		t.Fatalf("got %d deps, want 1: %v", len(deps), deps)
	}
	if deps[0].ColAbs || deps[0].RowAbs {
		t.Error("dependency coordinates must not carry anchors")
	}
}

func TestResolverDependenciesRangeLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRangeCells = 10
	r := NewResolver(cfg)

	expr, err := ParseFormula("=SUM(A1:B10)", "Sheet1")
	if err != nil {
		t.Fatalf("ParseFormula failed: %v", err)
	}

	_, _, err = r.Dependencies(expr)
	if !errors.Is(err, ErrRangeTooLarge) {
		t.Fatalf("error = %v, want ErrRangeTooLarge", err)
	}

	r.AllowTruncation = true
	deps, truncated, err := r.Dependencies(expr)
	if err != nil {
		t.Fatalf("Dependencies with truncation failed: %v", err)
	}
	if !truncated {
		t.Error("expected truncated to be reported")
	}
	if len(deps) != 10 {
		t.Errorf("got %d deps, want 10", len(deps))
	}
}

func TestResolverDependenciesCrossSheet(t *testing.T) {
	r := NewResolver(DefaultConfig())

	expr, err := ParseFormula("=Sheet2!C3*2", "Sheet1")
	if err != nil {
		t.Fatalf("ParseFormula failed: %v", err)
	}

	deps, _, err := r.Dependencies(expr)
	if err != nil {
		t.Fatalf("Dependencies failed: %v", err)
	}
	if len(deps) != 1 {
		t.Fatalf("got %d deps, want 1", len(deps))
	}
	if deps[0].Sheet != "Sheet2" {
		t.Errorf("dep sheet = %q, want Sheet2", deps[0].Sheet)
	}
}
