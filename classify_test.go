package gridlate

import "testing"

func classifyFormula(t *testing.T, formula string) Complexity {
	t.Helper()
	expr, err := ParseFormula(formula, "Sheet1")
	if err != nil {
		t.Fatalf("ParseFormula(%q) failed: %v", formula, err)
	}
	return Classify(expr, "Sheet1", DefaultConfig())
}

func TestClassifySimpleFormulas(t *testing.T) {
	simple := []string{
		"=1+2",
		"=A1*B1",
		"=SUM(A1:A10)",
		"=IF(A1>10, 1, 0)",
	}

	for _, formula := range simple {
		t.Run(formula, func(t *testing.T) {
			c := classifyFormula(t, formula)
			if c.Complex {
				t.Errorf("score %d (%v), expected below threshold", c.Score, c.Reasons)
			}
		})
	}
}

func TestClassifyScoring(t *testing.T) {
	tests := []struct {
		formula string
		score   int
	}{
		{"=A1+B1", 0},
		{"=SUM(A1:A3)", 0},
		// two calls: one beyond the first
		{"=SUM(A1:A3)+COUNT(B1:B3)", 1},
		// one cross-sheet reference
		{"=Sheet2!C3*2", 2},
		// LEFT is not a core function
		{"=LEFT(A1, 2)", 3},
		// unknown functions count as non-core
		{"=VLOOKUP(A1, B1:C9, 2)", 3},
		{"=XLOOKUP(A1, B1:B9, C1:C9)+SUM(D1:D9)", 4},
	}

	for _, tc := range tests {
		t.Run(tc.formula, func(t *testing.T) {
			c := classifyFormula(t, tc.formula)
			if c.Score != tc.score {
				t.Errorf("score = %d (%v), want %d", c.Score, c.Reasons, tc.score)
			}
		})
	}
}

func TestClassifyComplexFormula(t *testing.T) {
	// three calls (2) + two non-core (6) puts this well over the
	// default threshold
	c := classifyFormula(t, `=CONCATENATE(LEFT(A1, 3), IF(B1>10, "hi", "lo"))`)
	if !c.Complex {
		t.Errorf("score %d (%v), expected complex", c.Score, c.Reasons)
	}
}

func TestClassifyThresholdFromConfig(t *testing.T) {
	expr, err := ParseFormula("=Sheet2!A1+Sheet2!B1", "Sheet1")
	if err != nil {
		t.Fatalf("ParseFormula failed: %v", err)
	}

	cfg := DefaultConfig()
	loose := Classify(expr, "Sheet1", cfg)
	if loose.Score != 4 {
		t.Fatalf("score = %d, want 4", loose.Score)
	}
	if loose.Complex {
		t.Error("score 4 must be below the default threshold of 5")
	}

	cfg.ComplexityThreshold = 4
	strict := Classify(expr, "Sheet1", cfg)
	if !strict.Complex {
		t.Error("score 4 must be complex at threshold 4")
	}
}

func TestClassifyNesting(t *testing.T) {
	shallow := classifyFormula(t, "=A1+B1")
	deep := classifyFormula(t, "=IF(IF(IF(A1>1, A2>2, A3>3), 1, 0)=1, 1, 0)")
	if deep.Score <= shallow.Score {
		t.Errorf("deep nesting score %d must exceed shallow score %d", deep.Score, shallow.Score)
	}
}
