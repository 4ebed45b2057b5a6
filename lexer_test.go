package gridlate

import (
	"errors"
	"testing"
)

func tokenKinds(tokens []Token) []TokenKind {
	kinds := make([]TokenKind, len(tokens))
	for i, tok := range tokens {
		kinds[i] = tok.Kind
	}
	return kinds
}

func TestLexerTokenKinds(t *testing.T) {
	tests := []struct {
		formula string
		kinds   []TokenKind
	}{
		{"=1+2", []TokenKind{TokenEquals, TokenNumber, TokenBinaryOp, TokenNumber, TokenEOF}},
		{"=A1", []TokenKind{TokenEquals, TokenCell, TokenEOF}},
		{"A1*B2", []TokenKind{TokenCell, TokenBinaryOp, TokenCell, TokenEOF}},
		{"=A1:B3", []TokenKind{TokenEquals, TokenRange, TokenEOF}},
		{"=$B$2", []TokenKind{TokenEquals, TokenCell, TokenEOF}},
		{"=Sheet2!C3", []TokenKind{TokenEquals, TokenSheet, TokenCell, TokenEOF}},
		{"='My Sheet'!A1:B2", []TokenKind{TokenEquals, TokenSheet, TokenRange, TokenEOF}},
		{"=SUM(A1:A3)", []TokenKind{TokenEquals, TokenFunction, TokenLeftParen, TokenRange, TokenRightParen, TokenEOF}},
		{"=SUM (A1:A3)", []TokenKind{TokenEquals, TokenFunction, TokenLeftParen, TokenRange, TokenRightParen, TokenEOF}},
		{"=LOG10 (5)", []TokenKind{TokenEquals, TokenFunction, TokenLeftParen, TokenNumber, TokenRightParen, TokenEOF}},
		{`="hi"&"there"`, []TokenKind{TokenEquals, TokenString, TokenBinaryOp, TokenString, TokenEOF}},
		{"=TRUE", []TokenKind{TokenEquals, TokenBoolean, TokenEOF}},
		{"=-A1", []TokenKind{TokenEquals, TokenUnaryPrefixOp, TokenCell, TokenEOF}},
		{"=50%", []TokenKind{TokenEquals, TokenNumber, TokenUnaryPostfixOp, TokenEOF}},
		{"=A1<>B1", []TokenKind{TokenEquals, TokenCell, TokenBinaryOp, TokenCell, TokenEOF}},
		{"=A1>=10", []TokenKind{TokenEquals, TokenCell, TokenBinaryOp, TokenNumber, TokenEOF}},
		{"=2^3", []TokenKind{TokenEquals, TokenNumber, TokenBinaryOp, TokenNumber, TokenEOF}},
		{"1.5e3", []TokenKind{TokenNumber, TokenEOF}},
		{"=IF(A1>10, 1, 0)", []TokenKind{
			TokenEquals, TokenFunction, TokenLeftParen,
			TokenCell, TokenBinaryOp, TokenNumber, TokenComma,
			TokenNumber, TokenComma, TokenNumber,
			TokenRightParen, TokenEOF,
		}},
	}

	for _, tc := range tests {
		t.Run(tc.formula, func(t *testing.T) {
			lexer := NewLexer(tc.formula)
			tokens, err := lexer.Tokenize()
			if err != nil {
				t.Fatalf("Tokenize(%q) failed: %v", tc.formula, err)
			}
			got := tokenKinds(tokens)
			if len(got) != len(tc.kinds) {
				t.Fatalf("Tokenize(%q) = %v kinds, want %v", tc.formula, got, tc.kinds)
			}
			for i := range got {
				if got[i] != tc.kinds[i] {
					t.Errorf("Tokenize(%q) token %d = %v, want %v", tc.formula, i, got[i], tc.kinds[i])
				}
			}
		})
	}
}

func TestLexerLexemes(t *testing.T) {
	lexer := NewLexer("=SUM(A1:A3)+Sheet2!C3")
	tokens, err := lexer.Tokenize()
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}

	want := []string{"=", "SUM", "(", "A1:A3", ")", "+", "Sheet2", "C3", ""}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(tokens), len(want), tokens)
	}
	for i, lexeme := range want {
		if tokens[i].Lexeme != lexeme {
			t.Errorf("token %d lexeme = %q, want %q", i, tokens[i].Lexeme, lexeme)
		}
	}
}

func TestLexerInvalidInput(t *testing.T) {
	invalid := []string{
		"=1+",
		"=+",
		"=)",
		"=(",
		"=A1 B2",
		"=1 2",
		`="unterminated`,
		"='Sheet one!A1",
		"=#REF!",
		"=@invalid",
		"",
		"=",
	}

	for _, formula := range invalid {
		t.Run(formula, func(t *testing.T) {
			lexer := NewLexer(formula)
			tokens, err := lexer.Tokenize()
			if err == nil {
				// the parser catches trailing-operator forms
				parser := NewParser(tokens, "Sheet1")
				if _, perr := parser.Parse(); perr == nil {
					t.Errorf("expected %q to be rejected", formula)
				}
			}
		})
	}
}

func TestLexerUnsupportedConstructs(t *testing.T) {
	tests := []struct {
		formula   string
		construct string
	}{
		{"={1,2}", "array literal"},
		{"=[Book1]Sheet1!A1", "external workbook reference"},
		{"=A1#", "spill range"},
	}

	for _, tc := range tests {
		t.Run(tc.formula, func(t *testing.T) {
			lexer := NewLexer(tc.formula)
			_, err := lexer.Tokenize()
			if !errors.Is(err, ErrUnsupportedConstruct) {
				t.Fatalf("Tokenize(%q) error = %v, want ErrUnsupportedConstruct", tc.formula, err)
			}
			var unsupported *UnsupportedConstructError
			if !errors.As(err, &unsupported) {
				t.Fatalf("error %v is not an UnsupportedConstructError", err)
			}
			if unsupported.Construct != tc.construct {
				t.Errorf("construct = %q, want %q", unsupported.Construct, tc.construct)
			}
		})
	}
}

func TestLexerFunctionLookaheadWhitespace(t *testing.T) {
	// the function-vs-cell decision looks at the next non-whitespace
	// character, so a space before the paren keeps the call a call
	expr, err := ParseFormula("=SUM (A1:A3)", "Sheet1")
	if err != nil {
		t.Fatalf("ParseFormula failed: %v", err)
	}
	call, ok := expr.(*CallExpr)
	if !ok {
		t.Fatalf("parsed %T, want *CallExpr", expr)
	}
	if call.Name != "SUM" {
		t.Errorf("call name = %q, want %q", call.Name, "SUM")
	}
}

func TestLexerPositions(t *testing.T) {
	lexer := NewLexer("=A1+B2")
	tokens, err := lexer.Tokenize()
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}

	wantPos := []int{0, 1, 3, 4}
	for i, pos := range wantPos {
		if tokens[i].Pos != pos {
			t.Errorf("token %d pos = %d, want %d", i, tokens[i].Pos, pos)
		}
	}
}

func TestLexerReferenceContext(t *testing.T) {
	lexer := NewLexerForReference("Sheet2!C3")
	tokens, err := lexer.Tokenize()
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	got := tokenKinds(tokens)
	want := []TokenKind{TokenSheet, TokenCell, TokenEOF}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("kinds = %v, want %v", got, want)
		}
	}
}
