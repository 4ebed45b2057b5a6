package gridlate

import (
	"strconv"
)

// Parser parses tokens into an AST using precedence climbing. The
// precedence ladder, lowest to highest: comparison, concatenation,
// additive, multiplicative, exponentiation (right-associative), unary
// prefix, postfix percent, primary. Ranges arrive pre-bound from the
// lexer as single tokens, so ':' binds tighter than everything.
type Parser struct {
	tokens       []Token
	pos          int
	contextSheet string
}

// NewParser creates a parser over the token stream. Unqualified cell
// references resolve to contextSheet.
func NewParser(tokens []Token, contextSheet string) *Parser {
	return &Parser{tokens: tokens, contextSheet: contextSheet}
}

// ParseFormula tokenizes and parses a formula string in one step. A
// leading '=' is accepted and stripped.
func ParseFormula(formula, contextSheet string) (Expr, error) {
	tokens, err := NewLexer(formula).Tokenize()
	if err != nil {
		return nil, err
	}
	return NewParser(tokens, contextSheet).Parse()
}

// Parse parses the token stream into a single expression, requiring
// that every token is consumed.
func (p *Parser) Parse() (Expr, error) {
	if len(p.tokens) == 0 || p.tokens[0].Kind == TokenEOF {
		return nil, &ParseError{Pos: 0, Expected: "expression"}
	}

	// optional formula prefix
	if p.tokens[p.pos].Kind == TokenEquals {
		p.pos++
	}

	node, err := p.parseComparison()
	if err != nil {
		return nil, err
	}

	if tok := p.current(); tok.Kind != TokenEOF {
		return nil, &ParseError{Pos: tok.Pos, Expected: "end of formula", Found: tok.Lexeme}
	}

	return node, nil
}

func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Kind: TokenEOF, Pos: p.endPos()}
	}
	return p.tokens[p.pos]
}

func (p *Parser) endPos() int {
	if len(p.tokens) == 0 {
		return 0
	}
	return p.tokens[len(p.tokens)-1].Pos
}

// parseComparison handles comparison operators (lowest precedence)
func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseConcatenation()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.current()
		if tok.Kind != TokenBinaryOp {
			break
		}

		var op BinaryOp
		switch tok.Lexeme {
		case "=":
			op = BinOpEqual
		case "<>":
			op = BinOpNotEqual
		case "<":
			op = BinOpLess
		case "<=":
			op = BinOpLessEqual
		case ">":
			op = BinOpGreater
		case ">=":
			op = BinOpGreaterEqual
		default:
			return left, nil
		}

		p.pos++
		right, err := p.parseConcatenation()
		if err != nil {
			return nil, err
		}

		left = &BinaryExpr{
			Op:    op,
			Left:  left,
			Right: right,
			Span:  Span{Start: left.Pos().Start, End: right.Pos().End},
		}
	}

	return left, nil
}

// parseConcatenation handles the string concatenation operator
func (p *Parser) parseConcatenation() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.current()
		if tok.Kind != TokenBinaryOp || tok.Lexeme != "&" {
			break
		}

		p.pos++
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}

		left = &BinaryExpr{
			Op:    BinOpConcat,
			Left:  left,
			Right: right,
			Span:  Span{Start: left.Pos().Start, End: right.Pos().End},
		}
	}

	return left, nil
}

// parseAdditive handles addition and subtraction
func (p *Parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.current()
		if tok.Kind != TokenBinaryOp {
			break
		}

		var op BinaryOp
		switch tok.Lexeme {
		case "+":
			op = BinOpAdd
		case "-":
			op = BinOpSubtract
		default:
			return left, nil
		}

		p.pos++
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}

		left = &BinaryExpr{
			Op:    op,
			Left:  left,
			Right: right,
			Span:  Span{Start: left.Pos().Start, End: right.Pos().End},
		}
	}

	return left, nil
}

// parseMultiplicative handles multiplication and division
func (p *Parser) parseMultiplicative() (Expr, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.current()
		if tok.Kind != TokenBinaryOp {
			break
		}

		var op BinaryOp
		switch tok.Lexeme {
		case "*":
			op = BinOpMultiply
		case "/":
			op = BinOpDivide
		default:
			return left, nil
		}

		p.pos++
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}

		left = &BinaryExpr{
			Op:    op,
			Left:  left,
			Right: right,
			Span:  Span{Start: left.Pos().Start, End: right.Pos().End},
		}
	}

	return left, nil
}

// parsePower handles exponentiation
func (p *Parser) parsePower() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	if tok := p.current(); tok.Kind == TokenBinaryOp && tok.Lexeme == "^" {
		p.pos++
		right, err := p.parsePower() // recursive for right-associativity
		if err != nil {
			return nil, err
		}

		return &BinaryExpr{
			Op:    BinOpPower,
			Left:  left,
			Right: right,
			Span:  Span{Start: left.Pos().Start, End: right.Pos().End},
		}, nil
	}

	return left, nil
}

// parseUnary handles prefix unary operators
func (p *Parser) parseUnary() (Expr, error) {
	tok := p.current()

	if tok.Kind == TokenUnaryPrefixOp {
		var op UnaryOp
		switch tok.Lexeme {
		case "+":
			op = UnaryOpPlus
		case "-":
			op = UnaryOpMinus
		default:
			return nil, &ParseError{Pos: tok.Pos, Expected: "unary operator", Found: tok.Lexeme}
		}

		p.pos++
		operand, err := p.parseUnary() // recurse for chained unary operators
		if err != nil {
			return nil, err
		}

		return &UnaryExpr{
			Op:      op,
			Operand: operand,
			Span:    Span{Start: tok.Pos, End: operand.Pos().End},
		}, nil
	}

	return p.parsePostfix()
}

// parsePostfix handles the postfix percent operator
func (p *Parser) parsePostfix() (Expr, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	if tok := p.current(); tok.Kind == TokenUnaryPostfixOp && tok.Lexeme == "%" {
		p.pos++

		return &UnaryExpr{
			Op:      UnaryOpPercent,
			Operand: node,
			Span:    Span{Start: node.Pos().Start, End: tok.Pos + 1},
		}, nil
	}

	return node, nil
}

// parsePrimary handles literals, references, function calls, and
// parenthesized groups
func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.current()

	switch tok.Kind {
	case TokenNumber:
		p.pos++
		val, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			return nil, &ParseError{Pos: tok.Pos, Expected: "number", Found: tok.Lexeme}
		}
		return &NumberLit{
			Value: val,
			Span:  Span{Start: tok.Pos, End: tok.Pos + len(tok.Lexeme)},
		}, nil

	case TokenString:
		p.pos++
		return &StringLit{
			Value: tok.Lexeme,
			Span:  Span{Start: tok.Pos, End: tok.Pos + len(tok.Lexeme) + 2}, // +2 for quotes
		}, nil

	case TokenBoolean:
		p.pos++
		return &BoolLit{
			Value: tok.Lexeme == "TRUE",
			Span:  Span{Start: tok.Pos, End: tok.Pos + len(tok.Lexeme)},
		}, nil

	case TokenCell:
		p.pos++
		return p.newCellRef(tok, p.contextSheet)

	case TokenRange:
		p.pos++
		return p.newRangeRef(tok, p.contextSheet)

	case TokenSheet:
		return p.parseQualifiedRef()

	case TokenFunction:
		return p.parseFunctionCall()

	case TokenLeftParen:
		p.pos++
		inner, err := p.parseComparison()
		if err != nil {
			return nil, err
		}

		closing := p.current()
		if closing.Kind != TokenRightParen {
			return nil, &ParseError{Pos: closing.Pos, Expected: "')'", Found: closing.Lexeme}
		}
		p.pos++

		return &GroupExpr{
			Inner: inner,
			Span:  Span{Start: tok.Pos, End: closing.Pos + 1},
		}, nil

	case TokenIdentifier:
		// named ranges are not part of the translatable grammar
		return nil, &ParseError{Pos: tok.Pos, Expected: "cell reference, literal, or function", Found: tok.Lexeme}

	case TokenEOF:
		return nil, &ParseError{Pos: tok.Pos, Expected: "expression"}

	default:
		return nil, &ParseError{Pos: tok.Pos, Expected: "expression", Found: tok.Lexeme}
	}
}

// parseQualifiedRef parses a Sheet token plus the cell or range it
// qualifies.
func (p *Parser) parseQualifiedRef() (Expr, error) {
	sheetTok := p.current()
	p.pos++

	tok := p.current()
	switch tok.Kind {
	case TokenCell:
		p.pos++
		node, err := p.newCellRef(tok, sheetTok.Lexeme)
		if err != nil {
			return nil, err
		}
		node.Span.Start = sheetTok.Pos
		return node, nil
	case TokenRange:
		p.pos++
		node, err := p.newRangeRef(tok, sheetTok.Lexeme)
		if err != nil {
			return nil, err
		}
		node.Span.Start = sheetTok.Pos
		return node, nil
	default:
		return nil, &ParseError{Pos: tok.Pos, Expected: "cell or range after sheet name", Found: tok.Lexeme}
	}
}

func (p *Parser) newCellRef(tok Token, sheet string) (*CellRef, error) {
	coord, err := parseCellText(tok.Lexeme)
	if err != nil {
		return nil, &ParseError{Pos: tok.Pos, Expected: "cell reference", Found: tok.Lexeme}
	}
	coord.Sheet = sheet
	return &CellRef{
		Coord: coord,
		Span:  Span{Start: tok.Pos, End: tok.Pos + len(tok.Lexeme)},
	}, nil
}

func (p *Parser) newRangeRef(tok Token, sheet string) (*RangeRef, error) {
	rng, err := parseRangeText(tok.Lexeme, sheet)
	if err != nil {
		return nil, &ParseError{Pos: tok.Pos, Expected: "range reference", Found: tok.Lexeme}
	}
	return &RangeRef{
		Range: rng,
		Span:  Span{Start: tok.Pos, End: tok.Pos + len(tok.Lexeme)},
	}, nil
}

// parseFunctionCall parses a function name plus its argument list
func (p *Parser) parseFunctionCall() (Expr, error) {
	funcTok := p.current()
	p.pos++

	if tok := p.current(); tok.Kind != TokenLeftParen {
		return nil, &ParseError{Pos: tok.Pos, Expected: "'(' after function name", Found: tok.Lexeme}
	}
	p.pos++

	args := []Expr{}

	// empty argument list, e.g. TODAY()
	if tok := p.current(); tok.Kind == TokenRightParen {
		p.pos++
		return &CallExpr{
			Name: funcTok.Lexeme,
			Args: args,
			Span: Span{Start: funcTok.Pos, End: tok.Pos + 1},
		}, nil
	}

	for {
		arg, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		tok := p.current()
		if tok.Kind == TokenRightParen {
			p.pos++
			return &CallExpr{
				Name: funcTok.Lexeme,
				Args: args,
				Span: Span{Start: funcTok.Pos, End: tok.Pos + 1},
			}, nil
		}
		if tok.Kind != TokenComma {
			return nil, &ParseError{Pos: tok.Pos, Expected: "',' or ')' in function arguments", Found: tok.Lexeme}
		}
		p.pos++
	}
}
