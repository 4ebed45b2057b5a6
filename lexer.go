package gridlate

// TokenKind represents different types of tokens in formulas
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenEquals
	TokenNumber
	TokenString
	TokenBoolean
	TokenCell
	TokenRange
	TokenSheet
	TokenFunction
	TokenIdentifier
	TokenUnaryPrefixOp
	TokenUnaryPostfixOp
	TokenBinaryOp
	TokenComma
	TokenLeftParen
	TokenRightParen
	tokenError
)

// character classification constants. slightly easier to read.
const (
	charNull       = 0
	charTab        = '\t'
	charNewline    = '\n'
	charReturn     = '\r'
	charSpace      = ' '
	charQuote      = '"'
	charApostrophe = '\''
	charDollar     = '$'
	charPercent    = '%'
	charAmpersand  = '&'
	charLParen     = '('
	charRParen     = ')'
	charAsterisk   = '*'
	charPlus       = '+'
	charComma      = ','
	charMinus      = '-'
	charPeriod     = '.'
	charSlash      = '/'
	charColon      = ':'
	charLess       = '<'
	charEqual      = '='
	charGreater    = '>'
	charCaret      = '^'
	charUnderscore = '_'
	charExclaim    = '!'
	charHash       = '#'
	charLBrace     = '{'
	charLBracket   = '['
)

// TokenState represents the lexer state for validation
type TokenState int

const (
	StateStart TokenState = iota
	StateAfterEquals
	StateAfterValue
	StateAfterOperator
	StateAfterLeftParen
	StateAfterRightParen
	StateAfterComma
	StateAfterSheet
	StateAfterIdentifier
)

// tokenTransitions maps the current state to valid next token kinds
var tokenTransitions = map[TokenState]map[TokenKind]bool{
	StateStart: {
		TokenEquals:        true, // formula prefix
		TokenUnaryPrefixOp: true, // unary +/-
		TokenNumber:        true,
		TokenString:        true,
		TokenBoolean:       true,
		TokenCell:          true,
		TokenRange:         true, // allow ranges at start for standalone parsing
		TokenSheet:         true,
		TokenFunction:      true,
		TokenIdentifier:    true,
		TokenLeftParen:     true,
	},
	StateAfterValue: { // after number, string, cell, range
		TokenBinaryOp:       true,
		TokenUnaryPostfixOp: true, // for %
		TokenRightParen:     true,
		TokenComma:          true, // only if in function
		TokenEOF:            true,
		// whitespace is significant - no consecutive values
	},
	StateAfterOperator: {
		TokenNumber:        true,
		TokenString:        true,
		TokenBoolean:       true,
		TokenCell:          true,
		TokenRange:         true,
		TokenSheet:         true,
		TokenFunction:      true,
		TokenIdentifier:    true,
		TokenLeftParen:     true,
		TokenUnaryPrefixOp: true, // only unary after binary
	},
	StateAfterLeftParen: {
		TokenNumber:        true,
		TokenString:        true,
		TokenBoolean:       true,
		TokenCell:          true,
		TokenRange:         true, // allow ranges in functions
		TokenSheet:         true,
		TokenFunction:      true,
		TokenIdentifier:    true,
		TokenLeftParen:     true, // nested
		TokenUnaryPrefixOp: true, // unary
		TokenRightParen:    true, // empty parens for arg-less functions like TODAY()
	},
	StateAfterRightParen: {
		TokenBinaryOp:       true,
		TokenUnaryPostfixOp: true, // for %
		TokenRightParen:     true, // if nested
		TokenComma:          true, // if in function
		TokenEOF:            true,
	},
	StateAfterComma: { // only valid in function context
		TokenNumber:        true,
		TokenString:        true,
		TokenBoolean:       true,
		TokenCell:          true,
		TokenRange:         true,
		TokenSheet:         true,
		TokenFunction:      true,
		TokenIdentifier:    true,
		TokenLeftParen:     true,
		TokenUnaryPrefixOp: true, // unary
	},
	StateAfterSheet: { // only the qualified reference may follow Sheet!
		TokenCell:  true,
		TokenRange: true,
	},
	StateAfterIdentifier: {
		TokenBinaryOp:       true,
		TokenUnaryPostfixOp: true,
		TokenRightParen:     true,
		TokenComma:          true,
		TokenEOF:            true,
	},
	StateAfterEquals: {
		TokenNumber:        true,
		TokenString:        true,
		TokenBoolean:       true,
		TokenCell:          true,
		TokenRange:         true,
		TokenSheet:         true,
		TokenFunction:      true,
		TokenIdentifier:    true,
		TokenLeftParen:     true,
		TokenUnaryPrefixOp: true, // unary +/-
	},
}

// Token represents a lexical token with position information
type Token struct {
	Kind   TokenKind
	Lexeme string
	Pos    int // rune position in input
}

// Lexer tokenizes spreadsheet formula expressions
type Lexer struct {
	runes      []rune // UTF-8 aware representation
	pos        int
	state      TokenState
	parenDepth int
	tokens     []Token
	context    *LexerContext
	err        error // typed lex/unsupported error, if any
}

// LexerContext restricts a lexer to a subset of token kinds, used for
// parsing standalone references outside full formulas.
type LexerContext struct {
	ExpectedTokens map[TokenKind]bool
}

// NewLexer creates a new lexer for the given formula input
func NewLexer(input string) *Lexer {
	return &Lexer{
		runes:  []rune(input), // runes for UTF-8 support. could do without but a real pain
		tokens: []Token{},
	}
}

// NewLexerForReference creates a lexer that accepts only a cell
// reference or range, optionally sheet-qualified.
func NewLexerForReference(input string) *Lexer {
	l := NewLexer(input)
	l.context = &LexerContext{
		ExpectedTokens: map[TokenKind]bool{
			TokenCell:  true,
			TokenRange: true,
			TokenSheet: true,
		},
	}
	return l
}

// Tokenize tokenizes the entire input. On failure the returned error
// is a *LexError or *UnsupportedConstructError.
func (l *Lexer) Tokenize() ([]Token, error) {
	// leading = is the optional formula prefix; tokenize it so the
	// parser can skip it explicitly
	if len(l.runes) > 0 && l.runes[0] == charEqual && l.context == nil {
		l.tokens = append(l.tokens, Token{Kind: TokenEquals, Lexeme: "=", Pos: 0})
		l.state = StateAfterEquals
		l.pos = 1
	}

	for l.pos < len(l.runes) {
		tok := l.nextToken()
		if tok.Kind == tokenError {
			if l.err == nil {
				l.err = &LexError{Pos: tok.Pos, Reason: tok.Lexeme}
			}
			return nil, l.err
		}
		if tok.Kind == TokenEOF {
			break
		}
		if !l.validateTransition(tok.Kind) {
			return nil, &LexError{Pos: tok.Pos, Reason: "unexpected token: " + tok.Lexeme}
		}
		l.tokens = append(l.tokens, tok)
		l.updateState(tok.Kind)
	}

	if l.parenDepth > 0 {
		return nil, &LexError{Pos: l.pos, Reason: "unbalanced parentheses: missing closing parenthesis"}
	}

	l.tokens = append(l.tokens, Token{Kind: TokenEOF, Pos: l.pos})
	return l.tokens, nil
}

// validateTransition checks if the token kind is valid in current state
func (l *Lexer) validateTransition(kind TokenKind) bool {
	if l.context != nil && len(l.context.ExpectedTokens) > 0 {
		if kind == TokenCell || kind == TokenRange {
			// a qualified reference arrives as Sheet then Cell/Range
			return l.context.ExpectedTokens[kind] || l.state == StateAfterSheet
		}
		return l.context.ExpectedTokens[kind]
	}

	validTokens, exists := tokenTransitions[l.state]
	if !exists {
		return false
	}
	return validTokens[kind]
}

// updateState updates the lexer state based on the token kind
func (l *Lexer) updateState(kind TokenKind) {
	switch kind {
	case TokenEquals:
		l.state = StateAfterEquals
	case TokenNumber, TokenString, TokenBoolean, TokenCell, TokenRange:
		l.state = StateAfterValue
	case TokenUnaryPrefixOp, TokenBinaryOp:
		l.state = StateAfterOperator
	case TokenUnaryPostfixOp:
		// postfix operators don't change state
	case TokenLeftParen:
		l.state = StateAfterLeftParen
	case TokenRightParen:
		l.state = StateAfterRightParen
	case TokenComma:
		l.state = StateAfterComma
	case TokenSheet:
		l.state = StateAfterSheet
	case TokenFunction:
		// the paren that must follow is scanned separately
		l.state = StateStart
	case TokenIdentifier:
		l.state = StateAfterIdentifier
	}
}

// nextToken returns the next token from the input
func (l *Lexer) nextToken() Token {
	l.skipWhitespace()

	if l.pos >= len(l.runes) {
		return Token{Kind: TokenEOF, Pos: l.pos}
	}

	startPos := l.pos
	ch := l.current()

	if ch == charQuote {
		return l.scanString()
	}

	// single-quoted sheet name, e.g. 'My Sheet'!A1
	if ch == charApostrophe {
		return l.scanQuotedSheet()
	}

	if l.isDigit(ch) || (ch == charPeriod && l.isDigit(l.peek(1))) {
		return l.scanNumber()
	}

	// anchored reference ($A$1) must be a cell or range
	if ch == charDollar {
		return l.scanReference()
	}

	switch ch {
	case charLBrace:
		l.err = &UnsupportedConstructError{Pos: startPos, Construct: "array literal"}
		return Token{Kind: tokenError, Lexeme: "array literal", Pos: startPos}
	case charLBracket:
		l.err = &UnsupportedConstructError{Pos: startPos, Construct: "external workbook reference"}
		return Token{Kind: tokenError, Lexeme: "external workbook reference", Pos: startPos}
	case charHash:
		l.err = &UnsupportedConstructError{Pos: startPos, Construct: "spill range"}
		return Token{Kind: tokenError, Lexeme: "spill range", Pos: startPos}
	case charLParen:
		l.pos++
		l.parenDepth++
		return Token{Kind: TokenLeftParen, Lexeme: "(", Pos: startPos}
	case charRParen:
		l.pos++
		l.parenDepth--
		if l.parenDepth < 0 {
			return Token{Kind: tokenError, Lexeme: "unexpected closing parenthesis", Pos: startPos}
		}
		return Token{Kind: TokenRightParen, Lexeme: ")", Pos: startPos}
	case charComma:
		l.pos++
		return Token{Kind: TokenComma, Lexeme: ",", Pos: startPos}
	case charPlus, charMinus:
		l.pos++
		if l.isUnaryContext() {
			return Token{Kind: TokenUnaryPrefixOp, Lexeme: string(ch), Pos: startPos}
		}
		return Token{Kind: TokenBinaryOp, Lexeme: string(ch), Pos: startPos}
	case charAsterisk, charSlash, charCaret, charAmpersand:
		l.pos++
		return Token{Kind: TokenBinaryOp, Lexeme: string(ch), Pos: startPos}
	case charPercent:
		l.pos++
		return Token{Kind: TokenUnaryPostfixOp, Lexeme: "%", Pos: startPos}
	case charEqual:
		l.pos++
		return Token{Kind: TokenBinaryOp, Lexeme: "=", Pos: startPos}
	case charLess:
		l.pos++
		if l.current() == charEqual {
			l.pos++
			return Token{Kind: TokenBinaryOp, Lexeme: "<=", Pos: startPos}
		}
		if l.current() == charGreater {
			l.pos++
			return Token{Kind: TokenBinaryOp, Lexeme: "<>", Pos: startPos}
		}
		return Token{Kind: TokenBinaryOp, Lexeme: "<", Pos: startPos}
	case charGreater:
		l.pos++
		if l.current() == charEqual {
			l.pos++
			return Token{Kind: TokenBinaryOp, Lexeme: ">=", Pos: startPos}
		}
		return Token{Kind: TokenBinaryOp, Lexeme: ">", Pos: startPos}
	case charColon:
		l.pos++
		return Token{Kind: tokenError, Lexeme: "':' outside a range reference", Pos: startPos}
	}

	if l.isAlpha(ch) || ch == charUnderscore {
		return l.scanIdentifierOrReference()
	}

	l.pos++
	return Token{Kind: tokenError, Lexeme: "unexpected character: " + string(ch), Pos: startPos}
}

// helper methods for character navigation and classification

func (l *Lexer) substring(start, end int) string {
	if start < 0 || end > len(l.runes) || start > end {
		return ""
	}
	return string(l.runes[start:end])
}

func (l *Lexer) current() rune {
	if l.pos >= len(l.runes) {
		return charNull
	}
	return l.runes[l.pos]
}

func (l *Lexer) peek(offset int) rune {
	pos := l.pos + offset
	if pos >= len(l.runes) || pos < 0 {
		return charNull
	}
	return l.runes[pos]
}

// peekNonSpace returns the next non-whitespace rune without moving
// the position, or charNull at end of input.
func (l *Lexer) peekNonSpace() rune {
	for pos := l.pos; pos < len(l.runes); pos++ {
		ch := l.runes[pos]
		if ch != charSpace && ch != charTab && ch != charNewline && ch != charReturn {
			return ch
		}
	}
	return charNull
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.runes) {
		ch := l.current()
		if ch == charSpace || ch == charTab || ch == charNewline || ch == charReturn {
			l.pos++
		} else {
			break
		}
	}
}

func (l *Lexer) isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func (l *Lexer) isAlpha(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func (l *Lexer) isAlphaNumeric(ch rune) bool {
	return l.isAlpha(ch) || l.isDigit(ch)
}

// isUnaryContext checks if the current context allows for unary operators
func (l *Lexer) isUnaryContext() bool {
	switch l.state {
	case StateStart, StateAfterEquals, StateAfterOperator, StateAfterLeftParen, StateAfterComma:
		return true
	default:
		return false
	}
}

// scanNumber scans a number token including decimals and scientific notation
func (l *Lexer) scanNumber() Token {
	startPos := l.pos

	for l.pos < len(l.runes) && l.isDigit(l.current()) {
		l.pos++
	}

	if l.current() == charPeriod && l.isDigit(l.peek(1)) {
		l.pos++ // consume '.'
		for l.pos < len(l.runes) && l.isDigit(l.current()) {
			l.pos++
		}
	}

	// scientific notation (e or E)
	if l.current() == 'e' || l.current() == 'E' {
		savedPos := l.pos
		l.pos++

		if l.current() == charPlus || l.current() == charMinus {
			l.pos++
		}

		if !l.isDigit(l.current()) {
			// not scientific notation, restore position
			l.pos = savedPos
		} else {
			for l.pos < len(l.runes) && l.isDigit(l.current()) {
				l.pos++
			}
		}
	}

	return Token{Kind: TokenNumber, Lexeme: l.substring(startPos, l.pos), Pos: startPos}
}

// scanString scans a string literal with support for double-quote escapes
func (l *Lexer) scanString() Token {
	startPos := l.pos
	l.pos++ // consume opening quote

	var result []rune

	for l.pos < len(l.runes) {
		ch := l.current()

		if ch == charQuote {
			if l.peek(1) == charQuote {
				// "" is an escaped quote
				result = append(result, charQuote)
				l.pos += 2
			} else {
				l.pos++ // consume closing quote
				return Token{Kind: TokenString, Lexeme: string(result), Pos: startPos}
			}
		} else {
			result = append(result, ch)
			l.pos++
		}
	}

	return Token{Kind: tokenError, Lexeme: "unterminated string literal", Pos: startPos}
}

// scanQuotedSheet scans a single-quoted sheet name followed by '!',
// emitting a Sheet token with the unquoted name.
func (l *Lexer) scanQuotedSheet() Token {
	startPos := l.pos
	l.pos++ // consume opening quote

	nameStart := l.pos
	for l.pos < len(l.runes) && l.current() != charApostrophe {
		l.pos++
	}
	if l.pos >= len(l.runes) {
		return Token{Kind: tokenError, Lexeme: "unterminated sheet name", Pos: startPos}
	}

	name := l.substring(nameStart, l.pos)
	l.pos++ // consume closing quote

	if l.current() != charExclaim {
		return Token{Kind: tokenError, Lexeme: "expected '!' after sheet name", Pos: startPos}
	}
	l.pos++ // consume !

	return Token{Kind: TokenSheet, Lexeme: name, Pos: startPos}
}

// scanIdentifierOrReference scans identifiers, functions, cells,
// ranges, booleans, and bare sheet qualifiers.
func (l *Lexer) scanIdentifierOrReference() Token {
	startPos := l.pos

	// a reference wins when the text matches cell syntax, unless a
	// '(' follows (function-call lookahead, e.g. LOG10(...))
	if lexeme, ok := l.tryScanCell(); ok {
		if l.current() == charColon {
			return l.scanRangeTail(startPos, lexeme)
		}
		return Token{Kind: TokenCell, Lexeme: lexeme, Pos: startPos}
	}

	for l.pos < len(l.runes) && (l.isAlphaNumeric(l.current()) || l.current() == charUnderscore || l.current() == charPeriod) {
		l.pos++
	}

	value := l.substring(startPos, l.pos)
	upper := toUpperASCII(value)

	if upper == "TRUE" || upper == "FALSE" {
		return Token{Kind: TokenBoolean, Lexeme: upper, Pos: startPos}
	}

	// bare sheet qualifier (Sheet1!A1); the lookahead skips
	// whitespace so Sheet1 ! A1 still qualifies
	if l.peekNonSpace() == charExclaim {
		l.skipWhitespace()
		l.pos++ // consume !
		return Token{Kind: TokenSheet, Lexeme: value, Pos: startPos}
	}

	// function-name-followed-by-paren lookahead, whitespace-tolerant
	// so SUM (A1:A3) is still a call
	if l.peekNonSpace() == charLParen {
		return Token{Kind: TokenFunction, Lexeme: upper, Pos: startPos}
	}

	// named ranges are tokenized but rejected later by the parser
	return Token{Kind: TokenIdentifier, Lexeme: value, Pos: startPos}
}

// scanReference scans a reference that must be a cell or range,
// starting at '$'.
func (l *Lexer) scanReference() Token {
	startPos := l.pos
	lexeme, ok := l.tryScanCell()
	if !ok {
		l.pos++
		return Token{Kind: tokenError, Lexeme: "expected cell reference after '$'", Pos: startPos}
	}
	if l.current() == charColon {
		return l.scanRangeTail(startPos, lexeme)
	}
	return Token{Kind: TokenCell, Lexeme: lexeme, Pos: startPos}
}

// scanRangeTail consumes ':' plus the closing cell of a range whose
// opening cell has already been scanned.
func (l *Lexer) scanRangeTail(startPos int, _ string) Token {
	l.pos++ // consume ':'
	if _, ok := l.tryScanCell(); !ok {
		return Token{Kind: tokenError, Lexeme: "expected cell reference after ':'", Pos: l.pos}
	}
	return Token{Kind: TokenRange, Lexeme: l.substring(startPos, l.pos), Pos: startPos}
}

// tryScanCell attempts to scan one cell reference with optional '$'
// anchors at the current position. On failure the position is
// restored and ok is false.
func (l *Lexer) tryScanCell() (lexeme string, ok bool) {
	savedPos := l.pos
	start := l.pos

	if l.current() == charDollar {
		l.pos++
	}

	letters := 0
	for l.isAlpha(l.current()) {
		l.pos++
		letters++
	}
	if letters == 0 {
		l.pos = savedPos
		return "", false
	}

	if l.current() == charDollar {
		l.pos++
	}

	digits := 0
	for l.isDigit(l.current()) {
		l.pos++
		digits++
	}
	if digits == 0 {
		l.pos = savedPos
		return "", false
	}

	// trailing identifier characters mean this wasn't a cell (A1B), a
	// '(' means it was a function name like LOG10, and a '!' means it
	// was a sheet qualifier like Sheet1!A1. The paren and qualifier
	// lookaheads skip whitespace, LOG10 (5) is still a call.
	next := l.current()
	if l.isAlphaNumeric(next) || next == charUnderscore || next == charDollar {
		l.pos = savedPos
		return "", false
	}
	if ahead := l.peekNonSpace(); ahead == charLParen || ahead == charExclaim {
		l.pos = savedPos
		return "", false
	}

	return l.substring(start, l.pos), true
}

func toUpperASCII(s string) string {
	result := make([]rune, 0, len(s))
	for _, ch := range s {
		if ch >= 'a' && ch <= 'z' {
			ch -= 32
		}
		result = append(result, ch)
	}
	return string(result)
}
