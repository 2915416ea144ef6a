package hostlang

type Lexer struct {
	input    []byte
	file     string
	pos      int
	line     int
	column   int
	prev     TokenKind
	sawBreak bool
}

func NewLexer(input []byte, file string) *Lexer {
	return &Lexer{
		input:  input,
		file:   file,
		pos:    0,
		line:   1,
		column: 1,
		prev:   TokenSemicolon,
	}
}

func (l *Lexer) Position() Position {
	return Position{
		File:   l.file,
		Offset: l.pos,
		Line:   l.line,
		Column: l.column,
	}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) peekN(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

func (l *Lexer) advance() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	ch := l.input[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return ch
}

func (l *Lexer) advanceN(n int) {
	for i := 0; i < n; i++ {
		l.advance()
	}
}

// NextToken returns the next token, including whitespace and comments.
func (l *Lexer) NextToken() Token {
	tok := l.next()
	switch tok.Kind {
	case TokenWhitespace, TokenComment, TokenLineComment:
		for _, ch := range []byte(tok.Literal) {
			if ch == '\n' {
				l.sawBreak = true
			}
		}
	default:
		tok.Newline = l.sawBreak
		l.sawBreak = false
		l.prev = tok.Kind
	}
	return tok
}

func (l *Lexer) next() Token {
	startPos := l.Position()

	if l.pos >= len(l.input) {
		return Token{Kind: TokenEOF, Span: Span{Start: startPos, End: startPos}}
	}

	ch := l.peek()

	if ch == '/' && l.peekN(1) == '/' {
		return l.scanLineComment(startPos)
	}
	if ch == '/' && l.peekN(1) == '*' {
		return l.scanBlockComment(startPos)
	}
	if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' {
		return l.scanWhitespace(startPos)
	}
	if isLetter(ch) {
		return l.scanIdentOrKeyword(startPos)
	}
	if isDigit(ch) || (ch == '.' && isDigit(l.peekN(1))) {
		return l.scanNumber(startPos)
	}
	if ch == '"' || ch == '\'' {
		return l.scanString(startPos, ch)
	}
	if ch == '`' {
		return l.scanTemplate(startPos)
	}
	if ch == '/' && l.regexAllowed() {
		return l.scanRegexp(startPos)
	}
	return l.scanOperator(startPos)
}

// regexAllowed reports whether a slash at this point starts a regular
// expression literal rather than a division.
func (l *Lexer) regexAllowed() bool {
	switch l.prev {
	case TokenIdent, TokenNumber, TokenString, TokenTemplate,
		TokenRParen, TokenRBracket, TokenRBrace:
		return false
	}
	return true
}

func (l *Lexer) scanWhitespace(start Position) Token {
	for {
		ch := l.peek()
		if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' {
			l.advance()
		} else {
			break
		}
	}
	return l.token(TokenWhitespace, start)
}

func (l *Lexer) scanLineComment(start Position) Token {
	l.advanceN(2)
	for l.peek() != 0 && l.peek() != '\n' {
		l.advance()
	}
	return l.token(TokenLineComment, start)
}

func (l *Lexer) scanBlockComment(start Position) Token {
	l.advanceN(2)
	for {
		if l.peek() == 0 {
			break
		}
		if l.peek() == '*' && l.peekN(1) == '/' {
			l.advanceN(2)
			break
		}
		l.advance()
	}
	return l.token(TokenComment, start)
}

func (l *Lexer) scanIdentOrKeyword(start Position) Token {
	for isLetterOrDigit(l.peek()) {
		l.advance()
	}
	end := l.Position()
	literal := string(l.input[start.Offset:end.Offset])
	return Token{
		Kind:    LookupKeyword(literal),
		Span:    Span{Start: start, End: end},
		Literal: literal,
	}
}

func (l *Lexer) scanNumber(start Position) Token {
	if l.peek() == '0' && (l.peekN(1) == 'x' || l.peekN(1) == 'X') {
		l.advanceN(2)
		for isHexDigit(l.peek()) {
			l.advance()
		}
		return l.token(TokenNumber, start)
	}
	for isDigit(l.peek()) || l.peek() == '_' {
		l.advance()
	}
	if l.peek() == '.' {
		l.advance()
		for isDigit(l.peek()) || l.peek() == '_' {
			l.advance()
		}
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		l.advance()
		if l.peek() == '+' || l.peek() == '-' {
			l.advance()
		}
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	return l.token(TokenNumber, start)
}

func (l *Lexer) scanString(start Position, quote byte) Token {
	l.advance()
	for l.peek() != 0 && l.peek() != quote && l.peek() != '\n' {
		if l.peek() == '\\' {
			l.advance()
		}
		l.advance()
	}
	if l.peek() != quote {
		return l.token(TokenError, start)
	}
	l.advance()
	return l.token(TokenString, start)
}

func (l *Lexer) scanTemplate(start Position) Token {
	l.advance()
	for l.peek() != 0 && l.peek() != '`' {
		switch {
		case l.peek() == '\\':
			l.advanceN(2)
		case l.peek() == '$' && l.peekN(1) == '{':
			l.advanceN(2)
			l.skipEmbeddedExpression()
		default:
			l.advance()
		}
	}
	if l.peek() != '`' {
		return l.token(TokenError, start)
	}
	l.advance()
	return l.token(TokenTemplate, start)
}

func (l *Lexer) skipEmbeddedExpression() {
	depth := 1
	for l.peek() != 0 && depth > 0 {
		switch ch := l.peek(); ch {
		case '{':
			depth++
			l.advance()
		case '}':
			depth--
			l.advance()
		case '"', '\'':
			l.scanString(l.Position(), ch)
		case '`':
			l.scanTemplate(l.Position())
		default:
			l.advance()
		}
	}
}

func (l *Lexer) scanRegexp(start Position) Token {
	l.advance()
	inClass := false
	for l.peek() != 0 && l.peek() != '\n' {
		ch := l.peek()
		if ch == '\\' {
			l.advanceN(2)
			continue
		}
		if ch == '[' {
			inClass = true
		} else if ch == ']' {
			inClass = false
		} else if ch == '/' && !inClass {
			break
		}
		l.advance()
	}
	if l.peek() != '/' {
		return l.token(TokenError, start)
	}
	l.advance()
	for isLetter(l.peek()) {
		l.advance()
	}
	// Regular expressions behave like any other operand.
	return l.token(TokenString, start)
}

var multiCharOperators = []string{
	">>>=", "===", "!==", "**=", "<<=", ">>=", ">>>",
	"&&=", "||=", "??=",
	"==", "!=", "<=", ">=", "&&", "||", "??", "?.", "++", "--",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<", ">>", "**",
}

func (l *Lexer) scanOperator(start Position) Token {
	ch := l.peek()

	switch ch {
	case '(':
		l.advance()
		return l.token(TokenLParen, start)
	case ')':
		l.advance()
		return l.token(TokenRParen, start)
	case '{':
		l.advance()
		return l.token(TokenLBrace, start)
	case '}':
		l.advance()
		return l.token(TokenRBrace, start)
	case '[':
		l.advance()
		return l.token(TokenLBracket, start)
	case ']':
		l.advance()
		return l.token(TokenRBracket, start)
	case ';':
		l.advance()
		return l.token(TokenSemicolon, start)
	case ',':
		l.advance()
		return l.token(TokenComma, start)
	case ':':
		l.advance()
		return l.token(TokenColon, start)
	case '.':
		if l.peekN(1) == '.' && l.peekN(2) == '.' {
			l.advanceN(3)
			return l.token(TokenEllipsis, start)
		}
		l.advance()
		return l.token(TokenDot, start)
	case '=':
		if l.peekN(1) == '>' {
			l.advanceN(2)
			return l.token(TokenArrow, start)
		}
	}

	rest := l.input[l.pos:]
	for _, op := range multiCharOperators {
		if len(rest) >= len(op) && string(rest[:len(op)]) == op {
			l.advanceN(len(op))
			return l.token(TokenOperator, start)
		}
	}

	switch ch {
	case '=':
		l.advance()
		return l.token(TokenAssign, start)
	case '?':
		l.advance()
		return l.token(TokenQuestion, start)
	case '+', '-', '*', '/', '%', '<', '>', '!', '~', '&', '|', '^':
		l.advance()
		return l.token(TokenOperator, start)
	}

	l.advance()
	return l.token(TokenError, start)
}

func (l *Lexer) token(kind TokenKind, start Position) Token {
	end := l.Position()
	return Token{
		Kind:    kind,
		Span:    Span{Start: start, End: end},
		Literal: string(l.input[start.Offset:end.Offset]),
	}
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' || ch == '$' || ch >= 128
}

func isLetterOrDigit(ch byte) bool {
	return isLetter(ch) || isDigit(ch)
}
