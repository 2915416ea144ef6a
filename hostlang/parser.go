// Package hostlang parses the JavaScript-like function dialect that notation
// libraries use to declare functions. Statements are parsed structurally;
// expressions are kept as opaque, balanced token runs.
package hostlang

import (
	"fmt"
	"io"
)

type Option func(*Parser)

func WithFile(path string) Option {
	return func(p *Parser) {
		p.file = path
	}
}

// WithComments records block and line comments; see Parser.Comments.
func WithComments() Option {
	return func(p *Parser) {
		p.includeComments = true
	}
}

// SyntaxError reports the first malformed construct found in the input.
type SyntaxError struct {
	Pos     Position
	Message string
	Got     *Token
}

func (e *SyntaxError) Error() string {
	if e.Got != nil && e.Got.Kind != TokenEOF {
		return fmt.Sprintf("%s: %s (got %q)", e.Pos, e.Message, e.Got.Literal)
	}
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

type bailout struct{}

type Parser struct {
	file            string
	includeComments bool
	reader          io.Reader
	input           []byte
	lexer           *Lexer
	tokens          []Token
	comments        []Token
	pos             int
	lastEnd         Position
	err             *SyntaxError
}

func ParseProgram(r io.Reader, opts ...Option) *Parser {
	p := &Parser{reader: r}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Parser) Comments() []Token {
	return p.comments
}

func (p *Parser) readAll() error {
	if p.input != nil {
		return nil
	}
	data, err := io.ReadAll(p.reader)
	if err != nil {
		return err
	}
	p.input = data
	return nil
}

// Finish parses the whole input and returns the Program node. The error is a
// *SyntaxError when the input is malformed.
func (p *Parser) Finish() (node *Node, err error) {
	if err := p.readAll(); err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	p.lexer = NewLexer(p.input, p.file)
	p.tokens = nil
	p.comments = nil
	p.pos = 0
	p.err = nil
	p.tokenize()

	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			node, err = nil, p.err
		}
	}()
	return p.parseProgram(), nil
}

func (p *Parser) tokenize() {
	for {
		tok := p.lexer.NextToken()
		if tok.Kind == TokenWhitespace {
			continue
		}
		if tok.Kind == TokenComment || tok.Kind == TokenLineComment {
			if p.includeComments {
				p.comments = append(p.comments, tok)
			}
			continue
		}
		p.tokens = append(p.tokens, tok)
		if tok.Kind == TokenEOF {
			break
		}
	}
}

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekN(n int) Token {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

func (p *Parser) advance() Token {
	tok := p.peek()
	if tok.Kind == TokenError {
		p.fail("invalid token")
	}
	if p.pos < len(p.tokens) {
		p.pos++
	}
	p.lastEnd = tok.Span.End
	return tok
}

func (p *Parser) check(kind TokenKind) bool {
	return p.peek().Kind == kind
}

func (p *Parser) expect(kind TokenKind) Token {
	if !p.check(kind) {
		p.fail("expected " + kind.String())
	}
	return p.advance()
}

func (p *Parser) fail(message string) {
	tok := p.peek()
	p.err = &SyntaxError{Pos: tok.Span.Start, Message: message, Got: &tok}
	panic(bailout{})
}

func (p *Parser) startNode(kind NodeKind) *Node {
	return &Node{
		Kind: kind,
		Span: Span{Start: p.peek().Span.Start},
	}
}

func (p *Parser) finishNode(n *Node) *Node {
	n.Span.End = p.lastEnd
	return n
}

func (p *Parser) parseProgram() *Node {
	program := p.startNode(KindProgram)
	for !p.check(TokenEOF) {
		program.AddChild(p.parseStatement())
	}
	return p.finishNode(program)
}

func (p *Parser) parseStatement() *Node {
	switch p.peek().Kind {
	case TokenLBrace:
		return p.parseBlock()
	case TokenSemicolon:
		node := p.startNode(KindEmptyStmt)
		p.advance()
		return p.finishNode(node)
	case TokenFunction:
		return p.parseFunctionDecl()
	case TokenClass:
		return p.parseClassDecl()
	case TokenIf:
		return p.parseIf()
	case TokenSwitch:
		return p.parseSwitch()
	case TokenReturn:
		return p.parseReturn()
	case TokenThrow:
		node := p.startNode(KindThrowStmt)
		p.advance()
		if p.peek().Newline {
			p.fail("illegal newline after throw")
		}
		node.AddChild(p.parseExpression(TokenSemicolon))
		p.consumeSemicolon()
		return p.finishNode(node)
	case TokenTry:
		return p.parseTry()
	case TokenFor:
		node := p.startNode(KindForStmt)
		p.advance()
		node.AddChild(p.parseParenExpr())
		node.AddChild(p.parseStatement())
		return p.finishNode(node)
	case TokenWhile:
		node := p.startNode(KindWhileStmt)
		p.advance()
		node.AddChild(p.parseParenExpr())
		node.AddChild(p.parseStatement())
		return p.finishNode(node)
	case TokenDo:
		node := p.startNode(KindDoStmt)
		p.advance()
		body := p.parseStatement()
		p.expect(TokenWhile)
		node.AddChild(p.parseParenExpr())
		node.AddChild(body)
		if p.check(TokenSemicolon) {
			p.advance()
		}
		return p.finishNode(node)
	case TokenVar, TokenLet, TokenConst:
		node := p.startNode(KindVarDecl)
		tok := p.advance()
		node.Token = &tok
		node.AddChild(p.parseExpression(TokenSemicolon))
		p.consumeSemicolon()
		return p.finishNode(node)
	case TokenBreak, TokenContinue:
		kind := KindBreakStmt
		if p.check(TokenContinue) {
			kind = KindContinueStmt
		}
		node := p.startNode(kind)
		p.advance()
		if p.check(TokenIdent) && !p.peek().Newline {
			node.AddChild(p.parseIdentifier())
		}
		p.consumeSemicolon()
		return p.finishNode(node)
	case TokenIdent:
		if p.peek().Literal == "async" && p.peekN(1).Kind == TokenFunction && !p.peekN(1).Newline {
			p.advance()
			return p.parseFunctionDecl()
		}
		if p.peekN(1).Kind == TokenColon {
			node := p.startNode(KindLabeledStmt)
			node.AddChild(p.parseIdentifier())
			p.advance()
			node.AddChild(p.parseStatement())
			return p.finishNode(node)
		}
	}

	node := p.startNode(KindExprStmt)
	node.AddChild(p.parseExpression(TokenSemicolon))
	p.consumeSemicolon()
	return p.finishNode(node)
}

func (p *Parser) consumeSemicolon() {
	tok := p.peek()
	switch {
	case tok.Kind == TokenSemicolon:
		p.advance()
	case tok.Kind == TokenRBrace, tok.Kind == TokenEOF, tok.Newline:
	default:
		p.fail("expected ;")
	}
}

func (p *Parser) parseBlock() *Node {
	node := p.startNode(KindBlock)
	p.expect(TokenLBrace)
	for !p.check(TokenRBrace) {
		if p.check(TokenEOF) {
			p.fail("unterminated block")
		}
		node.AddChild(p.parseStatement())
	}
	p.advance()
	return p.finishNode(node)
}

func (p *Parser) parseIdentifier() *Node {
	node := p.startNode(KindIdentifier)
	tok := p.expect(TokenIdent)
	node.Token = &tok
	return p.finishNode(node)
}

func (p *Parser) parseFunctionDecl() *Node {
	node := p.startNode(KindFunctionDecl)
	p.expect(TokenFunction)
	if p.check(TokenOperator) && p.peek().Literal == "*" {
		p.advance()
	}
	node.AddChild(p.parseIdentifier())
	node.AddChild(p.parseParameters())
	node.AddChild(p.parseBlock())
	return p.finishNode(node)
}

func (p *Parser) parseParameters() *Node {
	node := p.startNode(KindParameters)
	p.expect(TokenLParen)
	for !p.check(TokenRParen) {
		node.AddChild(p.parseParameter())
		if !p.check(TokenComma) {
			break
		}
		p.advance()
	}
	p.expect(TokenRParen)
	return p.finishNode(node)
}

func (p *Parser) parseParameter() *Node {
	switch p.peek().Kind {
	case TokenEllipsis:
		node := p.startNode(KindRestParameter)
		p.advance()
		if p.check(TokenIdent) {
			node.AddChild(p.parseIdentifier())
		} else {
			node.AddChild(p.parseBalanced())
		}
		return p.finishNode(node)
	case TokenLBrace, TokenLBracket:
		node := p.startNode(KindPatternParameter)
		node.AddChild(p.parseBalanced())
		if p.check(TokenAssign) {
			p.advance()
			node.AddChild(p.parseExpression(TokenComma))
		}
		return p.finishNode(node)
	}

	start := p.startNode(KindParameter)
	id := p.parseIdentifier()
	if !p.check(TokenAssign) {
		start.AddChild(id)
		return p.finishNode(start)
	}
	start.Kind = KindDefaultParameter
	start.AddChild(id)
	p.advance()
	start.AddChild(p.parseExpression(TokenComma))
	return p.finishNode(start)
}

func (p *Parser) parseClassDecl() *Node {
	node := p.startNode(KindClassDecl)
	p.expect(TokenClass)
	if p.check(TokenIdent) {
		node.AddChild(p.parseIdentifier())
	}
	for !p.check(TokenLBrace) {
		if p.check(TokenEOF) {
			p.fail("expected class body")
		}
		p.advance()
	}
	p.parseBalanced()
	return p.finishNode(node)
}

func (p *Parser) parseIf() *Node {
	node := p.startNode(KindIfStmt)
	p.expect(TokenIf)
	node.AddChild(p.parseParenExpr())
	node.AddChild(p.parseStatement())
	if p.check(TokenElse) {
		p.advance()
		node.AddChild(p.parseStatement())
	}
	return p.finishNode(node)
}

func (p *Parser) parseSwitch() *Node {
	node := p.startNode(KindSwitchStmt)
	p.expect(TokenSwitch)
	node.AddChild(p.parseParenExpr())
	p.expect(TokenLBrace)
	for !p.check(TokenRBrace) {
		c := p.startNode(KindSwitchCase)
		switch p.peek().Kind {
		case TokenCase:
			p.advance()
			c.AddChild(p.parseExpression(TokenColon))
		case TokenDefault:
			p.advance()
		default:
			p.fail("expected case or default")
		}
		p.expect(TokenColon)
		for !p.check(TokenCase) && !p.check(TokenDefault) && !p.check(TokenRBrace) {
			if p.check(TokenEOF) {
				p.fail("unterminated switch")
			}
			c.AddChild(p.parseStatement())
		}
		node.AddChild(p.finishNode(c))
	}
	p.advance()
	return p.finishNode(node)
}

func (p *Parser) parseReturn() *Node {
	node := p.startNode(KindReturnStmt)
	p.expect(TokenReturn)
	next := p.peek()
	switch {
	case next.Kind == TokenSemicolon, next.Kind == TokenRBrace, next.Kind == TokenEOF, next.Newline:
	default:
		node.AddChild(p.parseExpression(TokenSemicolon))
	}
	p.consumeSemicolon()
	return p.finishNode(node)
}

func (p *Parser) parseTry() *Node {
	node := p.startNode(KindTryStmt)
	p.expect(TokenTry)
	node.AddChild(p.parseBlock())
	if p.check(TokenCatch) {
		c := p.startNode(KindCatchClause)
		p.advance()
		if p.check(TokenLParen) {
			p.advance()
			if p.check(TokenIdent) {
				c.AddChild(p.parseIdentifier())
			} else {
				p.parseBalanced()
			}
			p.expect(TokenRParen)
		}
		c.AddChild(p.parseBlock())
		node.AddChild(p.finishNode(c))
	}
	if p.check(TokenFinally) {
		f := p.startNode(KindFinallyClause)
		p.advance()
		f.AddChild(p.parseBlock())
		node.AddChild(p.finishNode(f))
	}
	if len(node.Children) == 1 {
		p.fail("missing catch or finally after try")
	}
	return p.finishNode(node)
}

// parseParenExpr consumes a parenthesized head such as an if test or a for
// clause, semicolons included.
func (p *Parser) parseParenExpr() *Node {
	if !p.check(TokenLParen) {
		p.fail("expected (")
	}
	return p.parseBalanced()
}

// parseBalanced consumes one bracketed group, including its delimiters.
func (p *Parser) parseBalanced() *Node {
	node := p.startNode(KindExpr)
	var stack []TokenKind
	for {
		tok := p.peek()
		switch tok.Kind {
		case TokenLParen:
			stack = append(stack, TokenRParen)
		case TokenLBracket:
			stack = append(stack, TokenRBracket)
		case TokenLBrace:
			stack = append(stack, TokenRBrace)
		case TokenRParen, TokenRBracket, TokenRBrace:
			if len(stack) == 0 || stack[len(stack)-1] != tok.Kind {
				p.fail("mismatched " + tok.Kind.String())
			}
			stack = stack[:len(stack)-1]
		case TokenEOF:
			p.fail("unexpected end of input")
		}
		p.advance()
		if len(stack) == 0 {
			return p.finishNode(node)
		}
	}
}

// parseExpression consumes an opaque expression up to stop, an unbalanced
// closing bracket, or a line break that ends the statement.
func (p *Parser) parseExpression(stop TokenKind) *Node {
	node := p.startNode(KindExpr)
	var stack []TokenKind
	var prev *Token
	for {
		tok := p.peek()
		if len(stack) == 0 {
			if tok.Kind == stop || tok.Kind == TokenSemicolon || tok.Kind == TokenEOF {
				break
			}
			if tok.Kind == TokenRParen || tok.Kind == TokenRBracket || tok.Kind == TokenRBrace {
				break
			}
			if prev != nil && tok.Newline && !continues(*prev, tok) {
				break
			}
		}
		switch tok.Kind {
		case TokenLParen:
			stack = append(stack, TokenRParen)
		case TokenLBracket:
			stack = append(stack, TokenRBracket)
		case TokenLBrace:
			stack = append(stack, TokenRBrace)
		case TokenRParen, TokenRBracket, TokenRBrace:
			if stack[len(stack)-1] != tok.Kind {
				p.fail("mismatched " + tok.Kind.String())
			}
			stack = stack[:len(stack)-1]
		case TokenEOF:
			p.fail("unexpected end of input")
		}
		t := p.advance()
		prev = &t
	}
	if prev == nil {
		p.fail("expected expression")
	}
	return p.finishNode(node)
}

// continues reports whether next carries on the expression ending in prev
// across a line break.
func continues(prev, next Token) bool {
	switch prev.Kind {
	case TokenOperator, TokenAssign, TokenComma, TokenDot, TokenQuestion,
		TokenColon, TokenArrow, TokenEllipsis:
		if prev.Literal != "++" && prev.Literal != "--" {
			return true
		}
	}
	switch next.Kind {
	case TokenDot, TokenQuestion, TokenColon, TokenAssign, TokenArrow, TokenComma:
		return true
	case TokenOperator:
		switch next.Literal {
		case "++", "--", "!", "~":
			return false
		}
		return true
	}
	return false
}
