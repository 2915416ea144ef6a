package hostlang

import "fmt"

type Position struct {
	File   string
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	if p.File != "" {
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

type Span struct {
	Start Position
	End   Position
}

type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenError
	TokenWhitespace
	TokenComment
	TokenLineComment

	// Literals
	TokenIdent
	TokenNumber
	TokenString
	TokenTemplate

	// Keywords
	TokenBreak
	TokenCase
	TokenCatch
	TokenClass
	TokenConst
	TokenContinue
	TokenDefault
	TokenDo
	TokenElse
	TokenFinally
	TokenFor
	TokenFunction
	TokenIf
	TokenLet
	TokenReturn
	TokenSwitch
	TokenThrow
	TokenTry
	TokenVar
	TokenWhile

	// Punctuation
	TokenLParen
	TokenRParen
	TokenLBrace
	TokenRBrace
	TokenLBracket
	TokenRBracket
	TokenSemicolon
	TokenComma
	TokenDot
	TokenEllipsis
	TokenColon
	TokenQuestion
	TokenAssign
	TokenArrow
	TokenOperator
)

var tokenKindNames = map[TokenKind]string{
	TokenEOF:         "EOF",
	TokenError:       "Error",
	TokenWhitespace:  "Whitespace",
	TokenComment:     "Comment",
	TokenLineComment: "LineComment",
	TokenIdent:       "Identifier",
	TokenNumber:      "Number",
	TokenString:      "String",
	TokenTemplate:    "Template",
	TokenBreak:       "break",
	TokenCase:        "case",
	TokenCatch:       "catch",
	TokenClass:       "class",
	TokenConst:       "const",
	TokenContinue:    "continue",
	TokenDefault:     "default",
	TokenDo:          "do",
	TokenElse:        "else",
	TokenFinally:     "finally",
	TokenFor:         "for",
	TokenFunction:    "function",
	TokenIf:          "if",
	TokenLet:         "let",
	TokenReturn:      "return",
	TokenSwitch:      "switch",
	TokenThrow:       "throw",
	TokenTry:         "try",
	TokenVar:         "var",
	TokenWhile:       "while",
	TokenLParen:      "(",
	TokenRParen:      ")",
	TokenLBrace:      "{",
	TokenRBrace:      "}",
	TokenLBracket:    "[",
	TokenRBracket:    "]",
	TokenSemicolon:   ";",
	TokenComma:       ",",
	TokenDot:         ".",
	TokenEllipsis:    "...",
	TokenColon:       ":",
	TokenQuestion:    "?",
	TokenAssign:      "=",
	TokenArrow:       "=>",
	TokenOperator:    "Operator",
}

func (k TokenKind) String() string {
	if name, ok := tokenKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

type Token struct {
	Kind    TokenKind
	Span    Span
	Literal string
	// Newline reports whether a line break separates this token from the previous one.
	Newline bool
}

var keywords = map[string]TokenKind{
	"break":    TokenBreak,
	"case":     TokenCase,
	"catch":    TokenCatch,
	"class":    TokenClass,
	"const":    TokenConst,
	"continue": TokenContinue,
	"default":  TokenDefault,
	"do":       TokenDo,
	"else":     TokenElse,
	"finally":  TokenFinally,
	"for":      TokenFor,
	"function": TokenFunction,
	"if":       TokenIf,
	"let":      TokenLet,
	"return":   TokenReturn,
	"switch":   TokenSwitch,
	"throw":    TokenThrow,
	"try":      TokenTry,
	"var":      TokenVar,
	"while":    TokenWhile,
}

func LookupKeyword(ident string) TokenKind {
	if kind, ok := keywords[ident]; ok {
		return kind
	}
	return TokenIdent
}
