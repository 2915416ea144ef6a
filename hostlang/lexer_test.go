package hostlang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexAll(t *testing.T, input string) []Token {
	t.Helper()
	l := NewLexer([]byte(input), "test.js")
	var tokens []Token
	for {
		tok := l.NextToken()
		if tok.Kind == TokenWhitespace {
			continue
		}
		tokens = append(tokens, tok)
		if tok.Kind == TokenEOF {
			return tokens
		}
		require.Less(t, len(tokens), 1000, "lexer did not terminate")
	}
}

func TestLexerKeywords(t *testing.T) {
	tests := []struct {
		input string
		kind  TokenKind
	}{
		{"function", TokenFunction},
		{"return", TokenReturn},
		{"if", TokenIf},
		{"else", TokenElse},
		{"switch", TokenSwitch},
		{"throw", TokenThrow},
		{"try", TokenTry},
		{"catch", TokenCatch},
		{"finally", TokenFinally},
		{"const", TokenConst},
		{"returnValue", TokenIdent},
		{"$scope", TokenIdent},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok := NewLexer([]byte(tt.input), "test.js").NextToken()
			assert.Equal(t, tt.kind, tok.Kind)
			assert.Equal(t, tt.input, tok.Literal)
		})
	}
}

func TestLexerOperators(t *testing.T) {
	tokens := lexAll(t, "a === b => c ... d ?. e")
	kinds := []TokenKind{
		TokenIdent, TokenOperator, TokenIdent, TokenArrow, TokenIdent,
		TokenEllipsis, TokenIdent, TokenOperator, TokenIdent, TokenEOF,
	}
	require.Len(t, tokens, len(kinds))
	for i, kind := range kinds {
		assert.Equal(t, kind, tokens[i].Kind, "token %d (%q)", i, tokens[i].Literal)
	}
	assert.Equal(t, "===", tokens[1].Literal)
}

func TestLexerStringsAndTemplates(t *testing.T) {
	tokens := lexAll(t, "'a}' \"b{\" `c ${ {x: 1} } d`")
	require.Len(t, tokens, 4)
	assert.Equal(t, TokenString, tokens[0].Kind)
	assert.Equal(t, TokenString, tokens[1].Kind)
	assert.Equal(t, TokenTemplate, tokens[2].Kind)
	assert.Equal(t, "`c ${ {x: 1} } d`", tokens[2].Literal)
}

func TestLexerUnterminatedString(t *testing.T) {
	tokens := lexAll(t, "'abc\n")
	assert.Equal(t, TokenError, tokens[0].Kind)
}

func TestLexerRegexpVersusDivision(t *testing.T) {
	tokens := lexAll(t, "x = a / b; y = /[/}]+/g")
	var kinds []TokenKind
	for _, tok := range tokens {
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []TokenKind{
		TokenIdent, TokenAssign, TokenIdent, TokenOperator, TokenIdent, TokenSemicolon,
		TokenIdent, TokenAssign, TokenString, TokenEOF,
	}, kinds)
}

func TestLexerComments(t *testing.T) {
	tokens := lexAll(t, "/** doc */\n// line\nfoo")
	require.Len(t, tokens, 4)
	assert.Equal(t, TokenComment, tokens[0].Kind)
	assert.Equal(t, 0, tokens[0].Span.Start.Offset)
	assert.Equal(t, 10, tokens[0].Span.End.Offset)
	assert.Equal(t, TokenLineComment, tokens[1].Kind)
	assert.Equal(t, TokenIdent, tokens[2].Kind)
	assert.True(t, tokens[2].Newline)
	assert.Equal(t, 3, tokens[2].Span.Start.Line)
}

func TestLexerNewlineFlag(t *testing.T) {
	tokens := lexAll(t, "a b\nc")
	assert.False(t, tokens[1].Newline)
	assert.True(t, tokens[2].Newline)
}
