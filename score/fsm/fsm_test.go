package fsm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/tmlex/score/diag"
	"github.com/dhamidi/tmlex/score/token"
)

func number(m Match) token.Token {
	return &token.Number{Content: m.Text()}
}

func testGrammar(t *testing.T) *Grammar {
	t.Helper()
	g, err := NewBuilder().
		Provide("items",
			Skip(`\s+`),
			Item("Number", `\d+`, number),
			Rule{
				Name:    "group",
				Pattern: `\{`,
				Push:    "group",
				Token: func(_ Match, content []token.Token) token.Token {
					return &token.Subtrack{Repeat: 1, Content: content}
				},
			},
		).
		Define("main", Include("items")).
		Define("group", PopOn(`\}`, false), Include("items")).
		Compile()
	require.NoError(t, err)
	return g
}

func TestTokenizeNested(t *testing.T) {
	res, err := testGrammar(t).Tokenize("1 {2 3} 4", "main")
	require.NoError(t, err)
	require.Len(t, res.Content, 3)
	assert.Equal(t, 9, res.Index)

	assert.Equal(t, token.Span{Start: 0, End: 1}, res.Content[0].Pos())

	sub, ok := res.Content[1].(*token.Subtrack)
	require.True(t, ok)
	assert.Equal(t, token.Span{Start: 2, End: 7}, sub.Pos())
	require.Len(t, sub.Content, 2)
	assert.Equal(t, token.Span{Start: 3, End: 4}, sub.Content[0].Pos())
	assert.Equal(t, token.Span{Start: 5, End: 6}, sub.Content[1].Pos())

	assert.Equal(t, token.Span{Start: 8, End: 9}, res.Content[2].Pos())
}

func TestTokenizeOuterStopsAtUnknownInput(t *testing.T) {
	res, err := testGrammar(t).Tokenize("1 2 ?x", "main")
	require.NoError(t, err)
	assert.Len(t, res.Content, 2)
	assert.Equal(t, 4, res.Index)
}

func TestTokenizeInnerErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		offset  int
		message string
		inner   int
	}{
		{"no rule matches", "{1 ?}", 3, `unexpected "?}"`, 1},
		{"unterminated", "{1 2", 4, "unterminated input", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := testGrammar(t).Tokenize(tt.src, "main", WithBase(10))
			var structErr *StructureError
			require.True(t, errors.As(err, &structErr), "got %v", err)
			assert.Equal(t, tt.offset+10, structErr.Offset)
			assert.Equal(t, "group", structErr.Context)
			assert.Equal(t, tt.message, structErr.Message)
			require.NotNil(t, res)
			require.Len(t, res.Content, 1)
			sub, ok := res.Content[0].(*token.Subtrack)
			require.True(t, ok, "the unfinished group keeps its wrapper")
			assert.Len(t, sub.Content, tt.inner, "tokens scanned before the error are kept")
			assert.Equal(t, token.Span{Start: 10, End: tt.offset + 10}, sub.Pos())
		})
	}
}

func TestRuleOrderDecidesTies(t *testing.T) {
	g, err := NewBuilder().Define("main",
		Item("short", `ab`, func(Match) token.Token { return &token.String{Content: "short"} }),
		Item("long", `abc`, func(Match) token.Token { return &token.String{Content: "long"} }),
	).Compile()
	require.NoError(t, err)

	res, err := g.Tokenize("abc", "main")
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	assert.Equal(t, "short", res.Content[0].(*token.String).Content)
	assert.Equal(t, 2, res.Index)
}

func TestPeekPopLeavesInput(t *testing.T) {
	g, err := NewBuilder().
		Define("main",
			Skip(`>`),
			Rule{Name: "list", Pattern: `<`, Push: "list"},
		).
		Define("list",
			PopOn(`>`, true),
			Item("Number", `\d+`, number),
			Skip(`,`),
		).
		Compile()
	require.NoError(t, err)

	res, err := g.Tokenize("<1,2>", "main")
	require.NoError(t, err)
	assert.Len(t, res.Content, 2, "a push without a producer splices its content")
	assert.Equal(t, 5, res.Index)
}

func TestEndOfInputPop(t *testing.T) {
	g, err := NewBuilder().
		Define("main", Rule{Name: "word", Pattern: `[a-z]+`, Push: "rest"}).
		Define("rest", PopOn(`$`, true), Item("Number", `\d+`, number)).
		Compile()
	require.NoError(t, err)

	res, err := g.Tokenize("ab12", "main")
	require.NoError(t, err)
	assert.Len(t, res.Content, 1)
	assert.Equal(t, 4, res.Index)
}

func TestZeroWidthMatchIsStructural(t *testing.T) {
	g, err := NewBuilder().Define("main", Skip(`x*`)).Compile()
	require.NoError(t, err)

	_, err = g.Tokenize("y", "main")
	var structErr *StructureError
	require.True(t, errors.As(err, &structErr))
	assert.Equal(t, 0, structErr.Offset)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		builder *Builder
	}{
		{"unknown include", NewBuilder().Define("main", Include("alias"))},
		{"unknown push", NewBuilder().Define("main", Rule{Pattern: `a`, Push: "nowhere"})},
		{"bad pattern", NewBuilder().Define("main", Skip(`(`))},
		{"recursive include", NewBuilder().Define("main", Include("a")).Provide("a", Include("a"))},
		{"pop and push", NewBuilder().Define("main", Rule{Pattern: `a`, Pop: true, Push: "main"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Compile()
			assert.Error(t, err)
		})
	}
}

func TestEmptyIncludeIsAllowed(t *testing.T) {
	g, err := NewBuilder().Provide("alias").Define("main", Include("alias"), Skip(`a`)).Compile()
	require.NoError(t, err)
	assert.Len(t, g.Rules("main"), 1)
	assert.Equal(t, []string{"main"}, g.Contexts())
}

func TestMatchSubAndWarn(t *testing.T) {
	b := NewBuilder().
		Define("main",
			Skip(`\s+`),
			Rule{
				Name:    "call",
				Pattern: `f\(([^)]*)\)`,
				Token: func(m Match, _ []token.Token) token.Token {
					args, err := m.Sub(1, "args")
					if err != nil {
						m.Warn(diag.Warningf(diag.Undefined, "%v", err))
					}
					return &token.Function{Name: "f", Order: -1, Args: args}
				},
			},
		).
		Define("args", Skip(`\s+`), Item("Number", `\d+`, number))
	g, err := b.Compile()
	require.NoError(t, err)

	res, err := g.Tokenize(" f(1 2) f(x)", "main", WithBase(100))
	require.NoError(t, err)
	require.Len(t, res.Content, 2)

	fn := res.Content[0].(*token.Function)
	require.Len(t, fn.Args, 2)
	assert.Equal(t, token.Span{Start: 103, End: 104}, fn.Args[0].Pos())
	assert.Equal(t, token.Span{Start: 101, End: 107}, fn.Pos())

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, diag.Undefined, res.Warnings[0].Code)
	assert.Equal(t, 108, res.Warnings[0].Start)
}

func TestIsSubtrack(t *testing.T) {
	tests := []struct {
		name string
		tok  token.Token
		want bool
	}{
		{"note", &token.Note{}, true},
		{"subtrack", &token.Subtrack{}, true},
		{"bar line", &token.BarLine{}, false},
		{"setting call", &token.Function{Args: []token.Token{&token.Number{Content: "120"}}}, false},
		{"call with missing argument", &token.Function{Args: []token.Token{nil}}, false},
		{"call with subtrack", &token.Function{Args: []token.Token{&token.Number{}, &token.Subtrack{}}}, true},
		{"nested call", &token.Function{Args: []token.Token{
			&token.Function{Args: []token.Token{&token.Subtrack{}}},
		}}, true},
		{"local indicator", &token.LocalIndicator{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSubtrack(tt.tok))
		})
	}
}
