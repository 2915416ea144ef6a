package docparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	doc := Parse(`*
	 * Repeats a subtrack.
	 * @param {number|string} times how often
	 * @param {subtrack} body
	 * @param {} broken
	 * @param missing braces
	 `)
	require.NotNil(t, doc)
	assert.Equal(t, map[string]string{
		"times": "number|string",
		"body":  "subtrack",
	}, doc.Params)
	assert.Equal(t, []string{"number", "string"}, doc.Types("times"))
	assert.Nil(t, doc.Types("broken"))
}

func TestParseAliases(t *testing.T) {
	doc := Parse("*\n * @alias ${1}~\n * @alias   1; <${1}>  \n * @alias\n")
	require.NotNil(t, doc)
	assert.Equal(t, []string{"${1}~", "1; <${1}>", ""}, doc.Aliases)
}

func TestParseRejectsOtherShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"plain block comment", " just a note "},
		{"one line without marker", "*\n * @param {number} a\n not starred\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, Parse(tt.body))
		})
	}
}

func TestParseBlankLinesIgnored(t *testing.T) {
	doc := Parse("\n\n   * @param {any} x\r\n\n")
	require.NotNil(t, doc)
	assert.Equal(t, "any", doc.Params["x"])
}

func TestParseComment(t *testing.T) {
	doc := ParseComment("/**\n * @alias ${1:subtrack}!\n */")
	require.NotNil(t, doc)
	assert.Equal(t, []string{"${1:subtrack}!"}, doc.Aliases)
	assert.Nil(t, ParseComment("/* nope */"))
}
