package lsp

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Position is a zero-based line and UTF-16 column, as editors count them.
type Position struct {
	Line      int
	Character int
}

// lineIndex maps byte offsets of a normalized document to positions.
type lineIndex struct {
	text   string
	starts []int
}

func newLineIndex(text string) lineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return lineIndex{text: text, starts: starts}
}

func (ix lineIndex) line(n int) string {
	if n < 0 || n >= len(ix.starts) {
		return ""
	}
	end := len(ix.text)
	if n+1 < len(ix.starts) {
		end = ix.starts[n+1] - 1
	}
	return ix.text[ix.starts[n]:end]
}

// Position converts a byte offset. Offsets past the end clamp to it.
func (ix lineIndex) Position(offset int) Position {
	offset = max(0, min(offset, len(ix.text)))
	line := 0
	for line+1 < len(ix.starts) && ix.starts[line+1] <= offset {
		line++
	}
	return Position{Line: line, Character: utf16Len(ix.text[ix.starts[line]:offset])}
}

// Offset converts a position. Characters past the end of the line clamp to
// the line end.
func (ix lineIndex) Offset(pos Position) int {
	if pos.Line >= len(ix.starts) {
		return len(ix.text)
	}
	if pos.Line < 0 {
		return 0
	}
	start := ix.starts[pos.Line]
	text := ix.line(pos.Line)
	units := 0
	for i, r := range text {
		if units >= pos.Character {
			return start + i
		}
		units += utf16.RuneLen(r)
	}
	return start + len(text)
}

func utf16Len(s string) int {
	n := 0
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		n += utf16.RuneLen(r)
		s = s[size:]
	}
	return n
}

// normalize applies the same line-ending and BOM handling as the tokenizer
// so offsets in tokenized documents match the indexed text.
func normalize(text string) string {
	text = strings.TrimPrefix(text, "\ufeff")
	return strings.ReplaceAll(text, "\r\n", "\n")
}
