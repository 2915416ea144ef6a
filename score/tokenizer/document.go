package tokenizer

import (
	"strings"

	"github.com/dhamidi/tmlex/score/diag"
	"github.com/dhamidi/tmlex/score/syntax"
	"github.com/dhamidi/tmlex/score/token"
)

// Document is the tokenized form of a score.
type Document struct {
	Comment  []string
	Library  []LibraryEntry
	Sections []*Section
	Errors   diag.List
	Warnings diag.List
	Index    Index
	Scoping  Scoping
}

// LibraryEntry records one directive that contributed to the document's
// library.
type LibraryEntry struct {
	Type string
	Head string
	Code []string
}

type Section struct {
	Comment  []string
	Prolog   []token.Token
	Settings []Setting
	Tracks   []*Track
	Epilog   []token.Token
}

// Setting holds the spec tokens of a track without musical content. Index
// is the track's position within its section.
type Setting struct {
	Index int
	Spec  []token.Token
}

type Track struct {
	Play        bool
	Name        string
	Index       int
	Instruments []*syntax.Instrument
	Degrees     []string
	Content     []token.Token
	Warnings    diag.List
	Span        token.Span
}

// Index locates sections and tracks. Offsets in Sections are relative to
// Base, the offset where the score body starts after the directives.
type Index struct {
	Base     int
	Sections []SectionIndex
}

type SectionIndex struct {
	Start  int
	Tracks []int
}

// Scoping collects document spans for editor scope queries: instrument
// declarations, function invocations and include arguments.
type Scoping struct {
	Inst []token.Span
	Func []token.Span
	Pack []token.Span
}

// Argument returns the text following the directive keyword in Head.
func (e LibraryEntry) Argument() string {
	m := directiveHead.FindStringIndex(e.Head)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(e.Head[m[1]:])
}
