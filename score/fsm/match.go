package fsm

import (
	"github.com/dhamidi/tmlex/score/diag"
	"github.com/dhamidi/tmlex/score/token"
)

// Match is the raw match handed to a token producer. Start and End are
// document offsets; End includes input consumed by a pushed context.
type Match struct {
	Start int
	End   int

	text   string
	locs   []int
	offset int
	s      *scanner
}

// Text returns the input matched by the rule's own pattern.
func (m Match) Text() string {
	return m.text
}

// NumGroups returns the number of capture groups in the rule's pattern.
func (m Match) NumGroups() int {
	return len(m.locs)/2 - 1
}

// Has reports whether group i took part in the match.
func (m Match) Has(i int) bool {
	return 2*i+1 < len(m.locs) && m.locs[2*i] >= 0
}

// Group returns the text of capture group i, or "" when it did not match.
func (m Match) Group(i int) string {
	if !m.Has(i) {
		return ""
	}
	return m.s.src[m.offset+m.locs[2*i] : m.offset+m.locs[2*i+1]]
}

// GroupSpan returns the document span of capture group i.
func (m Match) GroupSpan(i int) token.Span {
	if !m.Has(i) {
		return token.Span{Start: m.Start, End: m.Start}
	}
	base := m.s.base + m.offset
	return token.Span{Start: base + m.locs[2*i], End: base + m.locs[2*i+1]}
}

// Sub scans capture group i on its own, starting in context. The whole
// group must be consumed; leftover input is a *StructureError.
func (m Match) Sub(i int, context string) ([]token.Token, error) {
	span := m.GroupSpan(i)
	res, err := m.s.grammar.Tokenize(m.Group(i), context, WithBase(span.Start))
	if res == nil {
		return nil, err
	}
	m.s.warnings.Add(res.Warnings...)
	if err != nil {
		return res.Content, err
	}
	if res.Index < span.End-span.Start {
		return res.Content, &StructureError{
			Offset:  span.Start + res.Index,
			Context: context,
			Message: "trailing input",
		}
	}
	return res.Content, nil
}

// Warn records a warning. A warning without a position gets the span of the
// match.
func (m Match) Warn(d diag.Diagnostic) {
	if !d.HasPos() {
		d = d.At(m.Start, m.End)
	}
	m.s.warnings.Add(d)
}
