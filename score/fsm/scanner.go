package fsm

import (
	"fmt"

	"github.com/dhamidi/tmlex/score/diag"
	"github.com/dhamidi/tmlex/score/token"
)

const maxDepth = 64

// StructureError reports input that an inner context could not scan.
type StructureError struct {
	Offset  int
	Context string
	Message string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("%d: %s in context %s", e.Offset, e.Message, e.Context)
}

// Result is what a scan produced. Index is the offset, relative to the
// scanned input, where scanning stopped.
type Result struct {
	Content  []token.Token
	Index    int
	Warnings diag.List
}

type Option func(*scanner)

// WithBase shifts every reported offset by base, so tokens carry document
// offsets when a fragment of the document is scanned.
func WithBase(base int) Option {
	return func(s *scanner) {
		s.base = base
	}
}

type scanner struct {
	grammar  *Grammar
	src      string
	pos      int
	base     int
	depth    int
	warnings diag.List
}

// Tokenize scans src starting in context. Scanning stops when the outermost
// context pops, when it has no matching rule, or at the end of input. A
// *StructureError is returned together with whatever was scanned before it.
func (g *Grammar) Tokenize(src, context string, opts ...Option) (*Result, error) {
	if _, ok := g.contexts[context]; !ok {
		return nil, fmt.Errorf("tokenize: unknown context %q", context)
	}
	s := &scanner{grammar: g, src: src}
	for _, opt := range opts {
		opt(s)
	}
	content, err := s.scan(context, true)
	return &Result{Content: content, Index: s.pos, Warnings: s.warnings}, err
}

func (s *scanner) errorf(context, format string, args ...any) *StructureError {
	return &StructureError{
		Offset:  s.base + s.pos,
		Context: context,
		Message: fmt.Sprintf(format, args...),
	}
}

func (s *scanner) scan(context string, outermost bool) ([]token.Token, error) {
	s.depth++
	defer func() { s.depth-- }()
	if s.depth > maxDepth {
		return nil, s.errorf(context, "nesting too deep")
	}

	var content []token.Token
	rules := s.grammar.contexts[context]
	for {
		if outermost && s.pos >= len(s.src) {
			return content, nil
		}

		rule, loc := s.match(rules)
		if rule == nil {
			if outermost {
				return content, nil
			}
			if s.pos >= len(s.src) {
				return content, s.errorf(context, "unterminated input")
			}
			return content, s.errorf(context, "unexpected %q", s.excerpt())
		}

		start := s.pos
		end := s.pos + loc[1]
		m := Match{
			Start:  s.base + start,
			End:    s.base + end,
			text:   s.src[start:end],
			locs:   loc,
			offset: start,
			s:      s,
		}

		if rule.Pop {
			if !rule.Peek {
				s.pos = end
			}
			return content, nil
		}

		if !rule.Peek {
			s.pos = end
		}
		var nested []token.Token
		var err error
		if rule.Push != "" {
			nested, err = s.scan(rule.Push, false)
		}
		if err == nil && s.pos == start {
			return content, s.errorf(context, "rule %s matched without consuming input", rule.Name)
		}

		// a failed inner context still yields its wrapping token
		content = s.emit(content, rule, m, nested)
		if err != nil {
			return content, err
		}
	}
}

func (s *scanner) emit(content []token.Token, rule *compiledRule, m Match, nested []token.Token) []token.Token {
	switch {
	case rule.Token != nil:
		m.End = s.base + s.pos
		if tok := rule.Token(m, nested); tok != nil {
			if isZero(tok.Pos()) {
				tok.SetPos(token.Span{Start: m.Start, End: m.End})
			}
			content = append(content, tok)
		}
	case rule.Push != "":
		content = append(content, nested...)
	}
	return content
}

func (s *scanner) match(rules []*compiledRule) (*compiledRule, []int) {
	rest := s.src[s.pos:]
	for _, r := range rules {
		if loc := r.re.FindStringSubmatchIndex(rest); loc != nil {
			return r, loc
		}
	}
	return nil, nil
}

func (s *scanner) excerpt() string {
	rest := s.src[s.pos:]
	if len(rest) > 16 {
		rest = rest[:16]
	}
	return rest
}

func isZero(span token.Span) bool {
	return span.Start == 0 && span.End == 0
}
