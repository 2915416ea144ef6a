// Package token defines the tokens produced when tokenizing a score. Each
// token kind is its own type; Token is the closed set of them.
package token

// Span is a half-open byte range in the normalized document source.
type Span struct {
	Start int
	End   int
}

func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset < s.End
}

// Token is implemented by all score tokens.
type Token interface {
	Type() string
	Pos() Span
	SetPos(Span)
}

// Base carries the source span shared by every token.
type Base struct {
	Span Span
}

func (b *Base) Pos() Span     { return b.Span }
func (b *Base) SetPos(s Span) { b.Span = s }

// Space is a run of whitespace kept where layout matters.
type Space struct {
	Base
	Content string
}

func (*Space) Type() string { return "Space" }

// Undefined is input no rule recognized.
type Undefined struct {
	Base
	Content string
}

func (*Undefined) Type() string { return "Undefined" }

// LocalIndicator separates prolog or epilog content from track settings.
type LocalIndicator struct {
	Base
}

func (*LocalIndicator) Type() string { return "LocalIndicator" }

type BarLine struct {
	Base
	Left    bool // repeat begins, as in "|:"
	Right   bool // repeat ends, as in ":|"
	Content string
}

func (*BarLine) Type() string { return "BarLine" }

type Tie struct {
	Base
}

func (*Tie) Type() string { return "Tie" }

type Tuplet struct {
	Base
	Radix int
}

func (*Tuplet) Type() string { return "Tuplet" }

// Pitch is one scale degree with its operators.
type Pitch struct {
	Base
	Degree string
	PitOp  string
	Chord  string
	VolOp  string
}

func (*Pitch) Type() string { return "Pitch" }

// Note is a single pitch or a bracketed group of simultaneous pitches.
type Note struct {
	Base
	Pitches []*Pitch
	Bracket bool
	DurOp   string
	Stac    string
}

func (*Note) Type() string { return "Note" }

type Subtrack struct {
	Base
	Repeat  int
	Content []Token
}

func (*Subtrack) Type() string { return "Subtrack" }

type Number struct {
	Base
	Content string
}

func (*Number) Type() string { return "Number" }

type String struct {
	Base
	Content string
}

func (*String) Type() string { return "String" }

// Function is an explicit call such as Tempo(120) or an alias invocation.
// Order is the alias position within its function, or -1 for explicit calls.
type Function struct {
	Base
	Name  string
	Order int
	VoidQ bool
	Args  []Token
}

func (*Function) Type() string { return "FUNCTION" }

// Inst is one instrument declaration inside a meta header.
type Inst struct {
	Base
	Name  string
	Spec  []Token
	Dict  []*Macropitch
	Space string
}

func (*Inst) Type() string { return "@inst" }

// Macropitch is a meta-header pitch macro, either a bare reference [x] or a
// definition [x=...].
type Macropitch struct {
	Base
	Name    string
	Pitches []*Pitch
	Defined bool
}

func (*Macropitch) Type() string { return "Macropitch" }

// Custom is produced by rules declared in a notation directive.
type Custom struct {
	Base
	Kind    string
	Content string
	Groups  []string
}

func (c *Custom) Type() string { return c.Kind }

// Children returns the tokens nested directly inside tok.
func Children(tok Token) []Token {
	switch t := tok.(type) {
	case *Subtrack:
		return t.Content
	case *Function:
		return t.Args
	case *Inst:
		out := append([]Token{}, t.Spec...)
		for _, m := range t.Dict {
			out = append(out, m)
		}
		return out
	case *Note:
		out := make([]Token, len(t.Pitches))
		for i, p := range t.Pitches {
			out[i] = p
		}
		return out
	case *Macropitch:
		out := make([]Token, len(t.Pitches))
		for i, p := range t.Pitches {
			out[i] = p
		}
		return out
	}
	return nil
}

// Walk visits tokens depth-first. Returning false from fn skips the
// children of the visited token.
func Walk(tokens []Token, fn func(Token) bool) {
	for _, tok := range tokens {
		if tok == nil {
			continue
		}
		if fn(tok) {
			Walk(Children(tok), fn)
		}
	}
}

// At returns the innermost token whose span contains offset, or nil.
func At(tokens []Token, offset int) Token {
	var found Token
	Walk(tokens, func(tok Token) bool {
		if !tok.Pos().Contains(offset) {
			return false
		}
		found = tok
		return true
	})
	return found
}
