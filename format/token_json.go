package format

import (
	"github.com/dhamidi/tmlex/score/token"
)

type jsonToken struct {
	Type    string      `json:"type"`
	Span    jsonSpan    `json:"span"`
	Content string      `json:"content,omitempty"`
	Name    string      `json:"name,omitempty"`
	Degree  string      `json:"degree,omitempty"`
	PitOp   string      `json:"pitOp,omitempty"`
	Chord   string      `json:"chord,omitempty"`
	VolOp   string      `json:"volOp,omitempty"`
	DurOp   string      `json:"durOp,omitempty"`
	Stac    string      `json:"stac,omitempty"`
	Bracket bool        `json:"bracket,omitempty"`
	Left    bool        `json:"left,omitempty"`
	Right   bool        `json:"right,omitempty"`
	Radix   int         `json:"radix,omitempty"`
	Repeat  int         `json:"repeat,omitempty"`
	Order   *int        `json:"order,omitempty"`
	VoidQ   bool        `json:"voidQ,omitempty"`
	Defined bool        `json:"defined,omitempty"`
	Groups  []string    `json:"groups,omitempty"`
	Pitches []jsonToken `json:"pitches,omitempty"`

	Args  []*jsonToken `json:"args,omitempty"`
	Spec  []*jsonToken `json:"spec,omitempty"`
	Dict  []*jsonToken `json:"dict,omitempty"`
	Inner []*jsonToken `json:"tokens,omitempty"`
}

type jsonSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func spanToJSON(s token.Span) jsonSpan {
	return jsonSpan{Start: s.Start, End: s.End}
}

// tokensToJSON converts a token list. Nil entries, such as missing alias
// arguments, become JSON nulls.
func tokensToJSON(tokens []token.Token) []*jsonToken {
	if len(tokens) == 0 {
		return nil
	}
	out := make([]*jsonToken, len(tokens))
	for i, tok := range tokens {
		if tok != nil {
			out[i] = tokenToJSON(tok)
		}
	}
	return out
}

func pitchesToJSON(pitches []*token.Pitch) []jsonToken {
	if len(pitches) == 0 {
		return nil
	}
	out := make([]jsonToken, len(pitches))
	for i, p := range pitches {
		out[i] = *tokenToJSON(p)
	}
	return out
}

func tokenToJSON(tok token.Token) *jsonToken {
	jt := &jsonToken{
		Type: tok.Type(),
		Span: spanToJSON(tok.Pos()),
	}

	switch t := tok.(type) {
	case *token.Space:
		jt.Content = t.Content
	case *token.Undefined:
		jt.Content = t.Content
	case *token.BarLine:
		jt.Content = t.Content
		jt.Left = t.Left
		jt.Right = t.Right
	case *token.Tuplet:
		jt.Radix = t.Radix
	case *token.Pitch:
		jt.Degree = t.Degree
		jt.PitOp = t.PitOp
		jt.Chord = t.Chord
		jt.VolOp = t.VolOp
	case *token.Note:
		jt.Pitches = pitchesToJSON(t.Pitches)
		jt.Bracket = t.Bracket
		jt.DurOp = t.DurOp
		jt.Stac = t.Stac
	case *token.Subtrack:
		jt.Repeat = t.Repeat
		jt.Inner = tokensToJSON(t.Content)
	case *token.Number:
		jt.Content = t.Content
	case *token.String:
		jt.Content = t.Content
	case *token.Function:
		order := t.Order
		jt.Name = t.Name
		jt.Order = &order
		jt.VoidQ = t.VoidQ
		jt.Args = tokensToJSON(t.Args)
	case *token.Inst:
		jt.Name = t.Name
		jt.Content = t.Space
		jt.Spec = tokensToJSON(t.Spec)
		for _, m := range t.Dict {
			jt.Dict = append(jt.Dict, tokenToJSON(m))
		}
	case *token.Macropitch:
		jt.Name = t.Name
		jt.Defined = t.Defined
		jt.Pitches = pitchesToJSON(t.Pitches)
	case *token.Custom:
		jt.Content = t.Content
		jt.Groups = t.Groups
	}

	return jt
}
