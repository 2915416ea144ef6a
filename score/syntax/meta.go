package syntax

import (
	"github.com/tliron/commonlog"

	"github.com/dhamidi/tmlex/score/diag"
	"github.com/dhamidi/tmlex/score/fsm"
	"github.com/dhamidi/tmlex/score/library"
	"github.com/dhamidi/tmlex/score/token"
)

var log = commonlog.GetLogger("tmlex.syntax")

const (
	ContextMeta  = "meta"
	contextInst  = "meta.inst"
	contextMacro = "meta.macro"
)

// defaultOffsets maps the diatonic degrees of a pitched instrument to
// semitones above the tonic.
var defaultOffsets = map[string]int{"1": 0, "2": 2, "3": 4, "4": 5, "5": 7, "6": 9, "7": 11}

// Macro is one entry of an instrument's pitch dictionary. Offset is in
// semitones; user-defined pitched macros carry Pitches instead.
type Macro struct {
	Name    string
	Offset  int
	Pitches []*token.Pitch
}

type Instrument struct {
	Name       string
	Percussion bool
	// Key is the General MIDI key of a percussion instrument.
	Key  int
	Spec []token.Token
	Dict []Macro
	Span token.Span
}

// MetaResult is a resolved meta header. Index is where the header ended,
// relative to the scanned input.
type MetaResult struct {
	Instruments []*Instrument
	Degrees     []string
	Index       int
	Warnings    diag.List
	// Scopes are the document spans of every declared instrument, known or
	// not.
	Scopes []token.Span
}

// Meta tokenizes meta headers. The header grammar reuses the track contexts
// with the diatonic degrees so instrument specs may hold notes and calls.
type Meta struct {
	grammar *fsm.Grammar
}

func NewMeta(lib *library.Library) (*Meta, error) {
	notes := Notes{Degrees: append(append([]string(nil), DefaultDegrees...), diatonic...), Chords: lib.ChordSymbols(), VolOps: trackVolOps}
	metaNotes := notes
	metaNotes.VolOps = metaVolOps

	b := fsm.NewBuilder()
	defineTrack(b, lib, notes)
	b.Provide(includeNotation+"."+ContextMeta, notationRules(lib.Context[ContextMeta])...)

	b.Define(ContextMeta,
		fsm.PopOn(`>`, false),
		fsm.Rule{
			Name:    "@inst",
			Pattern: `(\s*)([a-zA-Z][a-zA-Z\d]*)`,
			Push:    contextInst,
			Token: func(m fsm.Match, content []token.Token) token.Token {
				inst := &token.Inst{Name: m.Group(2), Space: m.Group(1)}
				for _, tok := range content {
					if macro, ok := tok.(*token.Macropitch); ok {
						inst.Dict = append(inst.Dict, macro)
					} else {
						inst.Spec = append(inst.Spec, tok)
					}
				}
				return inst
			},
		},
	)
	b.Define(contextInst,
		fsm.PopOn(`>`, true),
		fsm.PopOn(`,`, false),
		fsm.PopOn(`$`, true),
		fsm.Include(includeNotation+"."+ContextMeta),
		fsm.Include(includeAlias),
		callRule(),
		fsm.Item("Macropitch", `\[([a-zA-Z])\]`, func(m fsm.Match) token.Token {
			return &token.Macropitch{Name: m.Group(1)}
		}),
		fsm.Rule{
			Name:    "Macropitch",
			Pattern: `\[([a-zA-Z])=`,
			Push:    contextMacro,
			Token: func(m fsm.Match, content []token.Token) token.Token {
				macro := &token.Macropitch{Name: m.Group(1), Defined: true}
				for _, tok := range content {
					if p, ok := tok.(*token.Pitch); ok {
						macro.Pitches = append(macro.Pitches, p)
					}
				}
				return macro
			},
		},
		metaNotes.NoteRule(),
		fsm.Item("Space", `\s+`, func(m fsm.Match) token.Token {
			return &token.Space{Content: m.Text()}
		}),
	)
	b.Define(contextMacro,
		fsm.PopOn(`\]`, false),
		fsm.Skip(`\s+`),
		metaNotes.PitchRule(),
	)

	g, err := b.Compile()
	if err != nil {
		return nil, err
	}
	return &Meta{grammar: g}, nil
}

// Tokenize scans a meta header body, the text after "<" and any track name,
// and resolves its instruments. A structural error is returned along with
// the instruments resolved so far.
func (m *Meta) Tokenize(src string, base int) (*MetaResult, error) {
	res, err := m.grammar.Tokenize(src, ContextMeta, fsm.WithBase(base))
	if res == nil {
		return nil, err
	}

	out := &MetaResult{
		Degrees:  append([]string(nil), DefaultDegrees...),
		Index:    res.Index,
		Warnings: res.Warnings,
	}
	r := resolver{out: out, degrees: map[string]bool{}, macros: map[string]bool{}}
	for _, d := range out.Degrees {
		r.degrees[d] = true
	}
	for _, tok := range res.Content {
		if inst, ok := tok.(*token.Inst); ok {
			out.Scopes = append(out.Scopes, inst.Pos())
			r.resolve(inst)
		}
	}
	return out, err
}

type resolver struct {
	out        *MetaResult
	degrees    map[string]bool
	macros     map[string]bool // user macros of the whole header
	pitched    bool
	percussion bool
}

func (r *resolver) addDegree(d string) {
	if !r.degrees[d] {
		r.degrees[d] = true
		r.out.Degrees = append(r.out.Degrees, d)
	}
}

func (r *resolver) warn(d diag.Diagnostic, span token.Span) {
	r.out.Warnings.Add(d.At(span.Start, span.End))
}

func (r *resolver) resolve(inst *token.Inst) {
	kind, key := LookupInstrument(inst.Name)
	if kind == Unknown {
		log.Debugf("unknown instrument %q", inst.Name)
		r.warn(diag.Warningf(diag.NotInstrument, "%s is not an instrument", inst.Name).With("name", inst.Name), inst.Pos())
		return
	}

	resolved := &Instrument{Name: inst.Name, Spec: inst.Spec, Span: inst.Pos()}
	seen := map[string]bool{}
	if kind == Pitched {
		if !r.pitched {
			r.pitched = true
			for _, d := range diatonic {
				r.addDegree(d)
			}
		}
		for _, d := range diatonic {
			resolved.Dict = append(resolved.Dict, Macro{Name: d, Offset: defaultOffsets[d]})
			seen[d] = true
		}
	} else {
		resolved.Percussion, resolved.Key = true, key
		if !r.percussion {
			r.percussion = true
			r.addDegree("x")
		}
		resolved.Dict = append(resolved.Dict, Macro{Name: "x", Offset: key - 60})
		seen["x"] = true
	}

	for _, macro := range inst.Dict {
		switch {
		case seen[macro.Name] || r.macros[macro.Name]:
			r.warn(diag.Warningf(diag.DupMacroPitch, "pitch macro %s is already defined", macro.Name).
				With("name", macro.Name).With("inst", inst.Name), macro.Pos())
			continue
		case kind == Percussion && macro.Defined:
			r.warn(diag.Warningf(diag.PitchDef, "percussion macro %s cannot define a pitch", macro.Name).
				With("name", macro.Name).With("inst", inst.Name), macro.Pos())
			continue
		case kind == Pitched && !macro.Defined:
			r.warn(diag.Warningf(diag.NoPitchDef, "pitch macro %s has no definition", macro.Name).
				With("name", macro.Name).With("inst", inst.Name), macro.Pos())
			continue
		}
		seen[macro.Name] = true
		r.macros[macro.Name] = true
		entry := Macro{Name: macro.Name, Pitches: macro.Pitches}
		if kind == Percussion {
			entry.Offset = key - 60
		}
		resolved.Dict = append(resolved.Dict, entry)
		r.addDegree(macro.Name)
	}
	r.out.Instruments = append(r.out.Instruments, resolved)
}
