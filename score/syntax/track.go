package syntax

import (
	"strconv"
	"strings"

	"github.com/dhamidi/tmlex/score/diag"
	"github.com/dhamidi/tmlex/score/fsm"
	"github.com/dhamidi/tmlex/score/library"
	"github.com/dhamidi/tmlex/score/token"
)

// Context names shared by the track and meta grammars.
const (
	ContextDefault  = "default"
	ContextSubtrack = "subtrack"
	ContextArgs     = "args"

	includeTrack    = "track"
	includeAlias    = "alias"
	includeNotation = "notation"
)

// DefaultDegrees is the degree set of a track without instruments: rest and
// hold only.
var DefaultDegrees = []string{"0", "%"}

var diatonic = []string{"1", "2", "3", "4", "5", "6", "7"}

// EffectiveDegrees falls back to the diatonic degrees when only rest and hold
// are available.
func EffectiveDegrees(degrees []string) []string {
	if len(degrees) > len(DefaultDegrees) {
		return degrees
	}
	return append(append([]string(nil), DefaultDegrees...), diatonic...)
}

// Track tokenizes track content. Grammars are compiled once per degree set.
// A Track is not safe for concurrent use.
type Track struct {
	lib   *library.Library
	cache map[string]*fsm.Grammar
}

func NewTrack(lib *library.Library) *Track {
	return &Track{lib: lib, cache: map[string]*fsm.Grammar{}}
}

// Grammar returns the compiled track grammar for a degree set.
func (t *Track) Grammar(degrees []string) (*fsm.Grammar, error) {
	key := strings.Join(degrees, "\x00")
	if g, ok := t.cache[key]; ok {
		return g, nil
	}
	b := fsm.NewBuilder()
	defineTrack(b, t.lib, Notes{Degrees: degrees, Chords: t.lib.ChordSymbols(), VolOps: trackVolOps})
	g, err := b.Compile()
	if err != nil {
		return nil, err
	}
	t.cache[key] = g
	return g, nil
}

// Tokenize scans track content starting at document offset base.
func (t *Track) Tokenize(src string, degrees []string, base int) (*fsm.Result, error) {
	g, err := t.Grammar(EffectiveDegrees(degrees))
	if err != nil {
		return nil, err
	}
	return g.Tokenize(src, ContextDefault, fsm.WithBase(base))
}

// defineTrack adds the default, subtrack and args contexts to b, along with
// the alias and notation include sets drawn from lib.
func defineTrack(b *fsm.Builder, lib *library.Library, notes Notes) {
	b.Provide(includeAlias)
	for _, rule := range lib.Alias {
		b.Provide(includeAlias, rule.FSMRule(ContextDefault))
	}
	b.Provide(includeNotation, notationRules(lib.Context[ContextDefault])...)

	b.Provide(includeTrack,
		fsm.Skip(`\s+`),
		fsm.Item("LocalIndicator", `!`, func(fsm.Match) token.Token {
			return &token.LocalIndicator{}
		}),
		fsm.Item("BarLine", `(:?)\|(:?)`, func(m fsm.Match) token.Token {
			return &token.BarLine{Right: m.Group(1) != "", Left: m.Group(2) != "", Content: m.Text()}
		}),
		fsm.Item("Tie", `\^`, func(fsm.Match) token.Token {
			return &token.Tie{}
		}),
		fsm.Item("Tuplet", `\((\d+)\)`, func(m fsm.Match) token.Token {
			radix, _ := strconv.Atoi(m.Group(1))
			return &token.Tuplet{Radix: radix}
		}),
		fsm.Include(includeNotation),
		fsm.Include(includeAlias),
		callRule(),
		fsm.Rule{
			Name:    "Subtrack",
			Pattern: `\{(?:(\d+)\*)?`,
			Push:    ContextSubtrack,
			Token: func(m fsm.Match, content []token.Token) token.Token {
				repeat := 1
				if m.Has(1) {
					repeat, _ = strconv.Atoi(m.Group(1))
				}
				return &token.Subtrack{Repeat: repeat, Content: content}
			},
		},
		notes.ChordNoteRule(),
		notes.NoteRule(),
		fsm.Item("Undefined", `\S`, func(m fsm.Match) token.Token {
			m.Warn(diag.Warningf(diag.Undefined, "unrecognized %q", m.Text()).With("src", m.Text()))
			return &token.Undefined{Content: m.Text()}
		}),
	)

	b.Define(ContextDefault, fsm.Include(includeTrack))
	b.Define(ContextSubtrack, fsm.PopOn(`\}`, false), fsm.Include(includeTrack))
	b.Define(ContextArgs,
		fsm.PopOn(`\)`, false),
		fsm.Skip(`\s*,\s*|\s+`),
		fsm.Item("Number", `[+\-]?\d+(?:\.\d+)?`, func(m fsm.Match) token.Token {
			return &token.Number{Content: m.Text()}
		}),
		fsm.Item("String", `"([^"]*)"`, func(m fsm.Match) token.Token {
			return &token.String{Content: m.Group(1)}
		}),
		callRule(),
		fsm.Rule{
			Name:    "Subtrack",
			Pattern: `\{`,
			Push:    ContextSubtrack,
			Token: func(_ fsm.Match, content []token.Token) token.Token {
				return &token.Subtrack{Repeat: 1, Content: content}
			},
		},
	)
}

// callRule matches an explicit call such as Tempo(120).
func callRule() fsm.Rule {
	return fsm.Rule{
		Name:    "Function",
		Pattern: `([A-Z][A-Za-z\d]*)\(`,
		Push:    ContextArgs,
		Token: func(m fsm.Match, content []token.Token) token.Token {
			return &token.Function{Name: m.Group(1), Order: -1, Args: content}
		},
	}
}

func notationRules(rules []library.NotationRule) []fsm.Rule {
	out := make([]fsm.Rule, 0, len(rules))
	for _, r := range rules {
		kind := r.Type
		out = append(out, fsm.Item(kind, r.Pattern, func(m fsm.Match) token.Token {
			groups := make([]string, m.NumGroups())
			for i := range groups {
				groups[i] = m.Group(i + 1)
			}
			return &token.Custom{Kind: kind, Content: m.Text(), Groups: groups}
		}))
	}
	return out
}
