// Package syntax holds the grammars of a score: the track content context
// and the meta header that declares a track's instruments.
package syntax

import (
	"regexp"
	"strings"

	"github.com/dhamidi/tmlex/score/fsm"
	"github.com/dhamidi/tmlex/score/token"
)

const (
	pitchOps    = `#b',`
	durationOps = `\-_.=`
	trackVolOps = `>:`
	// The meta header ends at '>', so it cannot be a volume operator there.
	metaVolOps = `:`
)

// Notes builds the note patterns for one degree set.
type Notes struct {
	Degrees []string
	Chords  string
	VolOps  string
}

// Pitch returns the pattern of one pitch: degree, pitch operators, chord
// symbols and volume operators. Without capture the groups are
// non-capturing.
func (n Notes) Pitch(capture bool) string {
	open := "("
	if !capture {
		open = "(?:"
	}
	chords := `)`
	if n.Chords != "" {
		chords = `[` + classEscape(n.Chords) + `]*)`
	}
	return open + `[` + classEscape(strings.Join(n.Degrees, "")) + `])` +
		open + `[` + pitchOps + `]*)` +
		open + chords +
		open + `[` + classEscape(n.VolOps) + `]*)`
}

// pitchGroups is the number of capture groups in Pitch(true).
const pitchGroups = 4

func (n Notes) pitchToken(m fsm.Match, group int) *token.Pitch {
	p := &token.Pitch{
		Degree: m.Group(group),
		PitOp:  m.Group(group + 1),
		Chord:  m.Group(group + 2),
		VolOp:  m.Group(group + 3),
	}
	span := m.GroupSpan(group)
	span.End = m.GroupSpan(group + 3).End
	p.SetPos(span)
	return p
}

// PitchRule matches a single pitch, as used inside macro definitions.
func (n Notes) PitchRule() fsm.Rule {
	return fsm.Item("Pitch", n.Pitch(true), func(m fsm.Match) token.Token {
		return n.pitchToken(m, 1)
	})
}

// NoteRule matches a pitch followed by duration and staccato operators.
func (n Notes) NoteRule() fsm.Rule {
	return fsm.Item("Note", n.Pitch(true)+`([`+durationOps+`]*)(`+"`"+`*)`, func(m fsm.Match) token.Token {
		return &token.Note{
			Pitches: []*token.Pitch{n.pitchToken(m, 1)},
			DurOp:   m.Group(pitchGroups + 1),
			Stac:    m.Group(pitchGroups + 2),
		}
	})
}

// ChordNoteRule matches simultaneous pitches in brackets, as in "[135]-".
func (n Notes) ChordNoteRule() fsm.Rule {
	single := regexp.MustCompile(n.Pitch(true))
	return fsm.Item("Note", `\[((?:`+n.Pitch(false)+`)+)\]([`+durationOps+`]*)(`+"`"+`*)`, func(m fsm.Match) token.Token {
		inner := m.Group(1)
		base := m.GroupSpan(1).Start
		note := &token.Note{Bracket: true, DurOp: m.Group(2), Stac: m.Group(3)}
		for _, loc := range single.FindAllStringSubmatchIndex(inner, -1) {
			p := &token.Pitch{
				Degree: inner[loc[2]:loc[3]],
				PitOp:  inner[loc[4]:loc[5]],
				Chord:  inner[loc[6]:loc[7]],
				VolOp:  inner[loc[8]:loc[9]],
			}
			p.SetPos(token.Span{Start: base + loc[0], End: base + loc[1]})
			note.Pitches = append(note.Pitches, p)
		}
		return note
	})
}

func classEscape(chars string) string {
	var sb strings.Builder
	for _, ch := range chars {
		switch ch {
		case '\\', ']', '[', '^', '-':
			sb.WriteByte('\\')
		}
		sb.WriteRune(ch)
	}
	return sb.String()
}
