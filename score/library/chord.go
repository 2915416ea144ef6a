package library

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dhamidi/tmlex/score/diag"
)

const (
	chordInt  = `([+\-]?\d+)`
	chordItem = `(\[` + chordInt + `?(:` + chordInt + `?)?\])?` + chordInt + `?`
)

var (
	chordLine = regexp.MustCompile(`^([a-zA-Z])\t+(?:([^\t]+)\t+)?(` + chordItem + `(?:, *` + chordItem + `)*)$`)
	chordPart = regexp.MustCompile(`^` + chordItem + `$`)
	chordSep  = regexp.MustCompile(`, *`)
)

// ChordTokenize reads the lines of a chord block. Each line declares one
// chord symbol:
//
//	C	major triad	[0]1,[0]3,[0]5
//
// An item is [octave:accidental]step; see resolveChordItem for defaults.
// Malformed lines are reported as InvChordDecl and skipped.
func ChordTokenize(lines []string) *Result {
	res := newResult()
	for i, line := range lines {
		m := chordLine.FindStringSubmatch(line)
		if m == nil {
			if strings.TrimSpace(line) != "" {
				res.Warnings.Add(diag.Warningf(diag.InvChordDecl, "invalid chord declaration").
					OnLine(i).
					With("src", line))
			}
			continue
		}

		entry := ChordEntry{Notation: m[1], Comment: m[2]}
		for _, item := range chordSep.Split(m[3], -1) {
			entry.Pitches = append(entry.Pitches, resolveChordItem(chordPart.FindStringSubmatch(item)))
		}
		res.Chord = append(res.Chord, entry)
	}
	return res
}

// resolveChordItem turns a matched item into (octave, step, accidental).
// The octave is the bracket number or 0. The step is the trailing number;
// without one it is -1 when a colon is present, else the bracket number,
// else -1 when a bracket is present, else 0. The accidental is the number
// after the colon or 0.
func resolveChordItem(m []string) [3]int {
	bracket, octave, colon, accidental, step := m[1], m[2], m[3], m[4], m[5]

	var out [3]int
	out[0] = atoi(octave)
	switch {
	case step != "":
		out[1] = atoi(step)
	case colon != "":
		out[1] = -1
	case octave != "":
		out[1] = atoi(octave)
	case bracket != "":
		out[1] = -1
	}
	out[2] = atoi(accidental)
	return out
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimPrefix(s, "+"))
	return n
}
