// Package library extracts the declarations a score's grammar is built from:
// chord tables, documented functions with their aliases, and notation rules.
package library

import (
	"errors"
	"strings"

	"github.com/dhamidi/tmlex/score/alias"
	"github.com/dhamidi/tmlex/score/diag"
)

// ErrFrozen is returned when merging into a library after tokenization began.
var ErrFrozen = errors.New("library is frozen")

type ChordEntry struct {
	Notation string
	Comment  string
	// Pitches holds (octave, step, accidental) triples.
	Pitches [][3]int
}

type FunctionEntry struct {
	Name  string
	VoidQ bool
	// Params has one declared type per formal parameter, "any" when
	// undeclared. Alternatives are kept verbatim, as in "number|string".
	Params []string
	// Variadic is set when the last parameter is a rest parameter.
	Variadic bool
}

// NotationRule is a track rule declared in a notation block.
type NotationRule struct {
	Type        string
	Pattern     string
	Description string
}

type Library struct {
	Code    []string
	Dict    []FunctionEntry
	Alias   []*alias.Rule
	Chord   []ChordEntry
	Types   map[string]string
	Context map[string][]NotationRule

	frozen bool
}

func New() *Library {
	return &Library{
		Types:   map[string]string{},
		Context: map[string][]NotationRule{},
	}
}

// Merge adds other's declarations after the ones already present. Types and
// Context entries of other replace entries with the same key.
func (l *Library) Merge(other *Library) error {
	if l.frozen {
		return ErrFrozen
	}
	if other == nil {
		return nil
	}
	l.Code = append(l.Code, other.Code...)
	l.Dict = append(l.Dict, other.Dict...)
	l.Alias = append(l.Alias, other.Alias...)
	l.Chord = append(l.Chord, other.Chord...)
	if l.Types == nil {
		l.Types = map[string]string{}
	}
	for k, v := range other.Types {
		l.Types[k] = v
	}
	if l.Context == nil {
		l.Context = map[string][]NotationRule{}
	}
	for k, v := range other.Context {
		l.Context[k] = append([]NotationRule(nil), v...)
	}
	return nil
}

// Freeze makes every later Merge fail with ErrFrozen.
func (l *Library) Freeze() {
	l.frozen = true
}

func (l *Library) Frozen() bool {
	return l.frozen
}

// Function looks up the last declaration of name.
func (l *Library) Function(name string) (FunctionEntry, bool) {
	for i := len(l.Dict) - 1; i >= 0; i-- {
		if l.Dict[i].Name == name {
			return l.Dict[i], true
		}
	}
	return FunctionEntry{}, false
}

// ChordSymbols returns the notation symbols of all chords, in order and
// without repetition.
func (l *Library) ChordSymbols() string {
	var sb strings.Builder
	for _, c := range l.Chord {
		if !strings.Contains(sb.String(), c.Notation) {
			sb.WriteString(c.Notation)
		}
	}
	return sb.String()
}

// Result is the outcome of extracting one declaration block.
type Result struct {
	*Library
	Errors   diag.List
	Warnings diag.List
}

func newResult() *Result {
	return &Result{Library: New()}
}
