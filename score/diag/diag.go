// Package diag defines the diagnostics reported while tokenizing a score and
// extracting its libraries. Diagnostics accumulate; none of them abort work.
package diag

import (
	"fmt"
	"sort"
	"strings"
)

type Code string

// Document-level errors.
const (
	NotFuncDecl    Code = "NotFuncDecl"
	InvalidCommand Code = "InvalidCommand"
	SyntaxError    Code = "SyntaxError"
	Loading        Code = "Token::Loading"
	VoidAnalysis   Code = "VoidAnalysis"
	Structure      Code = "Structure"
)

// Local warnings.
const (
	InvChordDecl    Code = "InvChordDecl"
	InvNotationDecl Code = "InvNotationDecl"
	DupMacroPitch   Code = "DupMacroPitch"
	NoPitchDef      Code = "NoPitchDef"
	PitchDef        Code = "PitchDef"
	NotInstrument   Code = "NotInstrument"
	Undefined       Code = "Undefined"

	AliasEmpty       Code = "AliasEmpty"
	AliasPlaceholder Code = "AliasPlaceholder"
	AliasKind        Code = "AliasKind"
	AliasIndex       Code = "AliasIndex"
	AliasDuplicate   Code = "AliasDuplicate"
	AliasArity       Code = "AliasArity"
)

type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// NoPos marks a diagnostic without a source offset.
const NoPos = -1

type Diagnostic struct {
	Code     Code              `json:"code"`
	Severity Severity          `json:"severity"`
	Start    int               `json:"start"`
	End      int               `json:"end"`
	Line     int               `json:"line,omitempty"`
	Message  string            `json:"message,omitempty"`
	Args     map[string]string `json:"args,omitempty"`
}

func Errorf(code Code, format string, args ...any) Diagnostic {
	return Diagnostic{
		Code:     code,
		Severity: SeverityError,
		Start:    NoPos,
		End:      NoPos,
		Message:  fmt.Sprintf(format, args...),
	}
}

func Warningf(code Code, format string, args ...any) Diagnostic {
	return Diagnostic{
		Code:     code,
		Severity: SeverityWarning,
		Start:    NoPos,
		End:      NoPos,
		Message:  fmt.Sprintf(format, args...),
	}
}

// At returns a copy of d covering [start, end).
func (d Diagnostic) At(start, end int) Diagnostic {
	d.Start, d.End = start, end
	return d
}

// OnLine returns a copy of d attributed to a 0-based source line.
func (d Diagnostic) OnLine(line int) Diagnostic {
	d.Line = line
	return d
}

// With returns a copy of d carrying an extra argument.
func (d Diagnostic) With(key, value string) Diagnostic {
	args := make(map[string]string, len(d.Args)+1)
	for k, v := range d.Args {
		args[k] = v
	}
	args[key] = value
	d.Args = args
	return d
}

// Shift moves a positioned diagnostic by base bytes.
func (d Diagnostic) Shift(base int) Diagnostic {
	if d.Start != NoPos {
		d.Start += base
	}
	if d.End != NoPos {
		d.End += base
	}
	return d
}

func (d Diagnostic) HasPos() bool {
	return d.Start != NoPos
}

func (d Diagnostic) Error() string {
	var sb strings.Builder
	if d.HasPos() {
		fmt.Fprintf(&sb, "%d: ", d.Start)
	}
	sb.WriteString(d.Severity.String())
	sb.WriteString(" ")
	sb.WriteString(string(d.Code))
	if d.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(d.Message)
	}
	if len(d.Args) > 0 {
		keys := make([]string, 0, len(d.Args))
		for k := range d.Args {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, " %s=%q", k, d.Args[k])
		}
	}
	return sb.String()
}

type List []Diagnostic

func (l *List) Add(d ...Diagnostic) {
	*l = append(*l, d...)
}

// Count returns the number of diagnostics with the given code.
func (l List) Count(code Code) int {
	n := 0
	for _, d := range l {
		if d.Code == code {
			n++
		}
	}
	return n
}

// Shift returns a copy of l with every positioned diagnostic moved by base.
func (l List) Shift(base int) List {
	if len(l) == 0 {
		return nil
	}
	out := make(List, len(l))
	for i, d := range l {
		out[i] = d.Shift(base)
	}
	return out
}

func (l List) Error() string {
	msgs := make([]string, len(l))
	for i, d := range l {
		msgs[i] = d.Error()
	}
	return strings.Join(msgs, "\n")
}
