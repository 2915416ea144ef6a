package format

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dhamidi/tmlex/score/diag"
	"github.com/dhamidi/tmlex/score/library"
	"github.com/dhamidi/tmlex/score/token"
	"github.com/dhamidi/tmlex/score/tokenizer"
)

// LineEncoder writes one tab-separated record per line. Nested tokens are
// indented by two spaces per level.
type LineEncoder struct {
	w   io.Writer
	doc *tokenizer.Document
}

func NewLineEncoder(w io.Writer) *LineEncoder {
	return &LineEncoder{w: w}
}

func (e *LineEncoder) Encode(doc *tokenizer.Document) error {
	e.doc = doc
	text, err := e.MarshalText()
	if err != nil {
		return err
	}
	_, err = e.w.Write(text)
	return err
}

func (e *LineEncoder) MarshalText() ([]byte, error) {
	var sb strings.Builder
	doc := e.doc

	for _, entry := range doc.Library {
		fmt.Fprintf(&sb, "directive\t%s\t%s\t%d\n", entry.Type, entry.Argument(), len(entry.Code))
	}

	for i, section := range doc.Sections {
		start := doc.Index.Base
		if i < len(doc.Index.Sections) {
			start += doc.Index.Sections[i].Start
		}
		fmt.Fprintf(&sb, "section\t%d\t%d\n", i, start)
		writeTokens(&sb, "prolog", section.Prolog, 1)
		for _, setting := range section.Settings {
			fmt.Fprintf(&sb, "  setting\t%d\n", setting.Index)
			writeTokens(&sb, "", setting.Spec, 2)
		}
		for _, track := range section.Tracks {
			fmt.Fprintf(&sb, "  track\t%d\t%s\t%s\t%s\t%s\n",
				track.Index,
				orDash(track.Name),
				playStr(track.Play),
				orDash(instrumentNames(track)),
				strings.Join(track.Degrees, ","),
			)
			writeTokens(&sb, "", track.Content, 2)
		}
		writeTokens(&sb, "epilog", section.Epilog, 1)
	}

	writeDiagnostics(&sb, doc.Errors)
	writeDiagnostics(&sb, doc.Warnings)

	return []byte(sb.String()), nil
}

func writeTokens(sb *strings.Builder, label string, tokens []token.Token, depth int) {
	if len(tokens) == 0 {
		return
	}
	if label != "" {
		fmt.Fprintf(sb, "%s%s\n", strings.Repeat("  ", depth), label)
		depth++
	}
	for _, tok := range tokens {
		writeToken(sb, tok, depth)
	}
}

func writeToken(sb *strings.Builder, tok token.Token, depth int) {
	indent := strings.Repeat("  ", depth)
	if tok == nil {
		fmt.Fprintf(sb, "%s-\n", indent)
		return
	}
	span := tok.Pos()
	fmt.Fprintf(sb, "%s%s\t%d\t%d\t%s\n", indent, tok.Type(), span.Start, span.End, tokenDetail(tok))

	switch t := tok.(type) {
	case *token.Note, *token.Macropitch:
		// pitches are part of the detail column
	case *token.Inst:
		for _, s := range t.Spec {
			writeToken(sb, s, depth+1)
		}
	default:
		for _, child := range token.Children(tok) {
			writeToken(sb, child, depth+1)
		}
	}
}

func tokenDetail(tok token.Token) string {
	switch t := tok.(type) {
	case *token.Space:
		return fmt.Sprintf("%q", t.Content)
	case *token.Undefined:
		return t.Content
	case *token.BarLine:
		return t.Content
	case *token.Tuplet:
		return fmt.Sprint(t.Radix)
	case *token.Pitch:
		return pitchStr(t)
	case *token.Note:
		var parts []string
		for _, p := range t.Pitches {
			parts = append(parts, pitchStr(p))
		}
		s := strings.Join(parts, "")
		if t.Bracket {
			s = "[" + s + "]"
		}
		return s + t.DurOp + t.Stac
	case *token.Subtrack:
		if t.Repeat > 0 {
			return fmt.Sprintf("%d*", t.Repeat)
		}
		return "-"
	case *token.Number:
		return t.Content
	case *token.String:
		return fmt.Sprintf("%q", t.Content)
	case *token.Function:
		return fmt.Sprintf("%s\t%d\t%s", t.Name, t.Order, voidStr(t.VoidQ))
	case *token.Inst:
		var names []string
		for _, m := range t.Dict {
			names = append(names, m.Name)
		}
		return fmt.Sprintf("%s\t%s", t.Name, orDash(strings.Join(names, ",")))
	case *token.Macropitch:
		var parts []string
		for _, p := range t.Pitches {
			parts = append(parts, pitchStr(p))
		}
		return fmt.Sprintf("%s\t%s", t.Name, orDash(strings.Join(parts, "")))
	case *token.Custom:
		return t.Content
	}
	return "-"
}

func pitchStr(p *token.Pitch) string {
	return p.Degree + p.PitOp + p.Chord + p.VolOp
}

func instrumentNames(track *tokenizer.Track) string {
	names := make([]string, len(track.Instruments))
	for i, inst := range track.Instruments {
		names[i] = inst.Name
	}
	return strings.Join(names, ",")
}

func writeDiagnostics(sb *strings.Builder, list diag.List) {
	for _, d := range list {
		start, end := "-", "-"
		if d.HasPos() {
			start, end = fmt.Sprint(d.Start), fmt.Sprint(d.End)
		}
		fmt.Fprintf(sb, "%s\t%s\t%s\t%s\t%d\t%s\n", d.Severity, d.Code, start, end, d.Line, d.Message)
	}
}

func playStr(play bool) string {
	if play {
		return "play"
	}
	return "-"
}

func voidStr(void bool) string {
	if void {
		return "void"
	}
	return "value"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// LibraryLineEncoder lists the declarations of a library, one per line.
type LibraryLineEncoder struct {
	w   io.Writer
	lib *library.Library
}

func NewLibraryLineEncoder(w io.Writer) *LibraryLineEncoder {
	return &LibraryLineEncoder{w: w}
}

func (e *LibraryLineEncoder) Encode(lib *library.Library) error {
	e.lib = lib
	text, err := e.MarshalText()
	if err != nil {
		return err
	}
	_, err = e.w.Write(text)
	return err
}

func (e *LibraryLineEncoder) MarshalText() ([]byte, error) {
	var sb strings.Builder
	lib := e.lib

	for _, fn := range lib.Dict {
		params := strings.Join(fn.Params, ",")
		if fn.Variadic {
			params += ",..."
		}
		fmt.Fprintf(&sb, "function\t%s\t%s\t%s\n", fn.Name, orDash(params), voidStr(fn.VoidQ))
	}
	for _, a := range lib.Alias {
		fmt.Fprintf(&sb, "alias\t%s\t%d\t%s\t%d\n", a.Name, a.Order, a.Source, a.Arity)
	}
	for _, c := range lib.Chord {
		var items []string
		for _, p := range c.Pitches {
			items = append(items, fmt.Sprintf("%d:%d:%d", p[0], p[1], p[2]))
		}
		fmt.Fprintf(&sb, "chord\t%s\t%s\t%s\n", c.Notation, orDash(c.Comment), strings.Join(items, ","))
	}
	for _, context := range sortedKeys(lib.Context) {
		for _, r := range lib.Context[context] {
			fmt.Fprintf(&sb, "notation\t%s\t%s\t%s\n", context, r.Type, r.Pattern)
		}
	}
	return []byte(sb.String()), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
