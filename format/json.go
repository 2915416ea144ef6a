package format

import (
	"encoding/json"
	"io"

	"github.com/dhamidi/tmlex/score/diag"
	"github.com/dhamidi/tmlex/score/library"
	"github.com/dhamidi/tmlex/score/syntax"
	"github.com/dhamidi/tmlex/score/token"
	"github.com/dhamidi/tmlex/score/tokenizer"
)

type JSONEncoder struct {
	w   io.Writer
	doc *tokenizer.Document
}

func NewJSONEncoder(w io.Writer) *JSONEncoder {
	return &JSONEncoder{w: w}
}

func (e *JSONEncoder) Encode(doc *tokenizer.Document) error {
	e.doc = doc
	text, err := e.MarshalText()
	if err != nil {
		return err
	}
	_, err = e.w.Write(append(text, '\n'))
	return err
}

func (e *JSONEncoder) MarshalText() ([]byte, error) {
	return json.MarshalIndent(documentToJSON(e.doc), "", "  ")
}

type jsonDocument struct {
	Comment  []string           `json:"comment"`
	Library  []jsonLibraryEntry `json:"library"`
	Sections []jsonSection      `json:"sections"`
	Errors   []jsonDiagnostic   `json:"errors"`
	Warnings []jsonDiagnostic   `json:"warnings"`
	Index    jsonIndex          `json:"index"`
	Scoping  jsonScoping        `json:"scoping"`
}

type jsonLibraryEntry struct {
	Type string   `json:"type"`
	Head string   `json:"head"`
	Code []string `json:"code,omitempty"`
}

type jsonSection struct {
	Comment  []string      `json:"comment"`
	Prolog   []*jsonToken  `json:"prolog"`
	Settings []jsonSetting `json:"settings"`
	Tracks   []jsonTrack   `json:"tracks"`
	Epilog   []*jsonToken  `json:"epilog"`
}

type jsonSetting struct {
	Index int          `json:"index"`
	Spec  []*jsonToken `json:"spec"`
}

type jsonTrack struct {
	Play        bool             `json:"play"`
	Name        string           `json:"name,omitempty"`
	Index       int              `json:"index"`
	Span        jsonSpan         `json:"span"`
	Instruments []jsonInstrument `json:"instruments"`
	Degrees     []string         `json:"degrees"`
	Content     []*jsonToken     `json:"content"`
	Warnings    []jsonDiagnostic `json:"warnings,omitempty"`
}

type jsonInstrument struct {
	Name       string       `json:"name"`
	Percussion bool         `json:"percussion,omitempty"`
	Key        int          `json:"key,omitempty"`
	Span       jsonSpan     `json:"span"`
	Spec       []*jsonToken `json:"spec,omitempty"`
	Dict       []jsonMacro  `json:"dict"`
}

type jsonMacro struct {
	Name    string   `json:"name"`
	Offset  int      `json:"offset"`
	Pitches []string `json:"pitches,omitempty"`
}

type jsonDiagnostic struct {
	Code     string            `json:"code"`
	Severity string            `json:"severity"`
	Start    *int              `json:"start,omitempty"`
	End      *int              `json:"end,omitempty"`
	Line     int               `json:"line"`
	Message  string            `json:"message,omitempty"`
	Args     map[string]string `json:"args,omitempty"`
}

type jsonIndex struct {
	Base     int                `json:"base"`
	Sections []jsonSectionIndex `json:"sections"`
}

type jsonSectionIndex struct {
	Start  int   `json:"start"`
	Tracks []int `json:"tracks"`
}

type jsonScoping struct {
	Inst []jsonSpan `json:"inst"`
	Func []jsonSpan `json:"func"`
	Pack []jsonSpan `json:"pack"`
}

func documentToJSON(doc *tokenizer.Document) jsonDocument {
	data := jsonDocument{
		Comment:  nonNil(doc.Comment),
		Library:  []jsonLibraryEntry{},
		Sections: []jsonSection{},
		Errors:   diagnosticsToJSON(doc.Errors),
		Warnings: diagnosticsToJSON(doc.Warnings),
		Index: jsonIndex{
			Base:     doc.Index.Base,
			Sections: []jsonSectionIndex{},
		},
		Scoping: jsonScoping{
			Inst: spansToJSON(doc.Scoping.Inst),
			Func: spansToJSON(doc.Scoping.Func),
			Pack: spansToJSON(doc.Scoping.Pack),
		},
	}

	for _, entry := range doc.Library {
		data.Library = append(data.Library, jsonLibraryEntry{Type: entry.Type, Head: entry.Head, Code: entry.Code})
	}
	for _, section := range doc.Sections {
		data.Sections = append(data.Sections, sectionToJSON(section))
	}
	for _, s := range doc.Index.Sections {
		data.Index.Sections = append(data.Index.Sections, jsonSectionIndex{Start: s.Start, Tracks: nonNilInts(s.Tracks)})
	}
	return data
}

func sectionToJSON(section *tokenizer.Section) jsonSection {
	js := jsonSection{
		Comment:  nonNil(section.Comment),
		Prolog:   nonNilTokens(section.Prolog),
		Settings: []jsonSetting{},
		Tracks:   []jsonTrack{},
		Epilog:   nonNilTokens(section.Epilog),
	}
	for _, setting := range section.Settings {
		js.Settings = append(js.Settings, jsonSetting{Index: setting.Index, Spec: nonNilTokens(setting.Spec)})
	}
	for _, track := range section.Tracks {
		js.Tracks = append(js.Tracks, trackToJSON(track))
	}
	return js
}

func trackToJSON(track *tokenizer.Track) jsonTrack {
	jt := jsonTrack{
		Play:        track.Play,
		Name:        track.Name,
		Index:       track.Index,
		Span:        spanToJSON(track.Span),
		Instruments: []jsonInstrument{},
		Degrees:     nonNil(track.Degrees),
		Content:     nonNilTokens(track.Content),
	}
	if len(track.Warnings) > 0 {
		jt.Warnings = diagnosticsToJSON(track.Warnings)
	}
	for _, inst := range track.Instruments {
		jt.Instruments = append(jt.Instruments, instrumentToJSON(inst))
	}
	return jt
}

func instrumentToJSON(inst *syntax.Instrument) jsonInstrument {
	ji := jsonInstrument{
		Name:       inst.Name,
		Percussion: inst.Percussion,
		Key:        inst.Key,
		Span:       spanToJSON(inst.Span),
		Spec:       tokensToJSON(inst.Spec),
		Dict:       []jsonMacro{},
	}
	for _, m := range inst.Dict {
		jm := jsonMacro{Name: m.Name, Offset: m.Offset}
		for _, p := range m.Pitches {
			jm.Pitches = append(jm.Pitches, p.Degree+p.PitOp)
		}
		ji.Dict = append(ji.Dict, jm)
	}
	return ji
}

func diagnosticsToJSON(list diag.List) []jsonDiagnostic {
	out := make([]jsonDiagnostic, 0, len(list))
	for _, d := range list {
		jd := jsonDiagnostic{
			Code:     string(d.Code),
			Severity: d.Severity.String(),
			Line:     d.Line,
			Message:  d.Message,
			Args:     d.Args,
		}
		if d.HasPos() {
			start, end := d.Start, d.End
			jd.Start, jd.End = &start, &end
		}
		out = append(out, jd)
	}
	return out
}

func spansToJSON(spans []token.Span) []jsonSpan {
	out := make([]jsonSpan, len(spans))
	for i, s := range spans {
		out[i] = spanToJSON(s)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilInts(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}

func nonNilTokens(tokens []token.Token) []*jsonToken {
	if out := tokensToJSON(tokens); out != nil {
		return out
	}
	return []*jsonToken{}
}

// LibraryJSONEncoder writes the declarations of a library.
type LibraryJSONEncoder struct {
	w   io.Writer
	lib *library.Library
}

func NewLibraryJSONEncoder(w io.Writer) *LibraryJSONEncoder {
	return &LibraryJSONEncoder{w: w}
}

func (e *LibraryJSONEncoder) Encode(lib *library.Library) error {
	e.lib = lib
	text, err := e.MarshalText()
	if err != nil {
		return err
	}
	_, err = e.w.Write(append(text, '\n'))
	return err
}

func (e *LibraryJSONEncoder) MarshalText() ([]byte, error) {
	return json.MarshalIndent(libraryToJSON(e.lib), "", "  ")
}

type jsonLibrary struct {
	Functions []jsonFunction            `json:"functions"`
	Aliases   []jsonAlias               `json:"aliases"`
	Chords    []jsonChord               `json:"chords"`
	Types     map[string]string         `json:"types"`
	Context   map[string][]jsonNotation `json:"context"`
}

type jsonFunction struct {
	Name     string   `json:"name"`
	VoidQ    bool     `json:"voidQ"`
	Params   []string `json:"params"`
	Variadic bool     `json:"variadic,omitempty"`
}

type jsonAlias struct {
	Name    string `json:"name"`
	Order   int    `json:"order"`
	Source  string `json:"source"`
	Pattern string `json:"pattern"`
	Arity   int    `json:"arity"`
}

type jsonChord struct {
	Notation string   `json:"notation"`
	Comment  string   `json:"comment,omitempty"`
	Pitches  [][3]int `json:"pitches"`
}

type jsonNotation struct {
	Type        string `json:"type"`
	Pattern     string `json:"pattern"`
	Description string `json:"description,omitempty"`
}

func libraryToJSON(lib *library.Library) jsonLibrary {
	data := jsonLibrary{
		Functions: []jsonFunction{},
		Aliases:   []jsonAlias{},
		Chords:    []jsonChord{},
		Types:     map[string]string{},
		Context:   map[string][]jsonNotation{},
	}
	for _, fn := range lib.Dict {
		data.Functions = append(data.Functions, jsonFunction{
			Name:     fn.Name,
			VoidQ:    fn.VoidQ,
			Params:   nonNil(fn.Params),
			Variadic: fn.Variadic,
		})
	}
	for _, a := range lib.Alias {
		data.Aliases = append(data.Aliases, jsonAlias{
			Name:    a.Name,
			Order:   a.Order,
			Source:  a.Source,
			Pattern: a.Pattern,
			Arity:   a.Arity,
		})
	}
	for _, c := range lib.Chord {
		pitches := c.Pitches
		if pitches == nil {
			pitches = [][3]int{}
		}
		data.Chords = append(data.Chords, jsonChord{Notation: c.Notation, Comment: c.Comment, Pitches: pitches})
	}
	for k, v := range lib.Types {
		data.Types[k] = v
	}
	for k, v := range lib.Context {
		rules := []jsonNotation{}
		for _, r := range v {
			rules = append(rules, jsonNotation{Type: r.Type, Pattern: r.Pattern, Description: r.Description})
		}
		data.Context[k] = rules
	}
	return data
}
