// Package tokenizer turns a score into a Document. It processes the leading
// comments and directives, builds the document's library, splits the body
// into sections and tracks, and tokenizes each track.
package tokenizer

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/dhamidi/tmlex/score/diag"
	"github.com/dhamidi/tmlex/score/fsm"
	"github.com/dhamidi/tmlex/score/library"
	"github.com/dhamidi/tmlex/score/syntax"
	"github.com/dhamidi/tmlex/score/token"
)

var log = commonlog.GetLogger("tmlex.tokenizer")

var (
	lineBreak     = regexp.MustCompile(`\r?\n`)
	blankLine     = regexp.MustCompile(`^\s*$`)
	directiveHead = regexp.MustCompile(`^# *([a-zA-Z]+)`)
	closedHeader  = regexp.MustCompile(`^<(:)?(?:([a-zA-Z][a-zA-Z\d]*):)?`)
	openHeader    = regexp.MustCompile(`^<(:)?`)
)

type rawTrack struct {
	source string
	base   int
}

// Tokenizer holds the state of one document. Initialize and Tokenize do
// their work once unless forced. A Tokenizer is not safe for concurrent use.
type Tokenizer struct {
	Comment  []string
	Library  []LibraryEntry
	Sections []*Section
	Errors   diag.List
	Warnings diag.List
	Syntax   *library.Library
	Index    Index
	Scoping  Scoping

	loader      Loader
	libraryPath string
	autoload    string
	directory   string

	source []string
	score  []string
	macros map[string]string

	initialized bool
	tokenized   bool

	// diagnostics count of the directive phase; content diagnostics follow
	libErrors   int
	libWarnings int
}

func New(input string, opts ...Option) *Tokenizer {
	t := &Tokenizer{
		Syntax: library.New(),
		macros: map[string]string{},
	}
	for _, opt := range opts {
		opt(t)
	}
	input = strings.TrimPrefix(input, "\ufeff")
	t.source = lineBreak.Split(input, -1)
	return t
}

// Parse tokenizes input and returns the resulting document.
func Parse(input string, opts ...Option) *Document {
	t := New(input, opts...)
	t.Tokenize(false)
	return t.Document()
}

func startsTrue(src []string, ptr int, prefix string, blank bool) bool {
	return ptr < len(src) && (strings.HasPrefix(src[ptr], prefix) || blank && blankLine.MatchString(src[ptr]))
}

func startsFalse(src []string, ptr int, prefix string, blank bool) bool {
	return ptr < len(src) && !(strings.HasPrefix(src[ptr], prefix) || blank && blankLine.MatchString(src[ptr]))
}

// position returns the offset of line ptr in the normalized text of lines.
func position(lines []string, ptr int) int {
	total := 0
	for _, line := range lines[:ptr] {
		total += len(line) + 1
	}
	return total
}

// Initialize reads the leading comments and directives and returns the
// document's library.
func (t *Tokenizer) Initialize(forced bool) *library.Library {
	if t.initialized && !forced {
		return t.Syntax
	}
	if forced {
		t.Comment, t.Library, t.Errors, t.Warnings = nil, nil, nil, nil
		t.Syntax = library.New()
		t.Scoping.Pack = nil
		t.tokenized = false
	}

	src := t.source
	ptr := 0

	for startsTrue(src, ptr, "//", false) {
		t.Comment = append(t.Comment, src[ptr][2:])
		ptr++
	}

	for startsTrue(src, ptr, "#", true) {
		origin := src[ptr]
		command := directiveHead.FindStringSubmatch(origin)
		ptr++
		if command == nil {
			continue
		}

		keyword := strings.ToLower(command[1])
		switch keyword {
		case "include":
			name := strings.TrimSpace(origin[len(command[0]):])
			t.Scoping.Pack = append(t.Scoping.Pack, token.Span{
				Start: position(src, ptr-1) + len(command[0]) + 1,
				End:   position(src, ptr) - 1,
			})
			if strings.Contains(name, "/") {
				t.loadLibrary(filepath.Join(t.directory, name), origin)
			} else {
				t.loadLibrary(filepath.Join(t.libraryPath, name), origin)
			}

		case "chord", "function", "notation":
			start := ptr
			var lines []string
			for startsFalse(src, ptr, "#", false) {
				lines = append(lines, src[ptr])
				ptr++
			}
			t.mergeLibrary(origin, lines, keyword, start)

		case "end":
			t.Library = append(t.Library, LibraryEntry{Type: "end", Head: origin})

		default:
			start := position(src, ptr-1)
			t.Errors.Add(diag.Errorf(diag.InvalidCommand, "unknown directive %s", command[1]).
				At(start, start+len(origin)).
				OnLine(ptr-1).
				With("src", command[1]))
		}
	}

	t.Index.Base = position(src, ptr)
	t.score = src[ptr:]
	t.initialized = true
	return t.Syntax
}

// Tokenize splits the score into sections and tokenizes every track.
func (t *Tokenizer) Tokenize(forced bool) []*Section {
	if t.tokenized && !forced {
		return t.Sections
	}
	t.Initialize(false)
	if t.autoload != "" && !t.Syntax.Frozen() {
		t.loadLibrary(filepath.Join(t.libraryPath, t.autoload), "")
	}
	if !t.Syntax.Frozen() {
		t.Syntax.Freeze()
		t.libErrors, t.libWarnings = len(t.Errors), len(t.Warnings)
	}

	t.Errors = append(diag.List(nil), t.Errors[:t.libErrors]...)
	t.Warnings = append(diag.List(nil), t.Warnings[:t.libWarnings]...)
	t.macros = map[string]string{}
	t.Sections = nil
	t.Index.Sections = nil
	t.Scoping.Inst, t.Scoping.Func = nil, nil

	c, err := t.newContexts()
	if err != nil {
		t.Errors.Add(diag.Errorf(diag.Structure, "grammar: %v", err))
		t.tokenized = true
		return t.Sections
	}

	src := t.score
	ptr, blank := 0, 0
	index := SectionIndex{Start: 0}
	var tracks []rawTrack
	var comment []string

	for ptr < len(src) {
		if startsTrue(src, ptr, "//", true) {
			blank++
			if blank >= 2 && len(tracks) != 0 {
				t.Index.Sections = append(t.Index.Sections, index)
				t.Sections = append(t.Sections, t.tokenizeSection(c, tracks, comment))
				index = SectionIndex{Start: position(src, ptr)}
				comment, tracks = nil, nil
			}
			if strings.HasPrefix(src[ptr], "//") {
				comment = append(comment, src[ptr][2:])
			}
			ptr++
			continue
		}

		pos := position(src, ptr)
		index.Tracks = append(index.Tracks, pos)
		code := src[ptr]
		ptr++
		for startsFalse(src, ptr, "//", true) {
			code += "\n" + src[ptr]
			ptr++
		}
		blank = 0
		tracks = append(tracks, rawTrack{source: code, base: pos})
	}
	if len(tracks) != 0 {
		t.Index.Sections = append(t.Index.Sections, index)
		t.Sections = append(t.Sections, t.tokenizeSection(c, tracks, comment))
	}

	log.Debugf("tokenized %d sections", len(t.Sections))
	t.tokenized = true
	return t.Sections
}

// Macro returns the content of the last track declared under name.
func (t *Tokenizer) Macro(name string) (string, bool) {
	code, ok := t.macros[name]
	return code, ok
}

// Document returns the current results. Call Tokenize first.
func (t *Tokenizer) Document() *Document {
	return &Document{
		Comment:  t.Comment,
		Library:  t.Library,
		Sections: t.Sections,
		Errors:   t.Errors,
		Warnings: t.Warnings,
		Index:    t.Index,
		Scoping:  t.Scoping,
	}
}

type contexts struct {
	meta  *syntax.Meta
	track *syntax.Track
}

func (t *Tokenizer) newContexts() (*contexts, error) {
	meta, err := syntax.NewMeta(t.Syntax)
	if err != nil {
		return nil, err
	}
	return &contexts{meta: meta, track: syntax.NewTrack(t.Syntax)}, nil
}

func (t *Tokenizer) tokenizeTrack(c *contexts, raw rawTrack, index int) *Track {
	track := &Track{Play: true, Index: index, Degrees: syntax.DefaultDegrees}
	code := raw.source
	base := raw.base + t.Index.Base
	track.Span = token.Span{Start: base, End: base + len(code)}

	if strings.HasPrefix(code, "<") {
		headerLen := t.tokenizeHeader(c, track, code, base)
		code = code[headerLen:]
		base += headerLen
		if track.Name != "" {
			t.macros[track.Name] = code
		}
	}
	track.Degrees = syntax.EffectiveDegrees(track.Degrees)

	res, err := c.track.Tokenize(code, track.Degrees, base)
	if res != nil {
		track.Content = res.Content
		track.Warnings.Add(res.Warnings...)
	}
	if err != nil {
		t.structureError(err)
	}
	t.Warnings.Add(track.Warnings...)

	token.Walk(track.Content, func(tok token.Token) bool {
		if _, ok := tok.(*token.Function); ok {
			t.Scoping.Func = append(t.Scoping.Func, tok.Pos())
		}
		return true
	})
	return track
}

// tokenizeHeader reads the meta header at the start of code and returns its
// length. A header closed by '>' on its first line may name the track, as in
// "<:name:piano>"; otherwise the header runs to the end of the first line
// and may end with ':', as in "<piano:".
func (t *Tokenizer) tokenizeHeader(c *contexts, track *Track, code string, base int) int {
	firstLine, _, hasMore := strings.Cut(code, "\n")

	var prefix, body string
	if strings.Contains(firstLine, ">") {
		m := closedHeader.FindStringSubmatch(code)
		track.Play = m[1] == ""
		track.Name = m[2]
		prefix, body = m[0], code[len(m[0]):]
	} else {
		m := openHeader.FindStringSubmatch(code)
		track.Play = m[1] == ""
		prefix = m[0]
		body = strings.TrimSuffix(firstLine[len(prefix):], ":")
	}

	res, err := c.meta.Tokenize(body, base+len(prefix))
	if err != nil {
		t.structureError(err)
	}
	if res == nil {
		return len(prefix)
	}
	track.Instruments = res.Instruments
	track.Degrees = res.Degrees
	track.Warnings.Add(res.Warnings...)
	t.Scoping.Inst = append(t.Scoping.Inst, res.Scopes...)

	if strings.Contains(firstLine, ">") || res.Index < len(body) {
		return len(prefix) + res.Index
	}
	if hasMore {
		return len(firstLine) + 1
	}
	return len(firstLine)
}

func (t *Tokenizer) structureError(err error) {
	d := diag.Errorf(diag.Structure, "%v", err)
	var structErr *fsm.StructureError
	if errors.As(err, &structErr) {
		d = d.At(structErr.Offset, structErr.Offset).With("context", structErr.Context)
	}
	t.Errors.Add(d)
}

func (t *Tokenizer) tokenizeSection(c *contexts, raw []rawTrack, comment []string) *Section {
	result := make([]*Track, len(raw))
	for i, r := range raw {
		result[i] = t.tokenizeTrack(c, r, i)
	}

	section := &Section{Comment: comment}
	for i, track := range result {
		content := track.Content
		if fsm.HasSubtrack(content) {
			section.Tracks = append(section.Tracks, track)
			continue
		}

		sep := -1
		for j, tok := range content {
			if _, ok := tok.(*token.LocalIndicator); ok {
				sep = j
				break
			}
		}
		if i == 0 || i == len(result)-1 {
			if sep == -1 {
				sep = len(content)
			}
			if i == 0 {
				section.Prolog = append(section.Prolog, content[:sep]...)
			} else {
				section.Epilog = append(section.Epilog, content[:sep]...)
			}
		} else {
			sep = 0
		}
		section.Settings = append(section.Settings, Setting{Index: i, Spec: content[sep:]})
	}
	return section
}

func (t *Tokenizer) loadLibrary(path, origin string) {
	err := t.mergeLoaded(path)
	if err != nil {
		log.Warningf("loading %s: %v", path, err)
		t.Errors.Add(diag.Errorf(diag.Loading, "%v", err).With("path", path))
		return
	}
	if origin != "" {
		t.Library = append(t.Library, LibraryEntry{Type: "include", Head: origin})
	}
}

func (t *Tokenizer) mergeLoaded(path string) error {
	if t.loader == nil {
		return errors.New("no library loader configured")
	}
	lib, err := t.loader.LoadLibrary(path)
	if err != nil {
		return err
	}
	return t.Syntax.Merge(lib)
}

// mergeLibrary extracts a chord, function or notation block whose first line
// is line start of the source.
func (t *Tokenizer) mergeLibrary(head string, lines []string, keyword string, start int) {
	base := position(t.source, start)

	var res *library.Result
	switch keyword {
	case "chord":
		res = library.ChordTokenize(lines)
	case "function":
		res = library.FunctionTokenize(strings.Join(lines, "\n"))
	case "notation":
		res = library.NotationTokenize(lines)
	}
	log.Debugf("%s block at line %d: %d errors, %d warnings", keyword, start, len(res.Errors), len(res.Warnings))

	if err := t.Syntax.Merge(res.Library); err != nil {
		t.Errors.Add(diag.Errorf(diag.Loading, "%v", err))
	}
	t.Errors.Add(placeBlock(res.Errors, lines, start, base)...)
	t.Warnings.Add(placeBlock(res.Warnings, lines, start, base)...)
	t.Library = append(t.Library, LibraryEntry{Type: keyword, Head: head, Code: lines})
}

// placeBlock moves diagnostics of a block into document coordinates. Line
// diagnostics gain the line's span; offset diagnostics gain their line.
func placeBlock(list diag.List, lines []string, start, base int) diag.List {
	code := strings.Join(lines, "\n")
	out := make(diag.List, 0, len(list))
	for _, d := range list {
		switch {
		case d.HasPos():
			d = d.Shift(base)
			d.Line = start + strings.Count(code[:min(d.Start-base, len(code))], "\n")
		case d.Line < len(lines):
			lineStart := base + position(lines, d.Line)
			d = d.At(lineStart, lineStart+len(lines[d.Line])).OnLine(start + d.Line)
		default:
			d = d.OnLine(start)
		}
		out = append(out, d)
	}
	return out
}
