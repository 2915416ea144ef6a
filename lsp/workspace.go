package lsp

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dhamidi/tmlex/config"
	"github.com/dhamidi/tmlex/score/library"
	"github.com/dhamidi/tmlex/score/loader"
	"github.com/dhamidi/tmlex/score/syntax"
	"github.com/dhamidi/tmlex/score/token"
	"github.com/dhamidi/tmlex/score/tokenizer"
)

// Workspace holds the open scores. It is safe for concurrent use.
type Workspace struct {
	mu     sync.RWMutex
	cfg    *config.Config
	loader *loader.FileLoader
	files  map[string]*File
}

// File is one tokenized score.
type File struct {
	Path    string
	Content string
	Doc     *tokenizer.Document
	Library *library.Library

	lines lineIndex
}

func NewWorkspace(cfg *config.Config) *Workspace {
	return &Workspace{
		cfg:    cfg,
		loader: loader.New(cfg.Library),
		files:  make(map[string]*File),
	}
}

func (w *Workspace) Config() *config.Config {
	return w.cfg
}

// Update tokenizes content as the new text of path.
func (w *Workspace) Update(path, content string) *File {
	f := w.tokenize(path, content)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.files[path] = f
	return f
}

func (w *Workspace) tokenize(path, content string) *File {
	content = normalize(content)
	t := tokenizer.New(content,
		tokenizer.WithLoader(w.loader),
		tokenizer.WithLibraryPath(w.cfg.Library),
		tokenizer.WithAutoload(w.cfg.Autoload),
		tokenizer.WithDirectory(filepath.Dir(path)),
	)
	t.Tokenize(false)
	log.Debugf("tokenized %s: %d errors, %d warnings", path, len(t.Errors), len(t.Warnings))
	return &File{
		Path:    path,
		Content: content,
		Doc:     t.Document(),
		Library: t.Syntax,
		lines:   newLineIndex(content),
	}
}

func (w *Workspace) Remove(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.files, path)
}

func (w *Workspace) File(path string) *File {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.files[path]
}

// Refresh drops cached libraries and tokenizes every open file again.
func (w *Workspace) Refresh() []*File {
	w.loader.Reset()

	w.mu.RLock()
	current := make([]*File, 0, len(w.files))
	for _, f := range w.files {
		current = append(current, f)
	}
	w.mu.RUnlock()

	sort.Slice(current, func(i, j int) bool { return current[i].Path < current[j].Path })
	out := make([]*File, len(current))
	for i, f := range current {
		out[i] = w.Update(f.Path, f.Content)
	}
	return out
}

// Tokens returns every top-level token of the file in document order.
func (f *File) Tokens() []token.Token {
	var out []token.Token
	for _, section := range f.Doc.Sections {
		out = append(out, section.Prolog...)
		for _, setting := range section.Settings {
			out = append(out, setting.Spec...)
		}
		for _, track := range section.Tracks {
			out = append(out, track.Content...)
		}
		out = append(out, section.Epilog...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Pos().Start < out[j].Pos().Start
	})
	return out
}

type SymbolKind int

const (
	SymbolSection SymbolKind = iota
	SymbolTrack
	SymbolInstrument
)

type Symbol struct {
	Name     string
	Detail   string
	Kind     SymbolKind
	Span     token.Span
	Children []Symbol
}

// Symbols lists sections with their tracks.
func (f *File) Symbols() []Symbol {
	var out []Symbol
	for i, section := range f.Doc.Sections {
		sym := Symbol{
			Name: fmt.Sprintf("Section %d", i+1),
			Kind: SymbolSection,
		}
		if len(section.Comment) > 0 {
			sym.Detail = strings.TrimSpace(section.Comment[0])
		}
		if i < len(f.Doc.Index.Sections) {
			sym.Span.Start = f.Doc.Index.Base + f.Doc.Index.Sections[i].Start
		}
		sym.Span.End = sym.Span.Start

		for _, track := range section.Tracks {
			child := Symbol{
				Name: track.Name,
				Kind: SymbolTrack,
				Span: track.Span,
			}
			if child.Name == "" {
				child.Name = fmt.Sprintf("Track %d", track.Index+1)
			}
			var names []string
			for _, inst := range track.Instruments {
				names = append(names, inst.Name)
				child.Children = append(child.Children, Symbol{
					Name: inst.Name,
					Kind: SymbolInstrument,
					Span: inst.Span,
				})
			}
			child.Detail = strings.Join(names, ", ")
			sym.Children = append(sym.Children, child)
			sym.Span.End = max(sym.Span.End, track.Span.End)
		}
		out = append(out, sym)
	}
	return out
}

// Hover describes what is at offset: a function call, an instrument or a
// chord symbol.
func (f *File) Hover(offset int) (string, token.Span, bool) {
	for _, section := range f.Doc.Sections {
		for _, track := range section.Tracks {
			for _, inst := range track.Instruments {
				if inst.Span.Contains(offset) {
					return describeInstrument(inst), inst.Span, true
				}
			}
		}
	}

	var fn *token.Function
	var pitch *token.Pitch
	token.Walk(f.Tokens(), func(tok token.Token) bool {
		if !tok.Pos().Contains(offset) {
			return false
		}
		switch t := tok.(type) {
		case *token.Function:
			fn = t
		case *token.Pitch:
			pitch = t
		}
		return true
	})

	if pitch != nil && pitch.Chord != "" {
		for i := len(f.Library.Chord) - 1; i >= 0; i-- {
			c := f.Library.Chord[i]
			if c.Notation == pitch.Chord {
				return describeChord(c), pitch.Pos(), true
			}
		}
	}
	if fn != nil {
		return f.describeFunction(fn), fn.Pos(), true
	}
	return "", token.Span{}, false
}

func (f *File) describeFunction(fn *token.Function) string {
	var sb strings.Builder
	entry, ok := f.Library.Function(fn.Name)
	if !ok {
		fmt.Fprintf(&sb, "`%s` is not declared in the loaded libraries", fn.Name)
		return sb.String()
	}
	fmt.Fprintf(&sb, "```\n%s\n```", Signature(entry))
	if fn.Order >= 0 {
		for _, a := range f.Library.Alias {
			if a.Name == fn.Name && a.Order == fn.Order {
				fmt.Fprintf(&sb, "\n\nalias `%s`", a.Source)
				break
			}
		}
	}
	return sb.String()
}

// Signature renders a function declaration such as
// "Tremolo(any, number|string, ...any) void".
func Signature(entry library.FunctionEntry) string {
	params := append([]string(nil), entry.Params...)
	if entry.Variadic && len(params) > 0 {
		params[len(params)-1] = "..." + params[len(params)-1]
	}
	result := "value"
	if entry.VoidQ {
		result = "void"
	}
	return fmt.Sprintf("%s(%s) %s", entry.Name, strings.Join(params, ", "), result)
}

func describeInstrument(inst *syntax.Instrument) string {
	var names []string
	for _, m := range inst.Dict {
		names = append(names, m.Name)
	}
	kind := "pitched instrument"
	if inst.Percussion {
		kind = fmt.Sprintf("percussion, key %d", inst.Key)
	}
	return fmt.Sprintf("**%s** (%s)\n\npitches: %s", inst.Name, kind, strings.Join(names, " "))
}

func describeChord(c library.ChordEntry) string {
	var items []string
	for _, p := range c.Pitches {
		items = append(items, fmt.Sprintf("(%d, %d, %d)", p[0], p[1], p[2]))
	}
	text := fmt.Sprintf("chord **%s**: %s", c.Notation, strings.Join(items, " "))
	if c.Comment != "" {
		text += "\n\n" + c.Comment
	}
	return text
}

type CompletionKind int

const (
	CompletionFunction CompletionKind = iota
	CompletionInstrument
)

type Completion struct {
	Label  string
	Kind   CompletionKind
	Detail string
}

// Completions proposes instrument names inside a track header and function
// names elsewhere, filtered by the word before offset.
func (f *File) Completions(offset int) []Completion {
	pos := f.lines.Position(offset)
	lineText := f.lines.line(pos.Line)
	col := offset - f.lines.starts[pos.Line]
	before := lineText[:min(col, len(lineText))]

	start := len(before)
	for start > 0 && isWordByte(before[start-1]) {
		start--
	}
	prefix := strings.ToLower(before[start:])

	var out []Completion
	if strings.HasPrefix(lineText, "<") && !strings.Contains(before, ">") && f.startsTrack(pos.Line) {
		for _, kind := range []syntax.InstrumentKind{syntax.Pitched, syntax.Percussion} {
			detail := "pitched"
			if kind == syntax.Percussion {
				detail = "percussion"
			}
			for _, name := range syntax.InstrumentNames(kind) {
				if strings.HasPrefix(strings.ToLower(name), prefix) {
					out = append(out, Completion{Label: name, Kind: CompletionInstrument, Detail: detail})
				}
			}
		}
		return out
	}

	seen := map[string]bool{}
	for i := len(f.Library.Dict) - 1; i >= 0; i-- {
		entry := f.Library.Dict[i]
		if seen[entry.Name] || !strings.HasPrefix(strings.ToLower(entry.Name), prefix) {
			continue
		}
		seen[entry.Name] = true
		out = append(out, Completion{Label: entry.Name, Kind: CompletionFunction, Detail: Signature(entry)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// startsTrack reports whether line opens a track: it is the first line of
// the document body or follows a blank or comment line.
func (f *File) startsTrack(line int) bool {
	if line == 0 {
		return true
	}
	prev := strings.TrimSpace(f.lines.line(line - 1))
	return prev == "" || strings.HasPrefix(prev, "//")
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
