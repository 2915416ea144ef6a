package lsp

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/dhamidi/tmlex/config"
	"github.com/dhamidi/tmlex/score/diag"
)

const score = "# chord\nM\tmajor\t[0]1,[0]3,[0]5\n# end\n" +
	"# function\n/**\n * @alias ${1}~\n */\nfunction Trem(n) {}\n# end\n" +
	"<piano:\n1M 3~ Trem(2)\n\n<Snare:\nx"

func newWorkspace(t *testing.T) *Workspace {
	t.Helper()
	return NewWorkspace(&config.Config{Library: t.TempDir()})
}

func TestLineIndex(t *testing.T) {
	ix := newLineIndex("aé\n😀b")

	assert.Equal(t, Position{Line: 0, Character: 2}, ix.Position(3))
	assert.Equal(t, Position{Line: 1, Character: 0}, ix.Position(4))
	assert.Equal(t, Position{Line: 1, Character: 2}, ix.Position(8))
	assert.Equal(t, Position{Line: 1, Character: 3}, ix.Position(100))

	assert.Equal(t, 8, ix.Offset(Position{Line: 1, Character: 2}))
	assert.Equal(t, 3, ix.Offset(Position{Line: 0, Character: 99}))
	assert.Equal(t, 9, ix.Offset(Position{Line: 5}))
	assert.Equal(t, "😀b", ix.line(1))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a\nb", normalize("\ufeffa\r\nb"))
}

func TestWorkspaceSymbols(t *testing.T) {
	w := newWorkspace(t)
	f := w.Update("/scores/etude.tml", score)
	require.Empty(t, f.Doc.Errors)

	symbols := f.Symbols()
	require.Len(t, symbols, 1)
	section := symbols[0]
	assert.Equal(t, "Section 1", section.Name)
	assert.Equal(t, strings.Index(score, "<piano"), section.Span.Start)
	assert.Equal(t, len(score), section.Span.End)

	require.Len(t, section.Children, 2)
	assert.Equal(t, "Track 1", section.Children[0].Name)
	assert.Equal(t, "piano", section.Children[0].Detail)
	assert.Equal(t, "Track 2", section.Children[1].Name)
	assert.Equal(t, "Snare", section.Children[1].Detail)
	require.Len(t, section.Children[1].Children, 1)
	assert.Equal(t, SymbolInstrument, section.Children[1].Children[0].Kind)

	assert.Same(t, f, w.File("/scores/etude.tml"))
	w.Remove("/scores/etude.tml")
	assert.Nil(t, w.File("/scores/etude.tml"))
}

func TestWorkspaceHover(t *testing.T) {
	f := newWorkspace(t).Update("etude.tml", score)

	tests := []struct {
		name   string
		at     string
		offset int
		want   string
	}{
		{"chord", "1M", 1, "chord **M**"},
		{"alias", "3~", 0, "alias `${1}~`"},
		{"call", "Trem(2)", 0, "Trem(any) void"},
		{"pitched instrument", "piano", 2, "**piano** (pitched instrument)"},
		{"percussion", "Snare", 0, "percussion, key 38"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset := strings.Index(score, tt.at) + tt.offset
			text, span, ok := f.Hover(offset)
			require.True(t, ok)
			assert.Contains(t, text, tt.want)
			assert.True(t, span.Contains(offset))
		})
	}

	_, _, ok := f.Hover(0)
	assert.False(t, ok)
}

func TestWorkspaceCompletions(t *testing.T) {
	w := newWorkspace(t)

	f := w.Update("a.tml", "<pia")
	var labels []string
	for _, c := range f.Completions(4) {
		assert.Equal(t, CompletionInstrument, c.Kind)
		labels = append(labels, c.Label)
	}
	assert.Contains(t, labels, "Piano")
	assert.NotContains(t, labels, "Snare")

	src := "# function\nfunction Trem(n) {}\nfunction Tempo(x, ...y) { return x }\nfunction Vol(v) {}\n# end\n1 Tr"
	f = w.Update("b.tml", src)
	completions := f.Completions(len(src))
	require.Len(t, completions, 1)
	assert.Equal(t, "Trem", completions[0].Label)
	assert.Equal(t, CompletionFunction, completions[0].Kind)

	completions = f.Completions(len(src) - 2)
	require.Len(t, completions, 3)
	assert.Equal(t, "Tempo(any, ...any) value", completions[0].Detail)
}

func TestWorkspaceRefresh(t *testing.T) {
	lib := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(lib, "std.tml"), []byte("# chord\nM\t\t[0]1\n"), 0o644))
	w := NewWorkspace(&config.Config{Library: lib})

	f := w.Update("a.tml", "# include std\n1M")
	assert.Empty(t, f.Doc.Errors)
	assert.Zero(t, f.Doc.Warnings.Count(diag.Undefined))

	require.NoError(t, os.WriteFile(filepath.Join(lib, "std.tml"), []byte("# chord\nm\t\t[0]1\n"), 0o644))
	files := w.Refresh()
	require.Len(t, files, 1)
	assert.Positive(t, files[0].Doc.Warnings.Count(diag.Undefined))
	assert.Same(t, files[0], w.File("a.tml"))
}

func TestToDiagnostics(t *testing.T) {
	f := newWorkspace(t).Update("a.tml", "# bogus\n<xyz:\n1")

	diagnostics := toDiagnostics(f)
	require.Len(t, diagnostics, 2)

	invalid := diagnostics[0]
	assert.Equal(t, protocol.DiagnosticSeverityError, *invalid.Severity)
	assert.Equal(t, "InvalidCommand", invalid.Code.Value)
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 0, Character: 0},
		End:   protocol.Position{Line: 0, Character: 7},
	}, invalid.Range)

	notInstrument := diagnostics[1]
	assert.Equal(t, protocol.DiagnosticSeverityWarning, *notInstrument.Severity)
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 1, Character: 1},
		End:   protocol.Position{Line: 1, Character: 4},
	}, notInstrument.Range)
}

func TestToDocumentSymbols(t *testing.T) {
	f := newWorkspace(t).Update("a.tml", "<piano:\n1\n\n<Snare:\nx")
	symbols := toDocumentSymbols(f, f.Symbols())
	require.Len(t, symbols, 1)
	assert.Equal(t, protocol.SymbolKindNamespace, symbols[0].Kind)
	require.Len(t, symbols[0].Children, 2)
	assert.Equal(t, protocol.SymbolKindEvent, symbols[0].Children[0].Kind)
	assert.Equal(t, protocol.UInteger(3), symbols[0].Children[1].Range.Start.Line)
}

func TestURIs(t *testing.T) {
	path, err := uriToPath("file:///home/me/My%20Scores/a.tml")
	require.NoError(t, err)
	assert.Equal(t, "/home/me/My Scores/a.tml", path)
	assert.Equal(t, "file:///home/me/My%20Scores/a.tml", pathToURI(path))
	assert.Equal(t, "untitled:1", pathToURI("untitled:1"))
}

func TestLibraryWatcher(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "std", "main.tml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("# chord\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))

	w := NewLibraryWatcher(root, func() {})
	assert.True(t, w.scan())
	assert.False(t, w.scan())

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))
	assert.True(t, w.scan())

	require.NoError(t, os.WriteFile(filepath.Join(root, "other.txt"), []byte("y"), 0o644))
	assert.False(t, w.scan())

	require.NoError(t, os.Remove(path))
	assert.True(t, w.scan())

	w.Stop()
	w.Stop()
}
