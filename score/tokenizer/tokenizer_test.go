package tokenizer

import (
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/tmlex/score/diag"
	"github.com/dhamidi/tmlex/score/library"
	"github.com/dhamidi/tmlex/score/token"
)

type mapLoader map[string]*library.Library

func (m mapLoader) LoadLibrary(path string) (*library.Library, error) {
	lib, ok := m[path]
	if !ok {
		return nil, fmt.Errorf("load %s: %w", path, fs.ErrNotExist)
	}
	return lib, nil
}

func degreesOf(content []token.Token) []string {
	var out []string
	for _, tok := range content {
		if note, ok := tok.(*token.Note); ok {
			out = append(out, note.Pitches[0].Degree)
		}
	}
	return out
}

func TestChordAndInstrument(t *testing.T) {
	tk := New("# chord\nC\t\t[0]1,[0]3,[0]5\n# end\n<piano:\n1 3 5")
	tk.Tokenize(false)
	doc := tk.Document()

	require.Len(t, tk.Syntax.Chord, 1)
	assert.Equal(t, "C", tk.Syntax.Chord[0].Notation)
	assert.Equal(t, [][3]int{{0, 1, 0}, {0, 3, 0}, {0, 5, 0}}, tk.Syntax.Chord[0].Pitches)
	assert.Zero(t, doc.Warnings.Count(diag.InvChordDecl))
	assert.Empty(t, doc.Errors)

	require.Len(t, doc.Sections, 1)
	require.Len(t, doc.Sections[0].Tracks, 1)
	track := doc.Sections[0].Tracks[0]
	require.Len(t, track.Instruments, 1)
	assert.Equal(t, "piano", track.Instruments[0].Name)
	assert.Equal(t, []string{"1", "3", "5"}, degreesOf(track.Content))
	assert.Len(t, track.Content, 3)

	assert.Equal(t, []LibraryEntry{
		{Type: "chord", Head: "# chord", Code: []string{"C\t\t[0]1,[0]3,[0]5"}},
		{Type: "end", Head: "# end"},
	}, doc.Library)

	base := len("# chord\nC\t\t[0]1,[0]3,[0]5\n# end\n")
	assert.Equal(t, base, doc.Index.Base)
	first := track.Content[0].Pos()
	assert.Equal(t, base+len("<piano:\n"), first.Start)
}

func TestUnknownInstrument(t *testing.T) {
	doc := Parse("<xyz:\n1")
	require.Len(t, doc.Sections, 1)
	require.Len(t, doc.Sections[0].Tracks, 1)
	track := doc.Sections[0].Tracks[0]

	assert.Empty(t, track.Instruments)
	assert.Equal(t, 1, doc.Warnings.Count(diag.NotInstrument))
	assert.Equal(t, "xyz", doc.Warnings[0].Args["name"])
	assert.Equal(t, []string{"0", "%", "1", "2", "3", "4", "5", "6", "7"}, track.Degrees)
	assert.Equal(t, []string{"1"}, degreesOf(track.Content))
	assert.Equal(t, []token.Span{{Start: 1, End: 4}}, doc.Scoping.Inst)
}

func TestSectioning(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		sections []int
	}{
		{"one blank line keeps the section", "1\n\n2", []int{2}},
		{"two blank lines split", "1\n\n\n2", []int{1, 1}},
		{"comment lines count as blank", "1\n//x\n//y\n2", []int{1, 1}},
		{"leading blanks never make an empty section", "\n\n\n1", []int{1}},
		{"continuation lines join a track", "1\n2\n\n3", []int{2}},
		{"empty document", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Parse(tt.input)
			var sizes []int
			for _, s := range doc.Sections {
				sizes = append(sizes, len(s.Tracks))
			}
			assert.Equal(t, tt.sections, sizes)
			assert.Len(t, doc.Index.Sections, len(tt.sections))
		})
	}
}

func TestSectionIndexAndComments(t *testing.T) {
	doc := Parse("1\n2\n\n3\n//next\n\n4")
	require.Len(t, doc.Sections, 2)
	assert.Equal(t, []SectionIndex{
		{Start: 0, Tracks: []int{0, 5}},
		{Start: 14, Tracks: []int{15}},
	}, doc.Index.Sections)
	assert.Len(t, doc.Sections[0].Tracks, 2, "adjacent lines form one track")
	assert.Equal(t, []string{"next"}, doc.Sections[0].Comment, "comments before the split close with the section")
	assert.Empty(t, doc.Sections[1].Comment)
}

func TestPrologSettingsEpilog(t *testing.T) {
	doc := Parse("Tempo(120) ! Volume(2)\n\nVolume(3)\n\n1 2\n\nVolume(1)")
	require.Len(t, doc.Sections, 1)
	s := doc.Sections[0]

	require.Len(t, s.Prolog, 1)
	assert.Equal(t, "Tempo", s.Prolog[0].(*token.Function).Name)
	require.Len(t, s.Epilog, 1)
	assert.Equal(t, "Volume", s.Epilog[0].(*token.Function).Name)

	require.Len(t, s.Settings, 3)
	assert.Equal(t, 0, s.Settings[0].Index)
	require.Len(t, s.Settings[0].Spec, 2)
	assert.IsType(t, &token.LocalIndicator{}, s.Settings[0].Spec[0])
	assert.Equal(t, 1, s.Settings[1].Index)
	assert.Len(t, s.Settings[1].Spec, 1, "a middle settings track keeps everything")
	assert.Equal(t, 3, s.Settings[2].Index)
	assert.Empty(t, s.Settings[2].Spec)

	require.Len(t, s.Tracks, 1)
	assert.Equal(t, 2, s.Tracks[0].Index)
}

func TestLeadingCommentsAndDirectives(t *testing.T) {
	tk := New("//Title\n//Author\n\n# Bogus\n#\n# END\n1")
	tk.Tokenize(false)
	doc := tk.Document()

	assert.Equal(t, []string{"Title", "Author"}, doc.Comment)
	require.Len(t, doc.Errors, 1)
	assert.Equal(t, diag.InvalidCommand, doc.Errors[0].Code)
	assert.Equal(t, "Bogus", doc.Errors[0].Args["src"])
	assert.Equal(t, 3, doc.Errors[0].Line)
	assert.Equal(t, []LibraryEntry{{Type: "end", Head: "# END"}}, doc.Library)
	require.Len(t, doc.Sections, 1)
}

func TestIncludes(t *testing.T) {
	std := library.New()
	std.Chord = []library.ChordEntry{{Notation: "M", Pitches: [][3]int{{0, 0, 0}}}}
	local := library.New()
	local.Types["Trill"] = "trill"

	loader := mapLoader{"lib/std": std, "/score/local/extra": local}
	doc := Parse("# include std\n# include ./local/extra\n# include missing\n1M",
		WithLoader(loader), WithLibraryPath("lib"), WithDirectory("/score"))

	assert.Equal(t, []LibraryEntry{
		{Type: "include", Head: "# include std"},
		{Type: "include", Head: "# include ./local/extra"},
	}, doc.Library)
	require.Len(t, doc.Errors, 1)
	assert.Equal(t, diag.Loading, doc.Errors[0].Code)
	assert.Equal(t, "lib/missing", doc.Errors[0].Args["path"])

	assert.Equal(t, []token.Span{{Start: 10, End: 13}, {Start: 24, End: 37}, {Start: 48, End: 55}}, doc.Scoping.Pack)

	note := doc.Sections[0].Tracks[0].Content[0].(*token.Note)
	assert.Equal(t, "M", note.Pitches[0].Chord)
}

func TestAutoload(t *testing.T) {
	auto := library.New()
	auto.Chord = []library.ChordEntry{{Notation: "m"}}
	tk := New("1m", WithLoader(mapLoader{"lib/auto": auto}), WithLibraryPath("lib"), WithAutoload("auto"))
	tk.Tokenize(false)

	assert.Empty(t, tk.Errors)
	assert.True(t, tk.Syntax.Frozen())
	note := tk.Sections[0].Tracks[0].Content[0].(*token.Note)
	assert.Equal(t, "m", note.Pitches[0].Chord)

	tk = New("1", WithLibraryPath("lib"), WithAutoload("auto"))
	tk.Tokenize(false)
	require.Len(t, tk.Errors, 1)
	assert.Equal(t, diag.Loading, tk.Errors[0].Code)
}

func TestFunctionDirective(t *testing.T) {
	doc := Parse("# function\n/**\n * @alias ${1}~\n */\nfunction Trem(n) {}\nvar x = 1\n# end\n3~ 1")
	require.Len(t, doc.Errors, 1)
	assert.Equal(t, diag.NotFuncDecl, doc.Errors[0].Code)
	assert.Equal(t, 5, doc.Errors[0].Line)
	assert.Equal(t, len("# function\n/**\n * @alias ${1}~\n */\nfunction Trem(n) {}\n"), doc.Errors[0].Start)

	track := doc.Sections[0].Tracks[0]
	fn := track.Content[0].(*token.Function)
	assert.Equal(t, "Trem", fn.Name)
	assert.Equal(t, "3", fn.Args[0].(*token.Number).Content)
	require.Len(t, doc.Scoping.Func, 1)
	assert.Equal(t, fn.Pos(), doc.Scoping.Func[0])
}

func TestChordWarningsArePlaced(t *testing.T) {
	doc := Parse("# chord\nC\t[0]1\nnonsense\n# end\n1")
	require.Len(t, doc.Warnings, 1)
	w := doc.Warnings[0]
	assert.Equal(t, diag.InvChordDecl, w.Code)
	assert.Equal(t, 2, w.Line)
	assert.Equal(t, 15, w.Start)
	assert.Equal(t, 23, w.End)
}

func TestTrackHeaderForms(t *testing.T) {
	tk := New("<:lead:Violin>1 2\n\n<Flute>3")
	tk.Tokenize(false)
	tracks := tk.Sections[0].Tracks
	require.Len(t, tracks, 2)

	assert.False(t, tracks[0].Play)
	assert.Equal(t, "lead", tracks[0].Name)
	assert.Equal(t, []string{"1", "2"}, degreesOf(tracks[0].Content))
	assert.True(t, tracks[1].Play)
	assert.Empty(t, tracks[1].Name)

	code, ok := tk.Macro("lead")
	require.True(t, ok)
	assert.Equal(t, "1 2", code)
	_, ok = tk.Macro("Flute")
	assert.False(t, ok)
}

func TestMacroLastWriteWins(t *testing.T) {
	tk := New("<a:Piano>1\n\n<a:Piano>2")
	tk.Tokenize(false)
	code, ok := tk.Macro("a")
	require.True(t, ok)
	assert.Equal(t, "2", code)
}

func TestNormalization(t *testing.T) {
	doc := Parse("\ufeff1\r\n2")
	require.Len(t, doc.Sections, 1)
	content := doc.Sections[0].Tracks[0].Content
	require.Len(t, content, 2)
	assert.Equal(t, token.Span{Start: 2, End: 3}, content[1].Pos())
}

func TestStructureError(t *testing.T) {
	doc := Parse("1 {2 3")
	require.Len(t, doc.Errors, 1)
	assert.Equal(t, diag.Structure, doc.Errors[0].Code)
	assert.Equal(t, 6, doc.Errors[0].Start)
	require.Len(t, doc.Sections, 1, "a best-effort document is still produced")
}

func TestIdempotence(t *testing.T) {
	tk := New("1\n\n\n2")
	first := tk.Tokenize(false)
	assert.Equal(t, first, tk.Tokenize(false))
	assert.Same(t, tk.Initialize(false), tk.Syntax)

	again := tk.Tokenize(true)
	assert.Len(t, again, 2)
	assert.Len(t, tk.Index.Sections, 2)
}

func TestForcedTokenizeKeepsDiagnostics(t *testing.T) {
	tk := New("# bogus\n<a:xyz>1 ?")
	tk.Tokenize(false)
	errs, warnings := len(tk.Errors), len(tk.Warnings)
	require.Equal(t, 1, errs)
	require.Equal(t, 1, tk.Warnings.Count(diag.NotInstrument))
	require.Positive(t, tk.Warnings.Count(diag.Undefined))
	first := tk.Document()

	tk.Tokenize(true)
	assert.Len(t, tk.Errors, errs)
	assert.Len(t, tk.Warnings, warnings)
	assert.Len(t, first.Warnings, warnings, "earlier documents are not modified")
	_, ok := tk.Macro("a")
	assert.True(t, ok)
}

func TestForcedInitializeRetokenizes(t *testing.T) {
	tk := New("# chord\nM\t\t[0]1\n# end\n1M")
	first := tk.Tokenize(false)
	require.True(t, tk.Syntax.Frozen())

	lib := tk.Initialize(true)
	assert.False(t, lib.Frozen())
	again := tk.Tokenize(false)
	assert.True(t, tk.Syntax.Frozen())
	require.Len(t, again, 1)
	assert.NotSame(t, first[0], again[0])
	assert.Len(t, tk.Syntax.Chord, 1)
}
