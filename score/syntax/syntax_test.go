package syntax

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/tmlex/score/diag"
	"github.com/dhamidi/tmlex/score/fsm"
	"github.com/dhamidi/tmlex/score/library"
	"github.com/dhamidi/tmlex/score/token"
)

func tokenizeTrack(t *testing.T, lib *library.Library, src string) *fsm.Result {
	t.Helper()
	res, err := NewTrack(lib).Tokenize(src, DefaultDegrees, 0)
	require.NoError(t, err)
	return res
}

func types(tokens []token.Token) []string {
	var out []string
	for _, tok := range tokens {
		out = append(out, tok.Type())
	}
	return out
}

func TestTrackNotes(t *testing.T) {
	res := tokenizeTrack(t, library.New(), "1 3 5")
	require.Len(t, res.Content, 3)
	for i, degree := range []string{"1", "3", "5"} {
		note := res.Content[i].(*token.Note)
		require.Len(t, note.Pitches, 1)
		assert.Equal(t, degree, note.Pitches[0].Degree)
		assert.Equal(t, token.Span{Start: 2 * i, End: 2*i + 1}, note.Pos())
	}
	assert.Empty(t, res.Warnings)
}

func TestTrackNoteOperators(t *testing.T) {
	lib := library.New()
	lib.Chord = []library.ChordEntry{{Notation: "M"}}

	res := tokenizeTrack(t, lib, "1#'M>-.` [135]_ 0 %")
	require.Len(t, res.Content, 4)

	note := res.Content[0].(*token.Note)
	assert.Equal(t, &token.Pitch{
		Base:   token.Base{Span: token.Span{Start: 0, End: 5}},
		Degree: "1", PitOp: "#'", Chord: "M", VolOp: ">",
	}, note.Pitches[0])
	assert.Equal(t, "-.", note.DurOp)
	assert.Equal(t, "`", note.Stac)

	chord := res.Content[1].(*token.Note)
	assert.True(t, chord.Bracket)
	require.Len(t, chord.Pitches, 3)
	assert.Equal(t, "5", chord.Pitches[2].Degree)
	assert.Equal(t, token.Span{Start: 12, End: 13}, chord.Pitches[2].Pos())
	assert.Equal(t, "_", chord.DurOp)
}

func TestTrackStructure(t *testing.T) {
	res := tokenizeTrack(t, library.New(), `Tempo(120, "fast", {1}) |: {2*1 2} ^ (3)1 :| ! 1`)
	assert.Equal(t, []string{
		"FUNCTION", "BarLine", "Subtrack", "Tie", "Tuplet", "Note", "BarLine", "LocalIndicator", "Note",
	}, types(res.Content))

	call := res.Content[0].(*token.Function)
	assert.Equal(t, "Tempo", call.Name)
	assert.Equal(t, -1, call.Order)
	assert.Equal(t, []string{"Number", "String", "Subtrack"}, types(call.Args))
	assert.Equal(t, "fast", call.Args[1].(*token.String).Content)
	assert.True(t, fsm.IsSubtrack(call))

	assert.True(t, res.Content[1].(*token.BarLine).Left)
	sub := res.Content[2].(*token.Subtrack)
	assert.Equal(t, 2, sub.Repeat)
	assert.Len(t, sub.Content, 2)
	assert.Equal(t, 3, res.Content[4].(*token.Tuplet).Radix)
	assert.True(t, res.Content[6].(*token.BarLine).Right)
}

func TestTrackUndefined(t *testing.T) {
	res := tokenizeTrack(t, library.New(), "1 ? 8")
	assert.Equal(t, []string{"Note", "Undefined", "Undefined"}, types(res.Content))
	require.Len(t, res.Warnings, 2)
	assert.Equal(t, diag.Undefined, res.Warnings[0].Code)
	assert.Equal(t, 2, res.Warnings[0].Start)
}

func TestTrackUnterminatedSubtrack(t *testing.T) {
	res, err := NewTrack(library.New()).Tokenize("1 {2 3", DefaultDegrees, 100)
	var structErr *fsm.StructureError
	require.True(t, errors.As(err, &structErr))
	assert.Equal(t, 106, structErr.Offset)
	require.NotNil(t, res)
	require.Len(t, res.Content, 2)
	sub, ok := res.Content[1].(*token.Subtrack)
	require.True(t, ok)
	assert.Len(t, sub.Content, 2)
	assert.Equal(t, token.Span{Start: 102, End: 106}, sub.Pos())
}

func TestTrackAliasesAndNotation(t *testing.T) {
	fns := library.FunctionTokenize(`/**
 * @param {subtrack} body
 * @alias ${1:subtrack}~
 */
function Trem(body) { return body }
`)
	require.Empty(t, fns.Errors)
	notation := library.NotationTokenize([]string{"default\tTrill\ttr(\\d)"})

	lib := library.New()
	require.NoError(t, lib.Merge(fns.Library))
	require.NoError(t, lib.Merge(notation.Library))

	res := tokenizeTrack(t, lib, "{1 2}~ tr3 1")
	assert.Equal(t, []string{"FUNCTION", "Trill", "Note"}, types(res.Content))
	fn := res.Content[0].(*token.Function)
	assert.Equal(t, "Trem", fn.Name)
	assert.Equal(t, 0, fn.Order)
	custom := res.Content[1].(*token.Custom)
	assert.Equal(t, []string{"3"}, custom.Groups)
}

func TestEffectiveDegrees(t *testing.T) {
	assert.Equal(t, []string{"0", "%", "1", "2", "3", "4", "5", "6", "7"}, EffectiveDegrees(DefaultDegrees))
	assert.Equal(t, []string{"0", "%", "x"}, EffectiveDegrees([]string{"0", "%", "x"}))
}

func TestTrackUsesDegreeSet(t *testing.T) {
	res, err := NewTrack(library.New()).Tokenize("x 1", []string{"0", "%", "x"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Note", "Undefined"}, types(res.Content))
}

func tokenizeMeta(t *testing.T, src string) *MetaResult {
	t.Helper()
	meta, err := NewMeta(library.New())
	require.NoError(t, err)
	res, err := meta.Tokenize(src, 0)
	require.NoError(t, err)
	return res
}

func TestMetaPitchedInstrument(t *testing.T) {
	res := tokenizeMeta(t, "piano")
	require.Len(t, res.Instruments, 1)
	inst := res.Instruments[0]
	assert.Equal(t, "piano", inst.Name)
	assert.False(t, inst.Percussion)
	require.Len(t, inst.Dict, 7)
	assert.Equal(t, Macro{Name: "5", Offset: 7}, inst.Dict[4])
	assert.Equal(t, []string{"0", "%", "1", "2", "3", "4", "5", "6", "7"}, res.Degrees)
	assert.Equal(t, 5, res.Index)
	assert.Empty(t, res.Warnings)
}

func TestMetaUnknownInstruments(t *testing.T) {
	res := tokenizeMeta(t, "xyz, Violin 1, abc>3 4")
	require.Len(t, res.Instruments, 1)
	assert.Equal(t, "Violin", res.Instruments[0].Name)
	assert.Equal(t, []string{"Space", "Note"}, types(res.Instruments[0].Spec))
	assert.Equal(t, 19, res.Index, "the closing '>' is consumed")
	assert.Len(t, res.Scopes, 3)

	require.Equal(t, 2, res.Warnings.Count(diag.NotInstrument))
	assert.Equal(t, "xyz", res.Warnings[0].Args["name"])
	assert.Equal(t, "abc", res.Warnings[1].Args["name"])
}

func TestMetaPercussion(t *testing.T) {
	res := tokenizeMeta(t, "Snare[a][b=1]>")
	require.Len(t, res.Instruments, 1)
	inst := res.Instruments[0]
	assert.True(t, inst.Percussion)
	assert.Equal(t, 38, inst.Key)
	assert.Equal(t, []Macro{{Name: "x", Offset: -22}, {Name: "a", Offset: -22}}, inst.Dict)
	assert.Equal(t, []string{"0", "%", "x", "a"}, res.Degrees)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, diag.PitchDef, res.Warnings[0].Code)
	assert.Equal(t, "b", res.Warnings[0].Args["name"])
}

func TestMetaMacros(t *testing.T) {
	res := tokenizeMeta(t, "PIANO[a=1'][a=3][q] > 1")
	require.Len(t, res.Instruments, 1)
	dict := res.Instruments[0].Dict
	require.Len(t, dict, 8)
	assert.Equal(t, "a", dict[7].Name)
	require.Len(t, dict[7].Pitches, 1)
	assert.Equal(t, "1", dict[7].Pitches[0].Degree, "the first definition wins")
	assert.Equal(t, "'", dict[7].Pitches[0].PitOp)

	assert.Equal(t, 1, res.Warnings.Count(diag.DupMacroPitch))
	assert.Equal(t, 1, res.Warnings.Count(diag.NoPitchDef))
	assert.Contains(t, res.Degrees, "a")
	assert.NotContains(t, res.Degrees, "q")
	assert.Equal(t, 21, res.Index)
}

func TestMetaMacrosAcrossInstruments(t *testing.T) {
	res := tokenizeMeta(t, "piano[a=1], violin[a=2]>")
	require.Len(t, res.Instruments, 2)
	assert.Equal(t, 1, res.Warnings.Count(diag.DupMacroPitch))
	assert.Equal(t, "violin", res.Warnings[0].Args["inst"])

	piano, violin := res.Instruments[0].Dict, res.Instruments[1].Dict
	require.Len(t, piano, 8)
	assert.Equal(t, "1", piano[7].Pitches[0].Degree)
	assert.Len(t, violin, 7, "the first definition in the header wins")
	assert.Equal(t, []string{"0", "%", "1", "2", "3", "4", "5", "6", "7", "a"}, res.Degrees)
}

func TestLookupInstrument(t *testing.T) {
	kind, _ := LookupInstrument("violin")
	assert.Equal(t, Pitched, kind)
	kind, key := LookupInstrument("bassdrum")
	assert.Equal(t, Percussion, kind)
	assert.Equal(t, 36, key)
	kind, _ = LookupInstrument("kazoo")
	assert.Equal(t, Unknown, kind)
	assert.Contains(t, InstrumentNames(Percussion), "Snare")
}
