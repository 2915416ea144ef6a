// Package alias compiles the invocation shorthands that library functions
// declare with @alias. An alias source is literal text with numbered
// placeholders:
//
//	${1}~            a number followed by "~"
//	${1:subtrack}*${2}
//
// Placeholders are ${n} or ${n:kind}, where n is the 1-based parameter the
// captured text is passed as and kind is one of number (the default),
// string, word or subtrack.
package alias

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dhamidi/tmlex/score/diag"
	"github.com/dhamidi/tmlex/score/fsm"
	"github.com/dhamidi/tmlex/score/token"
)

type Kind string

const (
	KindNumber   Kind = "number"
	KindString   Kind = "string"
	KindWord     Kind = "word"
	KindSubtrack Kind = "subtrack"
)

// Subtrack arguments may nest braces this deep.
const maxBraceDepth = 3

var kindPatterns = map[Kind]string{
	KindNumber:   `([+\-]?\d+(?:\.\d+)?)`,
	KindString:   `"([^"]*)"`,
	KindWord:     `([a-zA-Z][a-zA-Z\d]*)`,
	KindSubtrack: `\{(` + balanced(maxBraceDepth) + `)\}`,
}

func balanced(depth int) string {
	if depth == 0 {
		return `[^{}]*`
	}
	return `(?:[^{}]|\{` + balanced(depth-1) + `\})*`
}

// Slot maps a capture group of the compiled pattern to a call argument.
type Slot struct {
	Group int
	Index int
	Kind  Kind
}

// Rule is one alias declaration. Name, Order and VoidQ are filled in by the
// library that owns the declaring function.
type Rule struct {
	Source string
	Name   string
	Order  int
	VoidQ  bool

	Pattern  string
	Arity    int
	Slots    []Slot
	Warnings diag.List
}

func New(source string) *Rule {
	return &Rule{Source: source}
}

// Analyze compiles the source. On failure it records warnings and the rule
// must not be installed.
func (r *Rule) Analyze() bool {
	r.Pattern, r.Arity, r.Slots, r.Warnings = "", 0, nil, nil

	src := strings.TrimSpace(r.Source)
	if src == "" {
		r.warn(diag.AliasEmpty, "alias has no source")
		return false
	}

	var (
		pattern strings.Builder
		literal strings.Builder
		seen    = map[int]bool{}
		group   = 0
		text    = false
	)
	flush := func() {
		if literal.Len() > 0 {
			pattern.WriteString(regexp.QuoteMeta(literal.String()))
			if strings.TrimSpace(literal.String()) != "" {
				text = true
			}
			literal.Reset()
		}
	}

	for i := 0; i < len(src); {
		if !strings.HasPrefix(src[i:], "${") {
			literal.WriteByte(src[i])
			i++
			continue
		}
		end := strings.IndexByte(src[i:], '}')
		if end < 0 {
			r.warn(diag.AliasPlaceholder, "unterminated placeholder %q", src[i:])
			return false
		}
		body := src[i+2 : i+end]
		i += end + 1

		index, kind, ok := r.parsePlaceholder(body)
		if !ok {
			return false
		}
		if seen[index] {
			r.warn(diag.AliasDuplicate, "parameter %d is captured twice", index)
			return false
		}
		seen[index] = true

		flush()
		group++
		pattern.WriteString(kindPatterns[kind])
		r.Slots = append(r.Slots, Slot{Group: group, Index: index - 1, Kind: kind})
		if index > r.Arity {
			r.Arity = index
		}
	}
	flush()

	if !text {
		r.warn(diag.AliasEmpty, "alias %q has no literal text", src)
		r.Slots, r.Arity = nil, 0
		return false
	}
	r.Pattern = pattern.String()
	return true
}

func (r *Rule) parsePlaceholder(body string) (int, Kind, bool) {
	num, kindName, hasKind := strings.Cut(body, ":")
	index, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil {
		r.warn(diag.AliasPlaceholder, "malformed placeholder ${%s}", body)
		return 0, "", false
	}
	if index < 1 {
		r.warn(diag.AliasIndex, "parameter index %d is out of range", index)
		return 0, "", false
	}
	kind := KindNumber
	if hasKind {
		kind = Kind(strings.TrimSpace(kindName))
		if _, ok := kindPatterns[kind]; !ok {
			r.warn(diag.AliasKind, "unknown placeholder kind %q", kindName)
			return 0, "", false
		}
	}
	return index, kind, true
}

func (r *Rule) warn(code diag.Code, format string, args ...any) {
	r.Warnings.Add(diag.Warningf(code, format, args...).With("src", r.Source))
}

// FSMRule returns the tokenizer rule for a compiled alias. Subtrack
// arguments are scanned in the given context.
func (r *Rule) FSMRule(subtrackContext string) fsm.Rule {
	return fsm.Rule{
		Name:    fmt.Sprintf("alias %s#%d", r.Name, r.Order),
		Pattern: r.Pattern,
		Token: func(m fsm.Match, _ []token.Token) token.Token {
			return r.token(m, subtrackContext)
		},
	}
}

func (r *Rule) token(m fsm.Match, subtrackContext string) token.Token {
	args := make([]token.Token, r.Arity)
	for _, slot := range r.Slots {
		var arg token.Token
		span := m.GroupSpan(slot.Group)
		switch slot.Kind {
		case KindNumber:
			arg = &token.Number{Content: m.Group(slot.Group)}
		case KindString:
			arg = &token.String{Content: m.Group(slot.Group)}
			span.Start--
			span.End++
		case KindWord:
			arg = &token.String{Content: m.Group(slot.Group)}
		case KindSubtrack:
			content, err := m.Sub(slot.Group, subtrackContext)
			if err != nil {
				m.Warn(diag.Warningf(diag.Structure, "%v", err).With("alias", r.Source))
			}
			arg = &token.Subtrack{Repeat: 1, Content: content}
			span.Start--
			span.End++
		}
		arg.SetPos(span)
		args[slot.Index] = arg
	}
	return &token.Function{
		Name:  r.Name,
		Order: r.Order,
		VoidQ: r.VoidQ,
		Args:  args,
	}
}
