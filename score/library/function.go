package library

import (
	"errors"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/dhamidi/tmlex/hostlang"
	"github.com/dhamidi/tmlex/score/alias"
	"github.com/dhamidi/tmlex/score/diag"
	"github.com/dhamidi/tmlex/score/docparse"
)

var log = commonlog.GetLogger("tmlex.library")

type docComment struct {
	start, end int
	doc        *docparse.Annotation
}

// FunctionTokenize reads a block of function declarations. Each function
// takes its parameter types and aliases from the closest doc comment before
// it. Offsets in diagnostics are relative to code.
func FunctionTokenize(code string) *Result {
	res := newResult()
	res.Code = []string{code}

	parser := hostlang.ParseProgram(strings.NewReader(code), hostlang.WithComments())
	program, err := parser.Finish()
	if err != nil {
		d := diag.Errorf(diag.SyntaxError, "%v", err)
		var syntaxErr *hostlang.SyntaxError
		if errors.As(err, &syntaxErr) {
			d = d.At(syntaxErr.Pos.Offset, syntaxErr.Pos.Offset).OnLine(syntaxErr.Pos.Line - 1)
		}
		res.Errors.Add(d)
		return res
	}

	var docs []docComment
	for _, c := range parser.Comments() {
		if c.Kind != hostlang.TokenComment {
			continue
		}
		if doc := docparse.ParseComment(c.Literal); doc != nil {
			docs = append(docs, docComment{start: c.Span.Start.Offset, end: c.Span.End.Offset, doc: doc})
		}
	}

	next, prevEnd := 0, 0
	for _, stmt := range program.Children {
		start, end := stmt.Span.Start.Offset, stmt.Span.End.Offset

		var doc *docparse.Annotation
		for next < len(docs) && docs[next].end <= start {
			if docs[next].start >= prevEnd {
				doc = docs[next].doc
			}
			next++
		}
		prevEnd = end

		if stmt.Kind != hostlang.KindFunctionDecl {
			res.Errors.Add(diag.Errorf(diag.NotFuncDecl, "%s is not a function declaration", stmt.Kind).
				At(start, end).
				With("type", stmt.Kind.String()))
			continue
		}
		res.addFunction(stmt, doc)
	}
	log.Debugf("extracted %d functions and %d aliases", len(res.Dict), len(res.Alias))
	return res
}

func (res *Result) addFunction(fn *hostlang.Node, doc *docparse.Annotation) {
	name := fn.Name()
	start, end := fn.Span.Start.Offset, fn.Span.End.Offset

	voidQ, err := IsVoid(fn)
	if err != nil {
		res.Errors.Add(diag.Errorf(diag.VoidAnalysis, "%s: %v", name, err).
			At(start, end).
			With("name", name))
		return
	}

	entry := FunctionEntry{Name: name, VoidQ: voidQ}
	for _, param := range fn.Params() {
		entry.Params = append(entry.Params, paramType(param, doc))
		if param.Kind == hostlang.KindRestParameter {
			entry.Variadic = true
		}
	}
	res.Dict = append(res.Dict, entry)

	if doc == nil {
		return
	}
	order := 0
	for _, src := range doc.Aliases {
		rule := alias.New(src)
		if !rule.Analyze() {
			for _, w := range rule.Warnings {
				res.Warnings.Add(w.At(start, end).With("name", name))
			}
			continue
		}
		if !entry.Variadic && rule.Arity > len(entry.Params) {
			res.Warnings.Add(diag.Warningf(diag.AliasArity, "alias takes %d arguments but %s has %d parameters",
				rule.Arity, name, len(entry.Params)).
				At(start, end).
				With("name", name).
				With("src", src))
			continue
		}
		rule.Name, rule.Order, rule.VoidQ = name, order, voidQ
		res.Alias = append(res.Alias, rule)
		order++
	}
}

func paramType(param *hostlang.Node, doc *docparse.Annotation) string {
	if doc == nil {
		return "any"
	}
	switch param.Kind {
	case hostlang.KindParameter, hostlang.KindDefaultParameter:
		if types, ok := doc.Params[param.Name()]; ok {
			return types
		}
	}
	return "any"
}
