package library

import (
	"regexp"
	"strings"

	"github.com/dhamidi/tmlex/score/diag"
)

var notationType = regexp.MustCompile(`^[A-Za-z][A-Za-z\d]*$`)

// NotationTokenize reads the lines of a notation block. Each line adds a
// rule to a context:
//
//	default	Trill	~+	repeated upper neighbour
//
// The fields are the context, the token type, the pattern and an optional
// description, separated by tabs.
func NotationTokenize(lines []string) *Result {
	res := newResult()
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 3 || len(fields) > 4 {
			res.Warnings.Add(invalidNotation(i, line, "expected context, type and pattern"))
			continue
		}
		context, typ, pattern := strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1]), fields[2]
		if context == "" || !notationType.MatchString(typ) || pattern == "" {
			res.Warnings.Add(invalidNotation(i, line, "malformed field"))
			continue
		}
		re, err := regexp.Compile(`^(?:` + pattern + `)`)
		if err != nil {
			res.Warnings.Add(invalidNotation(i, line, err.Error()))
			continue
		}
		if re.MatchString("") {
			res.Warnings.Add(invalidNotation(i, line, "pattern matches empty input"))
			continue
		}
		rule := NotationRule{Type: typ, Pattern: pattern}
		if len(fields) == 4 {
			rule.Description = strings.TrimSpace(fields[3])
		}
		res.Context[context] = append(res.Context[context], rule)
		res.Types[typ] = rule.Description
	}
	return res
}

func invalidNotation(line int, src, reason string) diag.Diagnostic {
	return diag.Warningf(diag.InvNotationDecl, "invalid notation declaration: %s", reason).
		OnLine(line).
		With("src", src)
}
