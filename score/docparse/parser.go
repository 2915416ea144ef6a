// Package docparse reads the block comments that document library functions.
// Only comments whose every non-blank line starts with '*' are recognized:
//
//	/**
//	 * @param {number|string} times
//	 * @alias ${1}~
//	 */
package docparse

import (
	"strings"
	"unicode"
)

// Annotation is what a recognized doc comment declares.
type Annotation struct {
	// Params maps a parameter name to its declared types, kept verbatim
	// ("number|string").
	Params map[string]string
	// Aliases holds the raw remainder of every @alias line, in order.
	Aliases []string
}

// Types splits the declared types of a parameter. It returns nil when the
// parameter is undeclared.
func (a *Annotation) Types(name string) []string {
	decl, ok := a.Params[name]
	if !ok {
		return nil
	}
	var types []string
	for _, t := range strings.Split(decl, "|") {
		if t != "" {
			types = append(types, t)
		}
	}
	return types
}

// Parser reads one line of a doc comment at a time.
type Parser struct {
	input []rune
	pos   int
	len   int
}

// Parse reads a comment body, the text between "/*" and "*/". It returns nil
// when the comment does not have the doc comment shape.
func Parse(body string) *Annotation {
	var lines []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "*") {
			return nil
		}
		lines = append(lines, line)
	}

	doc := &Annotation{Params: map[string]string{}}
	for _, line := range lines {
		p := &Parser{input: []rune(line)}
		p.len = len(p.input)
		p.parseLine(doc)
	}
	return doc
}

// ParseComment is Parse for a complete block comment including its delimiters.
func ParseComment(comment string) *Annotation {
	body := strings.TrimPrefix(comment, "/*")
	body = strings.TrimSuffix(body, "*/")
	return Parse(body)
}

func (p *Parser) parseLine(doc *Annotation) {
	p.advance(1) // '*'
	p.skipHorizontalWhitespace()
	if p.peek() != '@' {
		return
	}
	p.advance(1)

	switch p.readTagName() {
	case "param":
		name, types, ok := p.parseParamTag()
		if ok {
			doc.Params[name] = types
		}
	case "alias":
		doc.Aliases = append(doc.Aliases, p.parseAliasTag())
	}
}

// parseParamTag reads "{T|U} name". Anything else is ignored.
func (p *Parser) parseParamTag() (name, types string, ok bool) {
	p.skipSpaces()
	if p.peek() != '{' {
		return "", "", false
	}
	p.advance(1)

	start := p.pos
	for p.pos < p.len && isTypeChar(p.peek()) {
		p.advance(1)
	}
	if p.pos == start || p.peek() != '}' {
		return "", "", false
	}
	types = string(p.input[start:p.pos])
	p.advance(1)

	p.skipSpaces()
	name = p.readWord()
	if name == "" {
		return "", "", false
	}
	return name, types, true
}

func (p *Parser) parseAliasTag() string {
	return strings.TrimSpace(string(p.input[p.pos:]))
}

func (p *Parser) peek() rune {
	if p.pos >= p.len {
		return 0
	}
	return p.input[p.pos]
}

func (p *Parser) advance(n int) {
	p.pos += n
	if p.pos > p.len {
		p.pos = p.len
	}
}

func (p *Parser) skipHorizontalWhitespace() {
	for p.pos < p.len && (p.peek() == ' ' || p.peek() == '\t') {
		p.advance(1)
	}
}

func (p *Parser) skipSpaces() {
	for p.pos < p.len && p.peek() == ' ' {
		p.advance(1)
	}
}

func (p *Parser) readTagName() string {
	start := p.pos
	for p.pos < p.len && unicode.IsLetter(p.peek()) {
		p.advance(1)
	}
	return string(p.input[start:p.pos])
}

func (p *Parser) readWord() string {
	start := p.pos
	for p.pos < p.len && p.peek() != ' ' {
		p.advance(1)
	}
	return string(p.input[start:p.pos])
}

func isTypeChar(ch rune) bool {
	return ch == '|' || ch < unicode.MaxASCII && (unicode.IsLetter(ch) || unicode.IsDigit(ch))
}
