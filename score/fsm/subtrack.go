package fsm

import "github.com/dhamidi/tmlex/score/token"

// IsSubtrack reports whether tok carries musical content rather than a
// setting: notes, subtracks and calls that take a subtrack argument.
func IsSubtrack(tok token.Token) bool {
	switch t := tok.(type) {
	case *token.Note, *token.Subtrack:
		return true
	case *token.Function:
		for _, arg := range t.Args {
			if arg != nil && IsSubtrack(arg) {
				return true
			}
		}
	}
	return false
}

// HasSubtrack reports whether any token in content carries musical content.
func HasSubtrack(content []token.Token) bool {
	for _, tok := range content {
		if IsSubtrack(tok) {
			return true
		}
	}
	return false
}
