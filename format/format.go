// Package format writes tokenized documents and libraries as JSON or as
// tab-separated lines.
package format

import (
	"encoding"

	"github.com/dhamidi/tmlex/score/tokenizer"
)

type Encoder interface {
	encoding.TextMarshaler
	Encode(doc *tokenizer.Document) error
}

var (
	_ Encoder = (*JSONEncoder)(nil)
	_ Encoder = (*LineEncoder)(nil)
)
