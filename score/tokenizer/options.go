package tokenizer

import "github.com/dhamidi/tmlex/score/library"

// Loader resolves included libraries.
type Loader interface {
	LoadLibrary(path string) (*library.Library, error)
}

type Option func(*Tokenizer)

func WithLoader(loader Loader) Option {
	return func(t *Tokenizer) {
		t.loader = loader
	}
}

// WithLibraryPath sets the directory that include names without a slash are
// resolved against.
func WithLibraryPath(path string) Option {
	return func(t *Tokenizer) {
		t.libraryPath = path
	}
}

// WithAutoload names a library, relative to the library path, that is
// merged into every document before its content is tokenized.
func WithAutoload(name string) Option {
	return func(t *Tokenizer) {
		t.autoload = name
	}
}

// WithDirectory sets the document's own directory, used for includes that
// contain a slash.
func WithDirectory(dir string) Option {
	return func(t *Tokenizer) {
		t.directory = dir
	}
}
