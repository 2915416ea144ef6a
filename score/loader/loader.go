// Package loader reads score libraries from the filesystem. A library is
// either a single score file or a directory holding a main.tml file.
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/dhamidi/tmlex/score/library"
	"github.com/dhamidi/tmlex/score/tokenizer"
)

var log = commonlog.GetLogger("tmlex.loader")

// ErrCycle is returned when a library includes itself, directly or through
// other libraries.
var ErrCycle = errors.New("include cycle")

const (
	MainFile  = "main.tml"
	Extension = ".tml"
)

// FileLoader loads libraries from disk and memoizes them by resolved path.
// It is safe for concurrent use.
type FileLoader struct {
	libraryPath string

	mu    sync.Mutex
	cache map[string]*library.Library
}

func New(libraryPath string) *FileLoader {
	return &FileLoader{
		libraryPath: libraryPath,
		cache:       map[string]*library.Library{},
	}
}

// LibraryPath returns the directory include names without a slash resolve
// against.
func (l *FileLoader) LibraryPath() string {
	return l.libraryPath
}

// LoadLibrary resolves path and returns the frozen library it declares.
func (l *FileLoader) LoadLibrary(path string) (*library.Library, error) {
	return l.load(path, nil)
}

// Reset drops every memoized library.
func (l *FileLoader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = map[string]*library.Library{}
}

func (l *FileLoader) load(path string, chain []string) (*library.Library, error) {
	file, err := Resolve(path)
	if err != nil {
		return nil, err
	}
	for _, seen := range chain {
		if seen == file {
			return nil, fmt.Errorf("load %s: %w", file, ErrCycle)
		}
	}

	l.mu.Lock()
	lib, ok := l.cache[file]
	l.mu.Unlock()
	if ok {
		return lib, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read library: %w", err)
	}

	t := tokenizer.New(string(data),
		tokenizer.WithDirectory(filepath.Dir(file)),
		tokenizer.WithLibraryPath(l.libraryPath),
		tokenizer.WithLoader(&chainLoader{
			parent: l,
			chain:  append(append([]string(nil), chain...), file),
		}),
	)
	lib = t.Initialize(false)
	for _, d := range t.Errors {
		log.Warningf("%s: %s", file, d.Error())
	}
	lib.Freeze()
	log.Debugf("loaded %s: %d functions, %d chords", file, len(lib.Dict), len(lib.Chord))

	l.mu.Lock()
	defer l.mu.Unlock()
	if cached, ok := l.cache[file]; ok {
		return cached, nil
	}
	l.cache[file] = lib
	return lib, nil
}

// chainLoader carries the files being loaded so nested includes can detect
// cycles without holding the cache lock.
type chainLoader struct {
	parent *FileLoader
	chain  []string
}

func (c *chainLoader) LoadLibrary(path string) (*library.Library, error) {
	return c.parent.load(path, c.chain)
}

// Resolve maps an include path to the file that holds the library: the path
// itself, its main.tml when it is a directory, or the path with the .tml
// extension added.
func Resolve(path string) (string, error) {
	candidates := []string{path}
	if !strings.HasSuffix(path, Extension) {
		candidates = append(candidates, path+Extension)
	}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err != nil {
			continue
		}
		if info.IsDir() {
			main := filepath.Join(candidate, MainFile)
			if _, err := os.Stat(main); err == nil {
				return filepath.Clean(main), nil
			}
			continue
		}
		return filepath.Clean(candidate), nil
	}
	return "", fmt.Errorf("resolve library %s: %w", path, os.ErrNotExist)
}
