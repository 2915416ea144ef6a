package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dhamidi/tmlex/score/library"
	"github.com/dhamidi/tmlex/score/tokenizer"
)

// Package is a library found under a library root.
type Package struct {
	Name     string
	File     string
	Comment  []string
	Includes []string // names of packages this package includes

	Functions int
	Chords    int
	Aliases   int
}

// Discover scans root for libraries: directories holding a main.tml and
// top-level .tml files. Packages are sorted by name.
func Discover(root string) ([]*Package, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read library root: %w", err)
	}

	var packages []*Package
	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(root, name)
		if entry.IsDir() {
			if _, err := os.Stat(filepath.Join(path, MainFile)); err != nil {
				continue
			}
		} else if strings.HasSuffix(name, Extension) {
			name = strings.TrimSuffix(name, Extension)
		} else {
			continue
		}

		pkg, err := scanPackage(name, path)
		if err != nil {
			log.Warningf("skipping %s: %v", path, err)
			continue
		}
		packages = append(packages, pkg)
	}

	sort.Slice(packages, func(i, j int) bool {
		return packages[i].Name < packages[j].Name
	})
	return packages, nil
}

// scanPackage reads a package's directives without loading its includes.
func scanPackage(name, path string) (*Package, error) {
	file, err := Resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}

	t := tokenizer.New(string(data), tokenizer.WithLoader(nopLoader{}))
	lib := t.Initialize(false)

	pkg := &Package{
		Name:      name,
		File:      file,
		Comment:   t.Comment,
		Functions: len(lib.Dict),
		Chords:    len(lib.Chord),
		Aliases:   len(lib.Alias),
	}
	for _, entry := range t.Library {
		if entry.Type == "include" {
			pkg.Includes = append(pkg.Includes, filepath.Base(entry.Argument()))
		}
	}
	return pkg, nil
}

type nopLoader struct{}

func (nopLoader) LoadLibrary(path string) (*library.Library, error) {
	return library.New(), nil
}

// InOrder returns packages sorted so that included packages come before the
// packages including them. Includes of unknown packages are ignored. When
// the includes form a cycle the input order is returned.
func InOrder(packages []*Package) []*Package {
	known := make(map[string]*Package, len(packages))
	for _, p := range packages {
		known[p.Name] = p
	}

	inDegree := make(map[string]int, len(packages))
	for _, p := range packages {
		for _, dep := range p.Includes {
			if known[dep] != nil {
				inDegree[p.Name]++
			}
		}
	}

	var queue []string
	for _, p := range packages {
		if inDegree[p.Name] == 0 {
			queue = append(queue, p.Name)
		}
	}

	var result []*Package
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		result = append(result, known[name])

		for _, p := range packages {
			for _, dep := range p.Includes {
				if dep == name {
					inDegree[p.Name]--
					if inDegree[p.Name] == 0 {
						queue = append(queue, p.Name)
					}
				}
			}
		}
	}

	if len(result) != len(packages) {
		return packages
	}
	return result
}
