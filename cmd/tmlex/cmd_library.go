package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dhamidi/tmlex/config"
	"github.com/dhamidi/tmlex/format"
	"github.com/dhamidi/tmlex/score/library"
	"github.com/dhamidi/tmlex/score/loader"
)

func newLibraryCmd(g *globals) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "library <path>",
		Short: "Load a library and print its functions, aliases and chords",
		Long: `Load a library and print the syntax it declares.

A path without a slash that does not name a file in the current directory
is looked up in the library directory, the same way "# include" does.

Examples:
  tmlex library std
  tmlex library ./lib/drums.tml --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := loadLibrary(g.cfg, args[0])
			if err != nil {
				return err
			}
			return encodeLibrary(cmd.OutOrStdout(), outputFormat, lib)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "line", "output format (json, line)")

	return cmd
}

func loadLibrary(cfg *config.Config, path string) (*library.Library, error) {
	l := loader.New(cfg.Library)
	if _, err := loader.Resolve(path); err != nil && !strings.ContainsRune(path, '/') {
		path = filepath.Join(cfg.Library, path)
	}
	lib, err := l.LoadLibrary(path)
	if err != nil {
		return nil, fmt.Errorf("load library: %w", err)
	}
	return lib, nil
}

func encodeLibrary(w io.Writer, name string, lib *library.Library) error {
	var err error
	switch name {
	case "json":
		err = format.NewLibraryJSONEncoder(w).Encode(lib)
	case "line":
		err = format.NewLibraryLineEncoder(w).Encode(lib)
	default:
		return fmt.Errorf("unknown format: %s (expected json or line)", name)
	}
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
