package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dhamidi/tmlex/score/loader"
)

func newLibsCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "libs",
		Short: "Inspect the library directory",
	}

	cmd.AddCommand(newLibsListCmd(g))

	return cmd
}

func newLibsListCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List libraries in the library directory",
		Long: `List every library in the library directory in include order.

A library is a directory holding main.tml or a .tml file at the top of the
library directory. Libraries are listed after the libraries they include.

Examples:
  tmlex libs list
  tmlex libs list --library vendor/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLibsList(cmd.OutOrStdout(), g.cfg.Library)
		},
	}

	return cmd
}

func runLibsList(w io.Writer, libDir string) error {
	packages, err := loader.Discover(libDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(w, "No library directory found at %s\n", libDir)
			return nil
		}
		return err
	}

	if len(packages) == 0 {
		fmt.Fprintf(w, "No libraries found in %s\n", libDir)
		return nil
	}

	fmt.Fprintf(w, "Found %d libraries in %s:\n\n", len(packages), libDir)
	for _, pkg := range loader.InOrder(packages) {
		rel, err := filepath.Rel(libDir, pkg.File)
		if err != nil {
			rel = pkg.File
		}
		fmt.Fprintf(w, "  %-16s %s (%d functions, %d aliases, %d chords)\n",
			pkg.Name, rel, pkg.Functions, pkg.Aliases, pkg.Chords)
		if len(pkg.Comment) > 0 {
			fmt.Fprintf(w, "  %-16s %s\n", "", strings.TrimSpace(pkg.Comment[0]))
		}
		if len(pkg.Includes) > 0 {
			fmt.Fprintf(w, "  %-16s includes %s\n", "", strings.Join(pkg.Includes, ", "))
		}
	}

	return nil
}
