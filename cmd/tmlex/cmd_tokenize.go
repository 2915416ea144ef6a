package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dhamidi/tmlex/config"
	"github.com/dhamidi/tmlex/format"
	"github.com/dhamidi/tmlex/score/diag"
	"github.com/dhamidi/tmlex/score/loader"
	"github.com/dhamidi/tmlex/score/tokenizer"
)

var (
	errorStyle   = color.New(color.FgRed, color.Bold)
	warningStyle = color.New(color.FgYellow, color.Bold)
	codeStyle    = color.New(color.FgCyan)
	fileStyle    = color.New(color.Bold)
)

func newTokenizeCmd(g *globals) *cobra.Command {
	var outputFormat string
	var quiet bool

	cmd := &cobra.Command{
		Use:   "tokenize [file]",
		Short: "Tokenize a score and print the document",
		Long: `Tokenize a score and print the resulting document.

The score is read from the file argument, or from standard input when the
argument is missing or "-". Diagnostics are printed to standard error.

Examples:
  tmlex tokenize etude.tml
  tmlex tokenize --format json etude.tml
  cat etude.tml | tmlex tokenize`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := "-"
			if len(args) == 1 {
				filename = args[0]
			}
			source, err := readSource(cmd.InOrStdin(), filename)
			if err != nil {
				return err
			}

			doc := tokenizeSource(g.cfg, filename, source)

			enc, err := newDocumentEncoder(cmd.OutOrStdout(), outputFormat)
			if err != nil {
				return err
			}
			if err := enc.Encode(doc); err != nil {
				return fmt.Errorf("encode: %w", err)
			}

			if !quiet {
				printDiagnostics(cmd.ErrOrStderr(), displayName(filename), source, doc)
			}
			if n := len(doc.Errors); n > 0 {
				return fmt.Errorf("%s: %d errors", displayName(filename), n)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "line", "output format (json, line)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print diagnostics")

	return cmd
}

func readSource(stdin io.Reader, filename string) (string, error) {
	var data []byte
	var err error
	if filename == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(filename)
	}
	if err != nil {
		return "", fmt.Errorf("read score: %w", err)
	}
	return string(data), nil
}

func tokenizeSource(cfg *config.Config, filename, source string) *tokenizer.Document {
	dir := "."
	if filename != "-" {
		dir = filepath.Dir(filename)
	}
	return tokenizer.Parse(source,
		tokenizer.WithLoader(loader.New(cfg.Library)),
		tokenizer.WithLibraryPath(cfg.Library),
		tokenizer.WithAutoload(cfg.Autoload),
		tokenizer.WithDirectory(dir),
	)
}

func newDocumentEncoder(w io.Writer, name string) (format.Encoder, error) {
	switch name {
	case "json":
		return format.NewJSONEncoder(w), nil
	case "line":
		return format.NewLineEncoder(w), nil
	default:
		return nil, fmt.Errorf("unknown format: %s (expected json or line)", name)
	}
}

func displayName(filename string) string {
	if filename == "-" {
		return "<stdin>"
	}
	return filename
}

// printDiagnostics writes one "file:line:col: severity code: message" line
// per diagnostic, errors first.
func printDiagnostics(w io.Writer, name, source string, doc *tokenizer.Document) {
	text := strings.ReplaceAll(strings.TrimPrefix(source, "\ufeff"), "\r\n", "\n")
	for _, list := range []diag.List{doc.Errors, doc.Warnings} {
		for _, d := range list {
			fmt.Fprintln(w, formatDiagnostic(name, text, d))
		}
	}
}

func formatDiagnostic(name, text string, d diag.Diagnostic) string {
	line, col := d.Line+1, 1
	if d.HasPos() {
		line, col = lineCol(text, d.Start)
	}

	style := warningStyle
	if d.Severity == diag.SeverityError {
		style = errorStyle
	}

	var sb strings.Builder
	sb.WriteString(fileStyle.Sprintf("%s:%d:%d:", name, line, col))
	sb.WriteString(" ")
	sb.WriteString(style.Sprint(d.Severity.String()))
	sb.WriteString(" ")
	sb.WriteString(codeStyle.Sprint(string(d.Code)))
	if d.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(d.Message)
	}
	return sb.String()
}

// lineCol converts a byte offset to a 1-based line and column.
func lineCol(text string, offset int) (int, int) {
	offset = max(0, min(offset, len(text)))
	before := text[:offset]
	line := strings.Count(before, "\n") + 1
	col := len(before) - strings.LastIndex(before, "\n")
	return line, col
}
