package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/dhamidi/tmlex/config"
	"github.com/dhamidi/tmlex/score/library"
	"github.com/dhamidi/tmlex/score/loader"
	"github.com/dhamidi/tmlex/score/tokenizer"
)

const (
	historyFile = ".tmlex_history"
	promptMain  = "tml> "
)

const replHelp = `Lines are appended to the score buffer and the buffer is tokenized again.
An empty line separates tracks.

  :show            print the score buffer
  :reset           clear the score buffer
  :format <name>   switch the output format (json, line)
  :quit            leave
`

func newReplCmd(g *globals) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Tokenize a score interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := newSession(g.cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err := s.setFormat(outputFormat); err != nil {
				return err
			}
			return runRepl(s)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "line", "output format (json, line)")

	return cmd
}

func runRepl(s *session) error {
	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(s.complete)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	fmt.Fprintf(s.out, "tmlex %s, :help for commands\n", version)
	for {
		line, err := ln.Prompt(promptMain)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(s.out)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		if strings.TrimSpace(line) != "" {
			ln.AppendHistory(line)
		}
		if !s.eval(line) {
			return nil
		}
	}
}

// session is the REPL state: a growing score buffer tokenized after every
// input line.
type session struct {
	cfg    *config.Config
	loader *loader.FileLoader
	out    io.Writer
	errOut io.Writer
	format string

	buffer []string
	syntax *library.Library
}

func newSession(cfg *config.Config, out, errOut io.Writer) *session {
	return &session{
		cfg:    cfg,
		loader: loader.New(cfg.Library),
		out:    out,
		errOut: errOut,
		format: "line",
		syntax: library.New(),
	}
}

func (s *session) setFormat(name string) error {
	if _, err := newDocumentEncoder(io.Discard, name); err != nil {
		return err
	}
	s.format = name
	return nil
}

// eval handles one input line and reports whether the session continues.
func (s *session) eval(line string) bool {
	if cmd, ok := strings.CutPrefix(strings.TrimSpace(line), ":"); ok {
		return s.command(cmd)
	}

	s.buffer = append(s.buffer, line)
	if strings.TrimSpace(line) == "" {
		return true
	}

	source := strings.Join(s.buffer, "\n")
	t := tokenizer.New(source,
		tokenizer.WithLoader(s.loader),
		tokenizer.WithLibraryPath(s.cfg.Library),
		tokenizer.WithAutoload(s.cfg.Autoload),
		tokenizer.WithDirectory("."),
	)
	t.Tokenize(false)
	s.syntax = t.Syntax
	doc := t.Document()

	enc, _ := newDocumentEncoder(s.out, s.format)
	if err := enc.Encode(doc); err != nil {
		fmt.Fprintln(s.errOut, errorStyle.Sprint(err.Error()))
	}
	printDiagnostics(s.errOut, "<repl>", source, doc)
	return true
}

func (s *session) command(cmd string) bool {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		fmt.Fprint(s.out, replHelp)
		return true
	}

	switch fields[0] {
	case "quit", "q":
		return false
	case "help":
		fmt.Fprint(s.out, replHelp)
	case "show":
		for _, line := range s.buffer {
			fmt.Fprintln(s.out, line)
		}
	case "reset":
		s.buffer = nil
		s.syntax = library.New()
		s.loader.Reset()
	case "format":
		if len(fields) != 2 {
			fmt.Fprintf(s.out, "format is %s\n", s.format)
			break
		}
		if err := s.setFormat(fields[1]); err != nil {
			fmt.Fprintln(s.errOut, errorStyle.Sprint(err.Error()))
		}
	default:
		fmt.Fprintf(s.errOut, "unknown command :%s, :help lists commands\n", fields[0])
	}
	return true
}

// complete proposes function names declared in the buffer's libraries for
// the word before the cursor.
func (s *session) complete(line string) []string {
	start := len(line)
	for start > 0 && isIdentByte(line[start-1]) {
		start--
	}
	head, word := line[:start], line[start:]
	if word == "" {
		return nil
	}

	seen := map[string]bool{}
	var out []string
	for _, entry := range s.syntax.Dict {
		if seen[entry.Name] || !strings.HasPrefix(entry.Name, word) {
			continue
		}
		seen[entry.Name] = true
		out = append(out, head+entry.Name)
	}
	sort.Strings(out)
	return out
}

func isIdentByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
