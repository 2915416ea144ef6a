package main

import (
	"github.com/spf13/cobra"

	"github.com/dhamidi/tmlex/config"
	"github.com/dhamidi/tmlex/lsp"
)

func newLSPCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Without explicit settings the server discovers the
			// configuration from the editor's workspace root.
			var cfg *config.Config
			flags := cmd.Flags()
			if flags.Changed("config") || flags.Changed("library") || flags.Changed("autoload") {
				cfg = g.cfg
			}
			server := lsp.NewServer(version, cfg)
			return server.RunStdio()
		},
	}
}
