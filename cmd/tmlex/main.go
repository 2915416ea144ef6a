package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/dhamidi/tmlex/config"
)

const version = "0.1.0"

// globals carries the persistent flags and the configuration they resolve to.
type globals struct {
	configPath string
	library    string
	autoload   string
	verbosity  int

	cfg *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:          "tmlex",
		Short:        "Tokenize music notation scores and their libraries",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.resolve(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&g.configPath, "config", "", "configuration file (default: discover .tmlex.yaml or .tmlex.toml)")
	flags.StringVarP(&g.library, "library", "L", "", "library directory")
	flags.StringVar(&g.autoload, "autoload", "", "library merged into every score")
	flags.CountVarP(&g.verbosity, "verbose", "v", "increase log verbosity")

	rootCmd.AddCommand(newTokenizeCmd(g))
	rootCmd.AddCommand(newLibraryCmd(g))
	rootCmd.AddCommand(newLibsCmd(g))
	rootCmd.AddCommand(newLSPCmd(g))
	rootCmd.AddCommand(newReplCmd(g))

	return rootCmd
}

// resolve loads the configuration and applies flag overrides.
func (g *globals) resolve(cmd *cobra.Command) error {
	var cfg *config.Config
	var err error
	if g.configPath != "" {
		cfg, err = config.Load(g.configPath)
	} else {
		var wd string
		wd, err = os.Getwd()
		if err == nil {
			cfg, err = config.Discover(wd)
		}
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("library") {
		if cfg.Library, err = filepath.Abs(g.library); err != nil {
			return fmt.Errorf("library path: %w", err)
		}
	}
	if flags.Changed("autoload") {
		cfg.Autoload = g.autoload
	}
	if flags.Changed("verbose") {
		cfg.Verbosity = g.verbosity
	}
	g.cfg = cfg

	commonlog.Configure(cfg.Verbosity, nil)
	return nil
}
