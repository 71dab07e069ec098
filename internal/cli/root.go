// Package cli provides the Cobra command structure for perlparse.
package cli

import (
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/yaklabco/perlparse/internal/configloader"
	"github.com/yaklabco/perlparse/internal/logging"
	"github.com/yaklabco/perlparse/pkg/config"
)

// BuildInfo holds build-time version information.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// environment is what commands read from the outside world.
type environment struct {
	fs        afero.Fs
	workDir   string
	userDir   string
	lookupEnv configloader.LookupFunc
	stdin     io.Reader
}

func osEnvironment() *environment {
	return &environment{
		fs:        afero.NewOsFs(),
		lookupEnv: os.LookupEnv,
		stdin:     os.Stdin,
	}
}

// globals holds the persistent flags.
type globals struct {
	debug      bool
	configPath string
	color      string
	noConfig   bool
}

// app is shared by every command of one root.
type app struct {
	env   *environment
	flags globals
}

// NewRootCommand creates the root perlparse command with all subcommands.
func NewRootCommand(info BuildInfo) *cobra.Command {
	return newRootCommand(info, osEnvironment())
}

func newRootCommand(info BuildInfo, env *environment) *cobra.Command {
	a := &app{env: env}

	rootCmd := &cobra.Command{
		Use:   "perlparse",
		Short: "A fault-tolerant Perl parser",
		Long: `perlparse parses Perl 5 source into a syntax tree.

It recovers from syntax errors statement by statement, resolves heredocs
before parsing, and can keep trees of changing files up to date by
reparsing only what an edit touched.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !config.ColorMode(a.flags.color).IsValid() {
				return exitError(ExitInvalidUsage, "invalid --color %q: must be auto, always, or never", a.flags.color)
			}
			if a.flags.debug {
				logging.SetLevel("debug")
			}
			cmd.SetContext(logging.WithLogger(cmd.Context(), logging.Default()))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags.
	rootCmd.PersistentFlags().BoolVar(&a.flags.debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&a.flags.configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&a.flags.noConfig, "no-config", false,
		"ignore user and project config files")
	rootCmd.PersistentFlags().StringVar(&a.flags.color, "color", string(config.ColorAuto),
		"colorize output: auto, always, never")

	rootCmd.AddCommand(
		newParseCommand(a),
		newTreeCommand(a),
		newTokensCommand(a),
		newHeredocsCommand(a),
		newWatchCommand(a),
		newConfigCommand(a),
		newInitCommand(a),
		newVersionCommand(info),
	)

	NewHelpFormatter(config.ColorAuto, os.Stdout).ApplyToCommand(rootCmd)

	return rootCmd
}

func (a *app) colorMode() config.ColorMode {
	return config.ColorMode(a.flags.color)
}
