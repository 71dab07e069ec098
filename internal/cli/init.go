package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yaklabco/perlparse/internal/configloader"
	"github.com/yaklabco/perlparse/internal/logging"
)

// defaultConfigFile is the project config file init writes.
const defaultConfigFile = ".perlparse.yml"

type initFlags struct {
	force  bool
	full   bool
	output string
}

func newInitCommand(a *app) *cobra.Command {
	flags := &initFlags{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new perlparse configuration file",
		Long: `Create a new .perlparse.yml configuration file in the current directory
holding the defaults, with optional settings commented out.

Examples:
  perlparse init                      Create a minimal .perlparse.yml
  perlparse init --full               Write every setting uncommented
  perlparse init --output ci.yml      Write to a custom file path`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, a, flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "overwrite an existing configuration file")
	cmd.Flags().BoolVar(&flags.full, "full", false, "write every setting uncommented")
	cmd.Flags().StringVarP(&flags.output, "output", "o", defaultConfigFile, "output file path")

	return cmd
}

func runInit(cmd *cobra.Command, a *app, flags *initFlags) error {
	logger := logging.FromContext(cmd.Context())

	path := flags.output
	if !filepath.IsAbs(path) {
		workDir, err := a.workDir()
		if err != nil {
			return err
		}
		path = filepath.Join(workDir, path)
	}

	if err := configloader.WriteTemplate(a.env.fs, path, flags.full, flags.force); err != nil {
		if !flags.force {
			return exitError(ExitConfigError, "%w; use --force to overwrite", err)
		}
		return &ExitError{Code: ExitIOError, Err: err}
	}

	logger.Info("created configuration file", logging.FieldPath, flags.output)
	logger.Info("run 'perlparse config show' to see the effective configuration")
	return nil
}
