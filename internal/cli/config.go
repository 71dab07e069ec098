package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/yaklabco/perlparse/internal/configloader"
	"github.com/yaklabco/perlparse/internal/logging"
	"github.com/yaklabco/perlparse/pkg/config"
)

// loadConfig resolves the configuration for cmd with cli applied last.
func (a *app) loadConfig(cmd *cobra.Command, cli *config.Config) (*configloader.LoadResult, error) {
	logger := logging.FromContext(cmd.Context())

	workDir, err := a.workDir()
	if err != nil {
		return nil, err
	}

	result, err := configloader.Load(cmd.Context(), configloader.LoadOptions{
		Fs:                  a.env.fs,
		WorkingDir:          workDir,
		UserDir:             a.env.userDir,
		ExplicitPath:        a.flags.configPath,
		IgnoreUserConfig:    a.flags.noConfig,
		IgnoreProjectConfig: a.flags.noConfig,
		LookupEnv:           a.env.lookupEnv,
		CLIConfig:           cli,
	})
	if err != nil {
		return nil, &ExitError{Code: ExitConfigError, Err: errors.Join(errors.New("failed to load configuration"), err)}
	}

	for _, warning := range result.Warnings {
		logger.Warn(warning)
	}
	if len(result.LoadedFrom) > 0 {
		logger.Debug("loaded configuration", logging.FieldFiles, result.LoadedFrom)
	}
	if !a.flags.debug && result.Config.LogLevel != "" {
		logger.SetLevel(logging.ParseLevel(result.Config.LogLevel))
	}

	result.Config.Color = a.colorMode()
	result.Config.Debug = a.flags.debug
	return result, nil
}

func (a *app) workDir() (string, error) {
	if a.env.workDir != "" {
		return a.env.workDir, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return dir, nil
}

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
		Long: `Inspect the configuration perlparse resolves from defaults, config files,
PERLPARSE_* environment variables and flags.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runConfigShow(cmd, a)
			},
		},
		&cobra.Command{
			Use:   "validate FILE",
			Short: "Check a configuration file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigValidate(cmd, a, args[0])
			},
		},
		&cobra.Command{
			Use:   "env",
			Short: "List supported environment variables",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				vars := configloader.ListEnvVars()
				names := make([]string, 0, len(vars))
				for name := range vars {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(cmd.OutOrStdout(), "%-28s %s\n", name, vars[name])
				}
			},
		},
	)
	return cmd
}

func runConfigShow(cmd *cobra.Command, a *app) error {
	result, err := a.loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	header := "# Effective perlparse configuration\n"
	if len(result.LoadedFrom) == 0 {
		header += "# Sources: defaults\n"
	}
	for _, path := range result.LoadedFrom {
		header += "# Loaded from: " + path + "\n"
	}

	data, err := result.Config.ToYAMLWithHeader(header)
	if err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runConfigValidate(cmd *cobra.Command, a *app, path string) error {
	if !filepath.IsAbs(path) {
		workDir, err := a.workDir()
		if err != nil {
			return err
		}
		path = filepath.Join(workDir, path)
	}

	cfg, err := configloader.LoadFile(a.env.fs, path)
	if err != nil {
		return &ExitError{Code: ExitConfigError, Err: err}
	}

	merged := configloader.MergeAll(config.NewConfig(), cfg)
	result := configloader.ValidateWithFile(merged, path)
	for _, warning := range result.Warnings {
		fmt.Fprintf(cmd.OutOrStdout(), "warning: %s\n", warning.Error())
	}
	if err := result.Err(); err != nil {
		return &ExitError{Code: ExitConfigError, Err: err}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
	return nil
}
