package cli

import (
	"github.com/spf13/cobra"

	"github.com/yaklabco/perlparse/internal/logging"
)

func newVersionCommand(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit hash, and build date of perlparse.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			logger := logging.NewWithOptions(logging.Options{
				Level:  "info",
				Writer: cmd.OutOrStdout(),
			})
			logger.Info("perlparse",
				logging.FieldVersion, info.Version,
				logging.FieldCommit, info.Commit,
				logging.FieldBuilt, info.Date,
			)
		},
	}
}
