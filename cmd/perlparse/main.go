// Package main is the entry point for the perlparse CLI.
package main

import (
	"os"

	"github.com/yaklabco/perlparse/internal/cli"
	"github.com/yaklabco/perlparse/internal/logging"
)

// Build-time variables set via ldflags.
//
//nolint:gochecknoglobals // Version variables must be package-level for ldflags injection
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	info := cli.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	}

	rootCmd := cli.NewRootCommand(info)
	if err := rootCmd.Execute(); err != nil {
		// Parse errors and unreadable files were already reported.
		if !cli.IsSilent(err) {
			logging.Default().Error("command failed", logging.FieldError, err)
		}
		return cli.ExitCode(err)
	}
	return 0
}
