package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yaklabco/perlparse/internal/logging"
	"github.com/yaklabco/perlparse/pkg/config"
	"github.com/yaklabco/perlparse/pkg/reporter"
	"github.com/yaklabco/perlparse/pkg/runner"
)

// fileFlags are the discovery and parser flags shared by parse and watch.
type fileFlags struct {
	jobs        int
	extensions  []string
	include     []string
	exclude     []string
	noShebang   bool
	maxDepth    int
	maxHeredocs int
}

func (f *fileFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.jobs, "jobs", "j", 0, "number of parallel workers (0 = auto)")
	cmd.Flags().StringSliceVar(&f.extensions, "ext", nil, "file extensions treated as Perl (default .pl,.pm,.t,.psgi,.cgi)")
	cmd.Flags().StringSliceVar(&f.include, "include", nil, "only parse files matching these glob patterns")
	cmd.Flags().StringSliceVar(&f.exclude, "exclude", nil, "glob patterns to skip")
	cmd.Flags().BoolVar(&f.noShebang, "no-shebang", false, "do not detect extensionless Perl scripts by shebang")
	cmd.Flags().IntVar(&f.maxDepth, "max-depth", 0, "maximum nesting depth")
	cmd.Flags().IntVar(&f.maxHeredocs, "max-heredocs", 0, "maximum heredoc declarations per file")
}

// apply copies the flags the user set onto cfg.
func (f *fileFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("jobs") {
		cfg.Jobs = f.jobs
	}
	if changed("ext") {
		cfg.Files.Extensions = f.extensions
	}
	if changed("include") {
		cfg.Files.Include = f.include
	}
	if changed("exclude") {
		cfg.Files.Exclude = f.exclude
	}
	if f.noShebang {
		detect := false
		cfg.Files.DetectShebang = &detect
	}
	if changed("max-depth") {
		cfg.Parser.MaxDepth = f.maxDepth
	}
	if changed("max-heredocs") {
		cfg.Parser.MaxHeredocs = f.maxHeredocs
	}
}

type parseFlags struct {
	files     fileFlags
	format    string
	noContext bool
	noSummary bool
	compact   bool
	table     bool
	verbose   bool
	tokens    bool
	tree      bool
}

func newParseCommand(a *app) *cobra.Command {
	flags := &parseFlags{}

	cmd := &cobra.Command{
		Use:   "parse [paths...]",
		Short: "Parse Perl files and report syntax errors",
		Long:  parseLongDescription,
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, a, args, flags)
		},
	}

	flags.files.register(cmd)
	cmd.Flags().StringVarP(&flags.format, "format", "f", "", "output format: text, json, yaml, cbor, sexp")
	cmd.Flags().BoolVar(&flags.noContext, "no-context", false, "hide source line context in text output")
	cmd.Flags().BoolVar(&flags.noSummary, "no-summary", false, "omit the summary")
	cmd.Flags().BoolVar(&flags.compact, "compact", false, "compact JSON output")
	cmd.Flags().BoolVar(&flags.table, "table", false, "list text errors as a table")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "print a detailed summary")
	cmd.Flags().BoolVar(&flags.tokens, "tokens", false, "include tokens in structured output")
	cmd.Flags().BoolVar(&flags.tree, "tree", false, "include the syntax tree in structured output")

	return cmd
}

const parseLongDescription = `Parse Perl files and report syntax errors.

By default, parses every .pl, .pm, .t, .psgi and .cgi file under the current
directory, plus extensionless scripts with a perl shebang. Specify paths to
parse specific files or directories.

Examples:
  perlparse parse                     # Parse current directory
  perlparse parse lib/ t/             # Parse two directories
  perlparse parse script.pl           # Parse a single file
  perlparse parse --exclude 't/**'    # Skip the test suite
  perlparse parse --format json       # Output as JSON for CI
  perlparse parse -f cbor --tree      # Dump trees as canonical CBOR`

func runParse(cmd *cobra.Command, a *app, args []string, flags *parseFlags) error {
	ctx := cmd.Context()
	logger := logging.FromContext(ctx)

	cli := &config.Config{}
	if flags.format != "" {
		format, err := config.ParseFormat(flags.format)
		if err != nil {
			return &ExitError{Code: ExitInvalidUsage, Err: err}
		}
		cli.Format = format
	}
	flags.files.apply(cmd, cli)

	loaded, err := a.loadConfig(cmd, cli)
	if err != nil {
		return err
	}
	cfg := loaded.Config

	workDir, err := a.workDir()
	if err != nil {
		return err
	}
	opts := runner.OptionsFromConfig(cfg, args)
	opts.WorkingDir = workDir
	opts.Fs = a.env.fs

	logger.Debug("starting parse run",
		logging.FieldPaths, opts.Paths,
		logging.FieldJobs, opts.Jobs,
		logging.FieldFormat, cfg.Format)

	result, err := runner.New().Run(ctx, opts)
	if err != nil {
		return fmt.Errorf("parse run failed: %w", err)
	}

	rep, err := reporter.New(reporter.Options{
		Writer:      cmd.OutOrStdout(),
		Format:      cfg.Format,
		Color:       cfg.Color,
		ShowContext: !flags.noContext,
		ShowSummary: !flags.noSummary,
		Verbose:     flags.verbose,
		Table:       flags.table,
		Compact:     flags.compact,
		Tokens:      flags.tokens,
		Tree:        flags.tree,
	})
	if err != nil {
		return fmt.Errorf("create reporter: %w", err)
	}

	if _, err := rep.Report(ctx, result); err != nil {
		return fmt.Errorf("report results: %w", err)
	}

	logger.Debug("parse run complete",
		logging.FieldFilesDiscovered, result.Stats.FilesDiscovered,
		logging.FieldFilesParsed, result.Stats.FilesParsed,
		logging.FieldFilesWithErrors, result.Stats.FilesWithErrors,
		logging.FieldErrorsTotal, result.Stats.ErrorsTotal)

	return resultError(result)
}
