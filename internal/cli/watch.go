package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yaklabco/perlparse/internal/logging"
	"github.com/yaklabco/perlparse/internal/ui/pretty"
	"github.com/yaklabco/perlparse/pkg/cache"
	"github.com/yaklabco/perlparse/pkg/config"
	"github.com/yaklabco/perlparse/pkg/runner"
	"github.com/yaklabco/perlparse/pkg/session"
	"github.com/yaklabco/perlparse/pkg/syntax"
	"github.com/yaklabco/perlparse/pkg/watch"
)

type watchFlags struct {
	files    fileFlags
	debounce time.Duration
	once     bool
}

func newWatchCommand(a *app) *cobra.Command {
	flags := &watchFlags{}

	cmd := &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Reparse Perl files as they change",
		Long: `Watch Perl files and report syntax errors each time one changes.

Each file is kept open as a document: a change is turned into an edit and
only the statements after the first changed byte are reparsed. Parsed
snapshots are cached by content, sized by the cache section of the
configuration.

Examples:
  perlparse watch             # Watch the current directory
  perlparse watch lib/        # Watch lib only
  perlparse watch --once      # Parse once through the session layer and exit`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, a, args, flags)
		},
	}

	flags.files.register(cmd)
	cmd.Flags().DurationVar(&flags.debounce, "debounce", watch.DefaultDebounce, "wait this long for a burst of changes to settle")
	cmd.Flags().BoolVar(&flags.once, "once", false, "report the current state and exit")

	return cmd
}

func runWatch(cmd *cobra.Command, a *app, args []string, flags *watchFlags) error {
	logger := logging.FromContext(cmd.Context())

	cli := &config.Config{}
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

	files, err := runner.Discover(cmd.Context(), opts)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return exitError(ExitInvalidUsage, "no Perl files to watch")
	}

	snapshots := cache.New[*syntax.Snapshot](
		cache.WithMaxEntries(cfg.Cache.MaxEntries),
		cache.WithTTL(cfg.Cache.TTL),
		cache.WithShards(cfg.Cache.Shards),
	)
	manager := session.NewManager(
		session.WithCache(snapshots),
		session.WithParserOptions(runner.ParserOptions(cfg)...),
		session.WithLogger(logger),
	)
	watcher := watch.New(manager,
		watch.WithFs(a.env.fs),
		watch.WithDebounce(flags.debounce),
		watch.WithFilter(extensionFilter(cfg.Files.Extensions)),
		watch.WithLogger(logger),
	)

	out := cmd.OutOrStdout()
	printer := &updatePrinter{
		out:     out,
		styles:  pretty.NewStyles(pretty.IsColorEnabled(cfg.Color, out)),
		workDir: workDir,
	}

	if flags.once {
		var errCount int
		for _, update := range watcher.Load(files) {
			printer.print(update)
			if update.Snapshot != nil {
				errCount += len(update.Snapshot.Errors)
			}
		}
		if errCount > 0 {
			return ErrParseErrorsFound
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	updates := make(chan watch.Update)
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx, files, updates) }()

	logger.Info("watching for changes", logging.FieldFiles, len(files))
	for update := range updates {
		printer.print(update)
	}

	stats := manager.Stats()
	logger.Debug("watch stopped",
		logging.FieldDocuments, stats.Documents,
		logging.FieldCacheHits, stats.CacheHits,
		logging.FieldReused, stats.ReusedStatements)

	if err := <-done; err != nil && ctx.Err() == nil {
		return err
	}
	if cmd.Context().Err() != nil {
		return fmt.Errorf("watch cancelled: %w", context.Cause(cmd.Context()))
	}
	return nil
}

func extensionFilter(extensions []string) func(string) bool {
	if len(extensions) == 0 {
		extensions = config.DefaultExtensions()
	}
	return func(path string) bool {
		ext := filepath.Ext(path)
		for _, want := range extensions {
			if strings.EqualFold(ext, want) {
				return true
			}
		}
		return false
	}
}

type updatePrinter struct {
	out     io.Writer
	styles  *pretty.Styles
	workDir string
}

func (p *updatePrinter) print(update watch.Update) {
	path := update.Path
	if rel, err := filepath.Rel(p.workDir, path); err == nil && !strings.HasPrefix(rel, "..") {
		path = rel
	}
	name := p.styles.FilePath.Render(path)

	switch {
	case update.Err != nil:
		fmt.Fprintf(p.out, "%s: %s\n", name, p.styles.Error.Render(update.Err.Error()))
	case update.Removed:
		fmt.Fprintf(p.out, "%s: %s\n", name, p.styles.Dim.Render("removed"))
	case update.Snapshot == nil:
	case !update.Snapshot.HasErrors():
		fmt.Fprintf(p.out, "%s %s: %s\n", name, p.styles.Dim.Render(fmt.Sprintf("v%d", update.Version)), p.styles.Success.Render("ok"))
	default:
		count := len(update.Snapshot.Errors)
		noun := "errors"
		if count == 1 {
			noun = "error"
		}
		fmt.Fprintf(p.out, "%s %s: %s\n", name, p.styles.Dim.Render(fmt.Sprintf("v%d", update.Version)),
			p.styles.Error.Render(fmt.Sprintf("%d %s", count, noun)))
		for _, perr := range update.Snapshot.Errors {
			fmt.Fprint(p.out, p.styles.FormatParseError(path, update.Snapshot, perr, false))
		}
	}
}
