package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/yaklabco/perlparse/internal/logging"
	"github.com/yaklabco/perlparse/pkg/fsutil"
	"github.com/yaklabco/perlparse/pkg/parser"
	"github.com/yaklabco/perlparse/pkg/syntax"
)

// ParseFunc parses one file. parser.Parse satisfies it.
type ParseFunc func(path, content string, opts ...parser.Option) (*syntax.Snapshot, error)

// Runner parses discovered files with a worker pool.
type Runner struct {
	// Parse handles one file. Parse errors are recovered into the
	// snapshot, so only the snapshot is kept.
	Parse ParseFunc
}

// New creates a Runner that uses parser.Parse.
func New() *Runner {
	return &Runner{Parse: parser.Parse}
}

// Run discovers files under opts.Paths and parses them concurrently.
// Files appear in the result in path order whatever order the workers
// finish in. Cancelling ctx stops handing out work; the files finished
// so far are returned along with the cancellation error.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	files, err := Discover(ctx, opts)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Files: make([]FileOutcome, 0, len(files)),
		Stats: newStats(),
	}
	result.Stats.FilesDiscovered = len(files)
	if len(files) == 0 {
		return result, nil
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	if jobs > len(files) {
		jobs = len(files)
	}

	logger := logging.FromContext(ctx)
	logger.Debug("parsing files", logging.FieldFiles, len(files), logging.FieldJobs, jobs)

	workDir, _ := resolveWorkDir(opts.WorkingDir)
	fs := opts.effectiveFs()

	// Each worker writes only its own slot.
	outcomes := make([]*FileOutcome, len(files))
	workCh := make(chan int)

	var wg sync.WaitGroup
	for range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range workCh {
				outcome := r.parseFile(fs, files[idx], opts.ParserOptions)
				if rel, err := filepath.Rel(workDir, outcome.Path); err == nil {
					outcome.RelPath = rel
				} else {
					outcome.RelPath = outcome.Path
				}
				outcomes[idx] = &outcome
			}
		}()
	}

feed:
	for idx := range files {
		select {
		case <-ctx.Done():
			break feed
		case workCh <- idx:
		}
	}
	close(workCh)
	wg.Wait()

	for _, outcome := range outcomes {
		if outcome == nil {
			continue
		}
		if outcome.Error != nil {
			logger.Warn("cannot read file", logging.FieldPath, outcome.RelPath, logging.FieldError, outcome.Error)
		} else {
			logger.Debug("parsed",
				logging.FieldPath, outcome.RelPath,
				logging.FieldErrors, len(outcome.ParseErrors()),
				logging.FieldElapsed, outcome.Elapsed)
		}
		result.accumulate(*outcome)
	}

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("run cancelled: %w", err)
	}
	return result, nil
}

func (r *Runner) parseFile(fs afero.Fs, path string, opts []parser.Option) FileOutcome {
	start := time.Now()
	outcome := FileOutcome{Path: path}

	content, _, err := fsutil.ReadFile(fs, path)
	if err != nil {
		outcome.Error = err
		return outcome
	}

	parse := r.Parse
	if parse == nil {
		parse = parser.Parse
	}
	// The returned error only summarizes snapshot.Errors.
	snap, _ := parse(path, string(content), opts...)
	outcome.Snapshot = snap
	outcome.Elapsed = time.Since(start)
	return outcome
}
