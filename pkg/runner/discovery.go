package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	"github.com/yaklabco/perlparse/pkg/langdetect"
)

// Discover finds Perl files matching opts. It returns a deterministically
// sorted list of absolute file paths.
//
// Directories are walked recursively, skipping hidden entries and
// anything an exclude glob matches. A file named directly in Paths is
// always included unless excluded.
func Discover(ctx context.Context, opts Options) ([]string, error) {
	workDir, err := resolveWorkDir(opts.WorkingDir)
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	d := &discoverer{
		fs:         opts.effectiveFs(),
		workDir:    workDir,
		extensions: opts.effectiveExtensions(),
		opts:       opts,
		seen:       make(map[string]struct{}),
	}

	for _, inputPath := range opts.effectivePaths() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("discovery cancelled: %w", err)
		}

		absPath := inputPath
		if !filepath.IsAbs(inputPath) {
			absPath = filepath.Join(workDir, inputPath)
		}
		absPath = filepath.Clean(absPath)

		info, err := d.fs.Stat(absPath)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", inputPath, err)
		}

		if !info.IsDir() {
			if !d.excluded(d.rel(absPath), false) {
				d.add(absPath)
			}
			continue
		}
		if err := d.walk(ctx, absPath); err != nil {
			return nil, err
		}
	}

	sort.Strings(d.files)
	return d.files, nil
}

type discoverer struct {
	fs         afero.Fs
	workDir    string
	extensions []string
	opts       Options
	seen       map[string]struct{}
	files      []string
}

func (d *discoverer) add(path string) {
	if _, ok := d.seen[path]; ok {
		return
	}
	d.seen[path] = struct{}{}
	d.files = append(d.files, path)
}

func (d *discoverer) rel(path string) string {
	rel, err := filepath.Rel(d.workDir, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (d *discoverer) walk(ctx context.Context, root string) error {
	err := afero.Walk(d.fs, root, func(path string, info os.FileInfo, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if os.IsPermission(walkErr) {
				return nil
			}
			return walkErr
		}

		name := info.Name()
		if info.IsDir() {
			if path == root {
				return nil
			}
			if strings.HasPrefix(name, ".") || d.excluded(d.rel(path), true) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}

		// Symlinks are followed only when they point at a regular file.
		if info.Mode()&os.ModeSymlink != 0 {
			target, err := d.fs.Stat(path)
			if err != nil || target.IsDir() {
				return nil //nolint:nilerr // Broken or directory symlinks are skipped.
			}
		}

		if d.matches(path) {
			d.add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk directory %s: %w", root, err)
	}
	return nil
}

// matches applies the extension, shebang, exclude and include rules to a
// walked file.
func (d *discoverer) matches(path string) bool {
	rel := d.rel(path)
	if d.excluded(rel, false) {
		return false
	}
	if len(d.opts.IncludeGlobs) > 0 && !matchAny(d.opts.IncludeGlobs, rel) {
		return false
	}

	ext := filepath.Ext(path)
	if ext != "" {
		return hasExtension(ext, d.extensions)
	}
	return d.opts.DetectShebang && d.perlScript(path)
}

func (d *discoverer) excluded(rel string, dir bool) bool {
	if matchAny(d.opts.ExcludeGlobs, rel) {
		return true
	}
	// "blib/**" should prune the blib directory itself.
	return dir && matchAny(d.opts.ExcludeGlobs, rel+"/")
}

// perlScript reads the head of an extensionless file for a perl shebang.
func (d *discoverer) perlScript(path string) bool {
	f, err := d.fs.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, langdetect.ShebangWindow())
	n, err := io.ReadFull(f, head)
	if err != nil && n == 0 {
		return false
	}
	return langdetect.HasPerlShebang(head[:n])
}

func hasExtension(ext string, extensions []string) bool {
	for _, e := range extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// matchAny reports whether rel matches one of the doublestar patterns.
// Patterns without a slash also match the base name, so "*.t" finds test
// files at any depth.
func matchAny(patterns []string, rel string) bool {
	base := rel
	if i := strings.LastIndex(strings.TrimSuffix(rel, "/"), "/"); i >= 0 {
		base = rel[i+1:]
	}
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
		if !strings.Contains(pattern, "/") {
			if ok, err := doublestar.Match(pattern, base); err == nil && ok {
				return true
			}
		}
	}
	return false
}

func resolveWorkDir(workDir string) (string, error) {
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		return wd, nil
	}
	absPath, err := filepath.Abs(workDir)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}
	return absPath, nil
}
