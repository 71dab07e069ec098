package configloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// ConfigPaths represents discovered configuration file paths.
type ConfigPaths struct {
	// User is the user-level config path (e.g., ~/.config/perlparse/config.yaml).
	User string

	// Project is the project-level config path (e.g., ./.perlparse.yml).
	Project string

	// Explicit is a config path provided via --config flag.
	Explicit string
}

// projectConfigFiles are the config file names searched for, in order of preference.
//
//nolint:gochecknoglobals // Read-only lookup table.
var projectConfigFiles = []string{
	".perlparse.yml",
	".perlparse.yaml",
	"perlparse.yml",
	"perlparse.yaml",
}

// vcsRootMarkers are directories that indicate a VCS root.
//
//nolint:gochecknoglobals // Read-only lookup table.
var vcsRootMarkers = []string{".git", ".hg", ".svn"}

// DiscoverPaths finds the user config under userDir and the project
// config searching upward from workDir. Missing files are empty strings.
func DiscoverPaths(ctx context.Context, fs afero.Fs, workDir, userDir string) (*ConfigPaths, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	paths := &ConfigPaths{}
	if userDir != "" {
		paths.User = findConfigInDir(fs, userDir)
	}

	project, err := FindProjectConfig(ctx, fs, workDir)
	if err != nil {
		return nil, err
	}
	paths.Project = project

	return paths, nil
}

// UserConfigDir returns $XDG_CONFIG_HOME/perlparse, falling back to
// ~/.config/perlparse.
func UserConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "perlparse")
}

func findConfigInDir(fs afero.Fs, dir string) string {
	for _, name := range []string{"config.yaml", "config.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(fs, path) {
			return path
		}
	}
	return ""
}

// FindProjectConfig searches upward from startDir for a project config
// file. It stops at a VCS root, the home directory or the filesystem root
// and returns an empty string when nothing is found.
func FindProjectConfig(ctx context.Context, fs afero.Fs, startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}

	homeDir, homeErr := os.UserHomeDir()
	if homeErr != nil {
		homeDir = ""
	}

	currentDir := absDir
	for {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("context cancelled: %w", err)
		}

		for _, name := range projectConfigFiles {
			path := filepath.Join(currentDir, name)
			if fileExists(fs, path) {
				return path, nil
			}
		}

		if isVCSRoot(fs, currentDir) {
			return "", nil
		}
		if homeDir != "" && currentDir == homeDir {
			return "", nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", nil
		}
		currentDir = parentDir
	}
}

func isVCSRoot(fs afero.Fs, dir string) bool {
	for _, marker := range vcsRootMarkers {
		if ok, err := afero.DirExists(fs, filepath.Join(dir, marker)); err == nil && ok {
			return true
		}
	}
	return false
}

func fileExists(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
