package cli

import (
	"errors"
	"fmt"

	"github.com/yaklabco/perlparse/pkg/runner"
)

// Exit codes for perlparse.
const (
	// ExitSuccess indicates successful execution with no parse errors.
	ExitSuccess = 0

	// ExitParseErrors indicates parsing completed but found errors.
	ExitParseErrors = 1

	// ExitInvalidUsage indicates invalid command-line usage.
	ExitInvalidUsage = 64

	// ExitConfigError indicates configuration file errors.
	ExitConfigError = 65

	// ExitInternalError indicates an internal error.
	ExitInternalError = 70

	// ExitIOError indicates file I/O errors.
	ExitIOError = 74
)

// Sentinel errors that only signal an exit code.
var (
	ErrParseErrorsFound = errors.New("parse errors found")
	ErrUnreadableFiles  = errors.New("some files could not be read")
)

// ExitError carries the exit code a command failed with.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func exitError(code int, format string, args ...any) error {
	return &ExitError{Code: code, Err: fmt.Errorf(format, args...)}
}

// ExitCodeFromResult determines the exit code of a parse run.
func ExitCodeFromResult(result *runner.Result) int {
	switch {
	case result.HasFailures():
		return ExitIOError
	case result.HasParseErrors():
		return ExitParseErrors
	default:
		return ExitSuccess
	}
}

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	switch {
	case errors.Is(err, ErrParseErrorsFound):
		return ExitParseErrors
	case errors.Is(err, ErrUnreadableFiles):
		return ExitIOError
	default:
		return ExitInternalError
	}
}

// IsSilent reports whether err only signals an exit code and should not
// be logged.
func IsSilent(err error) bool {
	return errors.Is(err, ErrParseErrorsFound) || errors.Is(err, ErrUnreadableFiles)
}

func resultError(result *runner.Result) error {
	switch ExitCodeFromResult(result) {
	case ExitIOError:
		return ErrUnreadableFiles
	case ExitParseErrors:
		return ErrParseErrorsFound
	default:
		return nil
	}
}
