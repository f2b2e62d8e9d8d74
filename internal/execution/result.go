// SPDX-License-Identifier: MPL-2.0

package execution

import (
	"errors"
	"fmt"
	"strings"

	"github.com/phaserci/phaser/internal/shellwords"
)

var (
	// ErrNonZeroExit is wrapped by InvocationError when the program ran but
	// exited with a non-zero status.
	ErrNonZeroExit = errors.New("non-zero exit status")
	// ErrInvalidUTF8 is returned when captured output is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("output is not valid UTF-8")
)

type (
	// Result is the normalized outcome of one invocation.
	Result struct {
		// ExitCode is the exit status of the program. Dry runs report 0.
		ExitCode ExitCode
		// Raw holds captured standard output as produced by the program.
		// Invokers that do not capture leave it nil.
		Raw []byte
		// Output is Raw decoded as UTF-8 text. Invokers may also set it
		// directly when they already produce text.
		Output string
	}

	// InvocationError describes a program that could not be launched or
	// that exited unsuccessfully. It carries the diagnostics needed to
	// explain the failure without rerunning the program.
	InvocationError struct {
		// Argv is the argument vector that was invoked.
		Argv []string
		// ExitCode is the exit status, or 1 when the program never ran.
		ExitCode ExitCode
		// Exited reports whether the program ran to completion.
		Exited bool
		// Stderr is the captured standard error, if any.
		Stderr string
		// Err is the underlying launch or wait error.
		Err error
	}
)

// NewSuccessResult creates a Result with exit code 0 and no output.
func NewSuccessResult() *Result {
	return &Result{}
}

// NewExitCodeResult creates a Result with the given exit code and no output.
func NewExitCodeResult(code ExitCode) *Result {
	return &Result{ExitCode: code}
}

// Error implements the error interface.
func (e *InvocationError) Error() string {
	name := "<empty>"
	if len(e.Argv) > 0 {
		name = e.Argv[0]
	}
	if e.Exited {
		return fmt.Sprintf("%s: exit status %d", name, e.ExitCode)
	}
	return fmt.Sprintf("%s: %v", name, e.Err)
}

// Unwrap exposes ErrNonZeroExit for completed programs along with the
// underlying error, so both errors.Is checks work.
func (e *InvocationError) Unwrap() []error {
	if e.Exited {
		return []error{ErrNonZeroExit, e.Err}
	}
	return []error{e.Err}
}

// CommandLine returns the shell-quoted command line that failed.
func (e *InvocationError) CommandLine() string {
	return shellwords.Join(e.Argv)
}

// Diagnostics returns the captured standard error with surrounding
// whitespace removed.
func (e *InvocationError) Diagnostics() string {
	return strings.TrimSpace(e.Stderr)
}
