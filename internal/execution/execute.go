// SPDX-License-Identifier: MPL-2.0

package execution

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"github.com/phaserci/phaser/internal/shellwords"
)

// ExecutingPrefix precedes the command line in the log unless running dry.
const ExecutingPrefix = "Executing: "

// ErrEmptyArgv is returned when Execute is called without a program.
var ErrEmptyArgv = errors.New("no program to execute")

// commandStyle highlights command lines in the log.
var commandStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

type (
	// Option configures a single Execute call.
	Option func(*options)

	options struct {
		dryRun bool
		env    map[string]string
		dir    string
		logger *log.Logger
		stdin  io.Reader
		stdout io.Writer
		stderr io.Writer
	}
)

// WithDryRun makes Execute log the command without invoking it.
func WithDryRun(dryRun bool) Option {
	return func(o *options) { o.dryRun = dryRun }
}

// WithEnv sets the base environment. A nil map means the process environment.
func WithEnv(env map[string]string) Option {
	return func(o *options) { o.env = env }
}

// WithDir sets the working directory of the program.
func WithDir(dir string) Option {
	return func(o *options) { o.dir = dir }
}

// WithLogger sets the logger used for the command line and failures.
func WithLogger(logger *log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithStdio sets the standard streams handed to the invoker.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(o *options) {
		o.stdin = stdin
		o.stdout = stdout
		o.stderr = stderr
	}
}

// Execute runs argv through invoker.
//
// The shell-quoted command line is logged first, prefixed with
// ExecutingPrefix unless dry-run is enabled. The child environment is the
// configured (or inherited) environment with its locale forced to C.UTF-8.
// In dry-run mode the invoker is never called and a zero exit code is
// returned. Captured output is decoded as UTF-8 into Result.Output.
//
// Errors from the invoker are logged, together with the child diagnostics
// of an *InvocationError, and returned unchanged.
func Execute(ctx context.Context, invoker Invoker, argv []string, opts ...Option) (*Result, error) {
	o := options{logger: log.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if len(argv) == 0 {
		return nil, ErrEmptyArgv
	}

	prefix := ExecutingPrefix
	if o.dryRun {
		prefix = ""
	}
	o.logger.Info(prefix + commandStyle.Render(shellwords.Join(argv)))

	env := NormalizeEnv(o.env)

	if o.dryRun {
		return NewSuccessResult(), nil
	}

	res, err := invoker.Invoke(ctx, Invocation{
		Argv:   slices.Clone(argv),
		Env:    EnvToSlice(env),
		Dir:    o.dir,
		Stdin:  o.stdin,
		Stdout: o.stdout,
		Stderr: o.stderr,
	})
	if err != nil {
		logFailure(o.logger, argv, err)
		return nil, err
	}

	if res != nil && res.Raw != nil {
		text, decodeErr := decodeUTF8(res.Raw)
		if decodeErr != nil {
			err = fmt.Errorf("decode output of %s: %w", argv[0], decodeErr)
			logFailure(o.logger, argv, err)
			return nil, err
		}
		res.Output = text
	}

	return res, nil
}

// logFailure reports err at error level. Invocation errors name the
// command line they carry, which is what the invoker actually ran.
func logFailure(logger *log.Logger, argv []string, err error) {
	var ie *InvocationError
	if !errors.As(err, &ie) {
		logger.Error("command failed", "command", shellwords.Join(argv), "err", err)
		return
	}

	logger.Error("command failed", "command", ie.CommandLine(), "err", err)
	if ie.Diagnostics() != "" {
		logger.Error("child diagnostics", "exit_code", ie.ExitCode, "stderr", ie.Diagnostics())
	}
}

func decodeUTF8(raw []byte) (string, error) {
	decoded, _, err := transform.Bytes(encoding.UTF8Validator, raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidUTF8, err)
	}
	return string(decoded), nil
}
