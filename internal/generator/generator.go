// SPDX-License-Identifier: MPL-2.0

// Package generator runs the external programs named by !embed directives.
package generator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/phaserci/phaser/internal/execution"
	"github.com/phaserci/phaser/internal/shellwords"
	"github.com/phaserci/phaser/pkg/pipeline"
)

// ErrNoOutput is returned when the invoker reported nothing at all.
var ErrNoOutput = errors.New("generator produced no result")

type (
	// Runner implements pipeline.Generator by splitting the directive's
	// command into words and running it through execution.Execute with
	// standard output captured.
	Runner struct {
		dir     string
		env     map[string]string
		logger  *log.Logger
		invoker execution.Invoker
	}

	// Option configures a Runner.
	Option func(*Runner)
)

var _ pipeline.Generator = (*Runner)(nil)

// WithDir sets the directory generators run in. Programs named without a
// path separator are first looked up there, so a script that lives next to
// the pipeline document can be referenced by its bare name.
func WithDir(dir string) Option {
	return func(r *Runner) { r.dir = dir }
}

// WithEnv sets the base environment of generators. Nil means the process
// environment.
func WithEnv(env map[string]string) Option {
	return func(r *Runner) { r.env = env }
}

// WithLogger sets the logger handed to execution.Execute.
func WithLogger(logger *log.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithInvoker replaces execution.Capture.
func WithInvoker(invoker execution.Invoker) Option {
	return func(r *Runner) {
		if invoker != nil {
			r.invoker = invoker
		}
	}
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		logger:  log.Default(),
		invoker: execution.Capture,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Generate runs command and returns its standard output. Generators always
// run, whatever the dry-run setting of the surrounding build: their output
// is needed to know what the build consists of.
func (r *Runner) Generate(ctx context.Context, command string) (string, error) {
	argv, err := shellwords.Split(command)
	if err != nil {
		return "", fmt.Errorf("split generator command: %w", err)
	}
	argv[0] = r.resolveProgram(argv[0])

	res, err := execution.Execute(ctx, r.invoker, argv,
		execution.WithEnv(r.env),
		execution.WithDir(r.dir),
		execution.WithLogger(r.logger),
	)
	if err != nil {
		return "", err
	}
	if res == nil {
		return "", fmt.Errorf("%s: %w", argv[0], ErrNoOutput)
	}
	return res.Output, nil
}

func (r *Runner) resolveProgram(program string) string {
	if r.dir == "" || strings.ContainsRune(program, filepath.Separator) || strings.ContainsRune(program, '/') {
		return program
	}
	candidate := filepath.Join(r.dir, program)
	info, err := os.Stat(candidate)
	if err != nil || info.IsDir() {
		return program
	}
	return candidate
}
