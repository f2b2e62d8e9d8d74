// SPDX-License-Identifier: MPL-2.0

// Package runner executes the steps of a resolved pipeline.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/phaserci/phaser/internal/execution"
	"github.com/phaserci/phaser/internal/shellwords"
	"github.com/phaserci/phaser/pkg/pipeline"
)

var (
	// ErrFailedVariant is returned when the selection contains the marker
	// variant left by a failed embed.
	ErrFailedVariant = errors.New("variant could not be generated")
	// ErrUnresolvedEmbed is returned when a step list still contains an
	// embed directive.
	ErrUnresolvedEmbed = errors.New("embed directive was not resolved")
)

type (
	// Selection narrows a run to one phase and optionally one variant.
	// The zero value selects everything.
	Selection struct {
		Phase   string
		Variant string
	}

	// StepError reports the step that stopped a run.
	StepError struct {
		Phase   string
		Variant string
		Index   int
		Err     error
	}

	// Runner runs ShellCommand steps through execution.Execute.
	Runner struct {
		dryRun  bool
		dir     string
		env     map[string]string
		logger  *log.Logger
		invoker execution.Invoker
		stdout  io.Writer
		stderr  io.Writer
	}

	// Option configures a Runner.
	Option func(*Runner)
)

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("%s/%s step %d: %v", e.Phase, e.Variant, e.Index+1, e.Err)
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error { return e.Err }

// WithDryRun logs every command without running it.
func WithDryRun(dryRun bool) Option {
	return func(r *Runner) { r.dryRun = dryRun }
}

// WithDir sets the working directory of steps.
func WithDir(dir string) Option {
	return func(r *Runner) { r.dir = dir }
}

// WithEnv sets the base environment of steps. Nil means the process
// environment.
func WithEnv(env map[string]string) Option {
	return func(r *Runner) { r.env = env }
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithInvoker replaces execution.Check.
func WithInvoker(invoker execution.Invoker) Option {
	return func(r *Runner) {
		if invoker != nil {
			r.invoker = invoker
		}
	}
}

// WithOutput sets where step output goes.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(r *Runner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		logger:  log.Default(),
		invoker: execution.Check,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the selected variants in pipeline order and stops at the
// first failing step.
func (r *Runner) Run(ctx context.Context, p *pipeline.Pipeline, sel Selection) error {
	if sel.Variant != "" && sel.Phase == "" {
		return fmt.Errorf("%w %q: a phase must be selected too", pipeline.ErrUnknownVariant, sel.Variant)
	}
	if sel.Phase != "" && !p.Phases.Has(sel.Phase) {
		return fmt.Errorf("%w %q", pipeline.ErrUnknownPhase, sel.Phase)
	}

	for phaseName, phase := range p.Phases.All() {
		if sel.Phase != "" && phaseName != sel.Phase {
			continue
		}
		if sel.Variant != "" && !phase.Variants.Has(sel.Variant) {
			return fmt.Errorf("%w %q in phase %q", pipeline.ErrUnknownVariant, sel.Variant, phaseName)
		}

		for variantName, v := range phase.Variants.All() {
			if sel.Variant != "" && variantName != sel.Variant {
				continue
			}
			if err := r.runVariant(ctx, phaseName, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runner) runVariant(ctx context.Context, phase string, v *pipeline.Variant) error {
	if v.Failed {
		return fmt.Errorf("%s/%s: %w", phase, v.Name, ErrFailedVariant)
	}

	r.logger.Info("running variant", "phase", phase, "variant", v.Name, "steps", len(v.Steps))
	for i, step := range v.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.runStep(ctx, step); err != nil {
			return &StepError{Phase: phase, Variant: v.Name, Index: i, Err: err}
		}
	}
	return nil
}

func (r *Runner) runStep(ctx context.Context, step pipeline.Step) error {
	switch s := step.(type) {
	case pipeline.ShellCommand:
		argv, err := shellwords.Split(s.Command)
		if err != nil {
			return err
		}
		_, err = execution.Execute(ctx, r.invoker, argv,
			execution.WithDryRun(r.dryRun),
			execution.WithEnv(r.env),
			execution.WithDir(r.dir),
			execution.WithLogger(r.logger),
			execution.WithStdio(nil, r.stdout, r.stderr),
		)
		return err
	case pipeline.CredentialScope:
		ids := make([]string, len(s.IDs))
		for i, ref := range s.IDs {
			ids[i] = ref.ID
		}
		r.logger.Info("credentials required", "ids", strings.Join(ids, ","))
		return nil
	case pipeline.EmbedDirective:
		return fmt.Errorf("%w: %s", ErrUnresolvedEmbed, s.Command)
	default:
		return fmt.Errorf("unsupported step kind %q", step.Kind())
	}
}
