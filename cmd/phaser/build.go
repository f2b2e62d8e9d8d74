// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/phaserci/phaser/internal/execution"
	"github.com/phaserci/phaser/internal/issue"
	"github.com/phaserci/phaser/internal/runner"
)

func newBuildCommand(app *App) *cobra.Command {
	var sel runner.Selection

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Run the steps of the resolved pipeline",
		Long: `Run the steps of the resolved pipeline.

Variants run in pipeline order, each step in the pipeline document's
directory. The build stops at the first failing step and exits with its
status. With --dry-run the commands are only logged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.newSession(cmd)
			if err != nil {
				return err
			}
			p, err := s.loadPipeline(cmd.Context())
			if err != nil {
				return err
			}

			r := runner.New(
				runner.WithDryRun(s.cfg.DryRun),
				runner.WithDir(s.dir()),
				runner.WithLogger(s.logger),
				runner.WithOutput(app.stdout, app.stderr),
			)
			return buildError(r.Run(cmd.Context(), p, sel))
		},
	}

	cmd.Flags().StringVar(&sel.Phase, "phase", "", "only run this phase")
	cmd.Flags().StringVar(&sel.Variant, "variant", "", "only run this variant (requires --phase)")

	return cmd
}

// buildError maps a run failure to the error shown to the user and the
// process exit status.
func buildError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, runner.ErrFailedVariant) {
		return issue.Wrap(issue.GeneratorFailedId, err).
			During("run variant").
			Suggest("Run with --log-level debug to see the generator output")
	}

	var stepErr *runner.StepError
	if !errors.As(err, &stepErr) {
		return selectionError(err)
	}

	wrapped := issue.Wrap(issue.StepFailedId, err).
		During("run step").
		On(stepErr.Phase + "/" + stepErr.Variant)

	var ie *execution.InvocationError
	if errors.As(err, &ie) && ie.Exited {
		return &ExitError{Code: ie.ExitCode, Err: wrapped}
	}
	return wrapped
}
