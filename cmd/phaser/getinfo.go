// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phaserci/phaser/pkg/pipeline"
)

func newGetInfoCommand(app *App) *cobra.Command {
	var (
		opts     pipeline.InfoOptions
		watching bool
	)

	cmd := &cobra.Command{
		Use:   "getinfo",
		Short: "Print the resolved pipeline as JSON",
		Long: `Print the resolved pipeline as JSON.

Phases and variants are listed in declaration order, with embedded variants
spliced in where their '!embed' directive was. Each variant lists the
credentials its steps require. A variant whose generator failed is printed
as an empty object named "error-variant".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.newSession(cmd)
			if err != nil {
				return err
			}
			return app.runOnce(cmd.Context(), s, watching, func(ctx context.Context) error {
				p, err := s.loadPipeline(ctx)
				if err != nil {
					return err
				}

				view, err := p.Describe(opts)
				if err != nil {
					return selectionError(err)
				}
				out, err := pipeline.MarshalIndent(view)
				if err != nil {
					return fmt.Errorf("encode pipeline info: %w", err)
				}
				fmt.Fprintln(app.stdout, string(out))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.Phase, "phase", "", "only print this phase")
	cmd.Flags().StringVar(&opts.Variant, "variant", "", "only print this variant (requires --phase)")
	cmd.Flags().BoolVar(&opts.WithSteps, "steps", false, "include the steps of each variant")
	cmd.Flags().BoolVarP(&watching, "watch", "w", false, "print again whenever the pipeline directory changes")

	return cmd
}
