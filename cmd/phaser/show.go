// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/phaserci/phaser/internal/config"
	"github.com/phaserci/phaser/pkg/pipeline"
)

func newShowCommand(app *App) *cobra.Command {
	var watching bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Render a summary of the resolved pipeline",
		Args:  cobra.NoArgs,
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

				out, err := glamour.Render(summaryMarkdown(s.cfg.PipelineFile.String(), p), glamourStyle(s.cfg.UI.ColorScheme))
				if err != nil {
					return fmt.Errorf("render summary: %w", err)
				}
				fmt.Fprint(app.stdout, out)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&watching, "watch", "w", false, "render again whenever the pipeline directory changes")

	return cmd
}

// glamourStyle maps the color scheme to a glamour style. Output that is not
// a terminal gets the plain style.
func glamourStyle(scheme config.ColorScheme) string {
	switch {
	case !term.IsTerminal(int(os.Stdout.Fd())):
		return "notty"
	case scheme == config.ColorSchemeLight:
		return "light"
	default:
		return "dark"
	}
}

// summaryMarkdown lists phases and variants with their step counts and
// credentials.
func summaryMarkdown(name string, p *pipeline.Pipeline) string {
	var md strings.Builder

	fmt.Fprintf(&md, "# %s\n\n", name)
	if p.Phases.Len() == 0 {
		md.WriteString("No phases declared.\n")
		return md.String()
	}

	for phaseName, phase := range p.Phases.All() {
		fmt.Fprintf(&md, "## %s\n\n", phaseName)
		if phase.Variants.Len() == 0 {
			md.WriteString("No variants.\n\n")
			continue
		}

		md.WriteString("| Variant | Steps | Credentials |\n")
		md.WriteString("|---|---|---|\n")
		for variantName, v := range phase.Variants.All() {
			if v.Failed {
				fmt.Fprintf(&md, "| `%s` | generator failed | |\n", variantName)
				continue
			}
			ids := make([]string, len(v.RequiredCredentials))
			for i, ref := range v.RequiredCredentials {
				ids[i] = "`" + ref.ID + "`"
			}
			fmt.Fprintf(&md, "| `%s` | %d | %s |\n", variantName, len(v.Steps), strings.Join(ids, ", "))
		}
		md.WriteString("\n")
	}

	if failed := p.FailedVariants(); len(failed) > 0 {
		md.WriteString("> Some variants could not be generated: " + strings.Join(failed, ", ") + "\n")
	}
	return md.String()
}
