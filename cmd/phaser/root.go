// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/phaserci/phaser/internal/config"
	"github.com/phaserci/phaser/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "phaser",
		Short: "Resolve and run phased CI pipelines",
		Long: TitleStyle.Render("phaser") + SubtitleStyle.Render(" - Resolve and run phased CI pipelines") + `

phaser reads a YAML pipeline document made of phases and variants, runs the
generators referenced by '!embed' directives to fill in dynamic variants,
and then reports or executes the resolved pipeline.

` + SubtitleStyle.Render("Examples:") + `
  phaser getinfo                    Print the resolved pipeline as JSON
  phaser getinfo --phase build      Print a single phase
  phaser build --dry-run            Log the commands a build would run
  phaser show                       Render a summary of the pipeline
  phaser config show                Show current configuration`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&app.flags.pipelineFile, "config-file", string(config.DefaultPipelineFile), "pipeline document to resolve")
	flags.StringVar(&app.flags.configPath, "config", "", "tool config file (default is $XDG_CONFIG_HOME/phaser/config.cue)")
	flags.BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVar(&app.flags.dryRun, "dry-run", false, "log commands instead of running them")
	flags.StringVar(&app.flags.logLevel, "log-level", "", "minimum log level (debug, info, warn, error)")
	flags.StringVar(&app.flags.logFormat, "log-format", "", "log format (auto, text, logfmt, json)")

	rootCmd.AddCommand(newGetInfoCommand(app))
	rootCmd.AddCommand(newBuildCommand(app))
	rootCmd.AddCommand(newShowCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the status of the failed command.
// This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	rootCmd := NewRootCommand(app)

	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	)
	if err == nil {
		return
	}

	if app.flags.verbose {
		renderGuidance(app.stderr, err)
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code != 0 {
		os.Exit(int(exitErr.Code))
	}
	os.Exit(1)
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// renderGuidance prints the catalog entry linked to err, if any.
func renderGuidance(w io.Writer, err error) {
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Guidance() == nil {
		return
	}
	rendered, renderErr := ae.Guidance().Render("notty")
	if renderErr != nil {
		return
	}
	fmt.Fprintln(w, formatErrorForDisplay(err, true))
	fmt.Fprint(w, rendered)
}
