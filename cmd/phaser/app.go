// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/phaserci/phaser/internal/config"
	"github.com/phaserci/phaser/internal/generator"
	"github.com/phaserci/phaser/internal/issue"
	"github.com/phaserci/phaser/internal/logging"
	"github.com/phaserci/phaser/pkg/pipeline"
)

type (
	// App wires CLI services and shared dependencies. All command handlers
	// receive an App reference.
	App struct {
		Config ConfigProvider
		stdout io.Writer
		stderr io.Writer
		flags  rootFlags
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		Stdout io.Writer
		Stderr io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	rootFlags struct {
		pipelineFile string
		configPath   string
		verbose      bool
		dryRun       bool
		logLevel     string
		logFormat    string
	}

	// session is the per-invocation state shared by the subcommands.
	session struct {
		cfg    *config.Config
		logger *log.Logger
		// path is the absolute pipeline document path.
		path string
	}
)

// NewApp creates an App, filling unset dependencies with defaults.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app
}

// loadConfig loads the tool configuration and applies the flags the user
// set explicitly on top of it.
func (a *App) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := a.Config.Load(cmd.Context(), config.LoadOptions{ConfigFilePath: a.flags.configPath})
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("config-file") {
		cfg.PipelineFile = config.PipelineFilePath(a.flags.pipelineFile)
	}
	if flags.Changed("dry-run") {
		cfg.DryRun = a.flags.dryRun
	}
	if flags.Changed("verbose") {
		cfg.UI.Verbose = a.flags.verbose
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = config.LogLevel(a.flags.logLevel)
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = config.LogFormat(a.flags.logFormat)
	}
	a.flags.verbose = cfg.UI.Verbose

	if err := cfg.Validate(); err != nil {
		return nil, issue.Wrap(issue.ConfigLoadFailedId, err).
			During("apply command line flags").
			Suggest("Run 'phaser --help' to see the accepted values")
	}
	return cfg, nil
}

// newSession loads configuration and builds the logger for cmd.
func (a *App) newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(a.stderr, logging.Options{
		Level:  cfg.Log.Level.String(),
		Format: logging.Format(cfg.Log.Format),
	})
	if err != nil {
		return nil, err
	}

	path, err := filepath.Abs(cfg.PipelineFile.String())
	if err != nil {
		return nil, err
	}

	return &session{cfg: cfg, logger: logger, path: path}, nil
}

// dir is the directory generators and build steps run in.
func (s *session) dir() string {
	return filepath.Dir(s.path)
}

// loadPipeline reads and resolves the pipeline document. Generators run
// in the document's directory.
func (s *session) loadPipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	display := s.cfg.PipelineFile.String()

	data, err := os.ReadFile(s.path)
	if err != nil {
		var id issue.Id
		var hints []string
		switch {
		case errors.Is(err, fs.ErrNotExist):
			id = issue.PipelineNotFoundId
			hints = []string{"Run phaser from the repository root", "Point --config-file at the pipeline document"}
		case errors.Is(err, fs.ErrPermission):
			id = issue.PermissionDeniedId
			hints = []string{"Check the file permissions"}
		}
		return nil, issue.Wrap(id, err).During("read pipeline").On(display).Suggest(hints...)
	}

	gen := generator.New(
		generator.WithDir(s.dir()),
		generator.WithLogger(s.logger),
	)

	p, err := pipeline.Load(ctx, data, gen, pipeline.WithLogger(s.logger))
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, issue.Wrap(issue.PipelineParseErrorId, err).
			During("parse pipeline").
			On(display).
			Suggest(
				"Check the YAML syntax and indentation",
				"Steps must be strings, {sh: ...} or {with-credentials: ...}",
			)
	}

	for _, name := range p.FailedVariants() {
		s.logger.Warn("variant could not be generated", "variant", name)
	}
	return p, nil
}

// selectionError wraps an unknown phase or variant for display.
func selectionError(err error) error {
	if !errors.Is(err, pipeline.ErrUnknownPhase) && !errors.Is(err, pipeline.ErrUnknownVariant) {
		return err
	}
	return issue.Wrap(issue.PhaseNotFoundId, err).
		During("select pipeline part").
		Suggest("Run 'phaser getinfo' to list the phases and variants")
}
