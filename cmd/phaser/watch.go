// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/phaserci/phaser/internal/watch"
)

// renderFunc resolves the pipeline and prints one view of it.
type renderFunc func(ctx context.Context) error

// runOnce renders, or keeps re-rendering on changes when watching.
func (a *App) runOnce(ctx context.Context, s *session, watching bool, render renderFunc) error {
	if !watching {
		return render(ctx)
	}
	return a.runWatching(ctx, s, render)
}

// runWatching renders once and then again whenever a file in the pipeline
// document's directory changes, until ctx is cancelled. Render failures
// are reported and do not stop the loop.
func (a *App) runWatching(ctx context.Context, s *session, render renderFunc) error {
	report := func(ctx context.Context) {
		if err := render(ctx); err != nil {
			fmt.Fprintln(a.stderr, WarningStyle.Render("Error: ")+formatErrorForDisplay(err, s.cfg.UI.Verbose))
		}
	}

	w, err := watch.New(watch.Config{
		BaseDir: s.dir(),
		Logger:  s.logger,
		OnChange: func(ctx context.Context, changed []string) error {
			s.logger.Info("re-resolving pipeline", "changed", changed)
			report(ctx)
			return nil
		},
	})
	if err != nil {
		return err
	}

	report(ctx)
	s.logger.Info("watching for changes", "dir", s.dir())
	return w.Run(ctx)
}
