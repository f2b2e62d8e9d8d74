// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/phaserci/phaser/internal/config"
)

const (
	formatCUE  = "cue"
	formatTOML = "toml"
)

// newConfigCommand creates the `phaser config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage phaser configuration",
		Long: `Manage phaser configuration.

Configuration is stored in:
  - Linux: ~/.config/phaser/config.cue
  - macOS: ~/Library/Application Support/phaser/config.cue
  - Windows: %APPDATA%\phaser\config.cue

PHASER_* environment variables override the file, and command line flags
override both.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var format string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd)
			if err != nil {
				return err
			}

			switch format {
			case formatCUE:
				fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			case formatTOML:
				out, err := config.GenerateTOML(cfg)
				if err != nil {
					return err
				}
				fmt.Fprint(app.stdout, out)
			default:
				return fmt.Errorf("unknown format %q (valid: cue, toml)", format)
			}
			return nil
		},
	}
	showCmd.Flags().StringVar(&format, "format", formatCUE, "output format (cue, toml)")
	cfgCmd.AddCommand(showCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.flags.configPath != "" {
				fmt.Fprintln(app.stdout, app.flags.configPath)
				return nil
			}
			cfgDir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			cfgPath := filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt)
			if _, err := os.Stat(cfgPath); err == nil {
				fmt.Fprintln(app.stdout, WarningStyle.Render("Configuration already exists: ")+cfgPath)
				return nil
			}
			if err := config.Save(config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, SuccessStyle.Render("Configuration written: ")+cfgPath)
			return nil
		},
	})

	return cfgCmd
}
