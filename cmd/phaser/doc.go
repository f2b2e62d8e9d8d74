// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the phaser CLI.
//
// The root command loads the tool configuration (see internal/config),
// builds a logger and resolves the pipeline document before handing it to
// one of the subcommands: getinfo prints the resolved structure as JSON,
// build runs the selected variants, show renders a markdown summary and
// config inspects the effective settings.
package cmd
