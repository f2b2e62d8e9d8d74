// SPDX-License-Identifier: MPL-2.0

// Package config loads phaser settings with Viper, using CUE as the file
// format.
//
// The optional config file lives at $XDG_CONFIG_HOME/phaser/config.cue on
// Linux, ~/Library/Application Support/phaser/config.cue on macOS and
// %APPDATA%\phaser\config.cue on Windows. Files are validated against the
// embedded config_schema.cue before being merged over the defaults, and
// PHASER_* environment variables (PHASER_LOG_LEVEL, PHASER_DRY_RUN, ...)
// override both.
package config
