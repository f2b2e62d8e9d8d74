// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride replaces the platform config directory when set.
// os.UserHomeDir() ignores HOME on some platforms, so tests and the CLI's
// --config-dir flag go through here instead.
var configDirOverride string

// Reset clears the config directory override.
func Reset() {
	configDirOverride = ""
}

// SetConfigDirOverride makes ConfigDir return dir.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}
