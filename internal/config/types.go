// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// LogLevelDebug logs generator commands and resolution details.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs executed commands.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs failed embeds and other recoverable problems.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs failures only.
	LogLevelError LogLevel = "error"

	// LogFormatAuto picks text on a terminal and logfmt otherwise.
	LogFormatAuto LogFormat = "auto"
	// LogFormatText is the colored human format.
	LogFormatText LogFormat = "text"
	// LogFormatLogfmt writes key=value lines.
	LogFormatLogfmt LogFormat = "logfmt"
	// LogFormatJSON writes JSON lines.
	LogFormatJSON LogFormat = "json"

	// DefaultPipelineFile is the pipeline document looked up in the working
	// directory when none is configured.
	DefaultPipelineFile PipelineFilePath = "phaser-ci-config.yaml"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat is returned when a LogFormat value is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format")
	// ErrInvalidPipelineFilePath is returned when a PipelineFilePath is blank.
	ErrInvalidPipelineFilePath = errors.New("invalid pipeline file path")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// LogLevel is the minimum level of log lines.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// LogFormat selects the log line encoding.
	LogFormat string

	// InvalidLogFormatError is returned when a LogFormat value is not recognized.
	InvalidLogFormatError struct {
		Value LogFormat
	}

	// PipelineFilePath is the path of the YAML pipeline document.
	PipelineFilePath string

	// InvalidPipelineFilePathError is returned when a PipelineFilePath is
	// empty or whitespace-only.
	InvalidPipelineFilePathError struct {
		Value PipelineFilePath
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// PipelineFile is the pipeline document to resolve.
		PipelineFile PipelineFilePath `json:"pipeline_file" mapstructure:"pipeline_file" toml:"pipeline_file"`
		// DryRun logs build steps instead of running them.
		DryRun bool `json:"dry_run" mapstructure:"dry_run" toml:"dry_run"`
		// Log configures logging.
		Log LogConfig `json:"log" mapstructure:"log" toml:"log"`
		// UI configures the user interface.
		UI UIConfig `json:"ui" mapstructure:"ui" toml:"ui"`
	}

	// LogConfig configures logging.
	LogConfig struct {
		Level  LogLevel  `json:"level" mapstructure:"level" toml:"level"`
		Format LogFormat `json:"format" mapstructure:"format" toml:"format"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme selects the glamour style used by `phaser show`.
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme" toml:"color_scheme"`
		// Verbose prints full error chains and issue guidance.
		Verbose bool `json:"verbose" mapstructure:"verbose" toml:"verbose"`
	}
)

// IsValid returns whether the Config has valid fields.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.PipelineFile.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Log.Level.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Log.Format.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Validate returns the first IsValid error, if any.
func (c Config) Validate() error {
	if valid, errs := c.IsValid(); !valid {
		return errs[0]
	}
	return nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig and the field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// String returns the string representation of the PipelineFilePath.
func (p PipelineFilePath) String() string { return string(p) }

// IsValid returns whether the PipelineFilePath is non-blank.
func (p PipelineFilePath) IsValid() (bool, []error) {
	if strings.TrimSpace(string(p)) == "" {
		return false, []error{&InvalidPipelineFilePathError{Value: p}}
	}
	return true, nil
}

// Error implements the error interface for InvalidPipelineFilePathError.
func (e *InvalidPipelineFilePathError) Error() string {
	return fmt.Sprintf("invalid pipeline file path %q: must be non-empty", e.Value)
}

// Unwrap returns ErrInvalidPipelineFilePath for errors.Is() compatibility.
func (e *InvalidPipelineFilePathError) Unwrap() error { return ErrInvalidPipelineFilePath }

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// String returns the string representation of the LogFormat.
func (f LogFormat) String() string { return string(f) }

// IsValid returns whether the LogFormat is one of the defined formats.
func (f LogFormat) IsValid() (bool, []error) {
	switch f {
	case LogFormatAuto, LogFormatText, LogFormatLogfmt, LogFormatJSON:
		return true, nil
	default:
		return false, []error{&InvalidLogFormatError{Value: f}}
	}
}

// Error implements the error interface for InvalidLogFormatError.
func (e *InvalidLogFormatError) Error() string {
	return fmt.Sprintf("invalid log format %q (valid: auto, text, logfmt, json)", e.Value)
}

// Unwrap returns ErrInvalidLogFormat for errors.Is() compatibility.
func (e *InvalidLogFormatError) Unwrap() error { return ErrInvalidLogFormat }

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error {
	return ErrInvalidColorScheme
}

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		PipelineFile: DefaultPipelineFile,
		DryRun:       false,
		Log: LogConfig{
			Level:  LogLevelInfo,
			Format: LogFormatAuto,
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     false,
		},
	}
}
