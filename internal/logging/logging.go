// SPDX-License-Identifier: MPL-2.0

// Package logging builds the charmbracelet/log logger shared by phaser
// commands.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/term"
)

const (
	// FormatAuto picks FormatText on a terminal and FormatLogfmt otherwise.
	FormatAuto Format = "auto"
	// FormatText is the human-oriented colored format.
	FormatText Format = "text"
	// FormatLogfmt writes key=value lines.
	FormatLogfmt Format = "logfmt"
	// FormatJSON writes one JSON object per line.
	FormatJSON Format = "json"
)

type (
	// Format selects the log line encoding.
	Format string

	// Options configures New.
	Options struct {
		// Level is one of debug, info, warn, error. Empty means info.
		Level string
		// Format defaults to FormatAuto.
		Format Format
		// Prefix is prepended to every line.
		Prefix string
	}
)

// ParseLevel maps a level name to a log.Level.
func ParseLevel(level string) (log.Level, error) {
	if strings.TrimSpace(level) == "" {
		return log.InfoLevel, nil
	}
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return log.InfoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}

// ParseFormat validates a format name.
func ParseFormat(format string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(format))); f {
	case "":
		return FormatAuto, nil
	case FormatAuto, FormatText, FormatLogfmt, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("invalid log format %q (expected auto, text, logfmt or json)", format)
	}
}

// New creates a logger writing to w.
func New(w io.Writer, opts Options) (*log.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	format, err := ParseFormat(string(opts.Format))
	if err != nil {
		return nil, err
	}

	return log.NewWithOptions(w, log.Options{
		Level:     level,
		Prefix:    opts.Prefix,
		Formatter: formatter(format, isTerminal(w)),
	}), nil
}

func formatter(format Format, tty bool) log.Formatter {
	switch format {
	case FormatJSON:
		return log.JSONFormatter
	case FormatLogfmt:
		return log.LogfmtFormatter
	case FormatText:
		return log.TextFormatter
	default:
		if tty {
			return log.TextFormatter
		}
		return log.LogfmtFormatter
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
