// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidShape is the sentinel error wrapped by ShapeError.
	ErrInvalidShape = errors.New("invalid pipeline structure")
	// ErrUnknownPhase is returned when a requested phase does not exist.
	ErrUnknownPhase = errors.New("unknown phase")
	// ErrUnknownVariant is returned when a requested variant does not exist.
	ErrUnknownVariant = errors.New("unknown variant")
	// ErrInvalidGeneratorOutput is returned when generator output is not a
	// mapping of variant names to step lists.
	ErrInvalidGeneratorOutput = errors.New("invalid generator output")
)

// ShapeError reports a declaration that does not match the pipeline grammar.
// It wraps ErrInvalidShape for errors.Is() compatibility.
type ShapeError struct {
	// Path locates the offending node, e.g. "phases.build.a[2]".
	Path string
	// Line is the 1-based line in the source document, 0 if unknown.
	Line int
	// Reason describes what is wrong.
	Reason string
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s (line %d): %s", e.Path, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// Unwrap returns ErrInvalidShape so callers can use errors.Is for programmatic detection.
func (e *ShapeError) Unwrap() error { return ErrInvalidShape }
