// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

// ActionableError is a user-facing error: the operation that failed, the
// file or pipeline entry involved, hints for fixing it and, optionally, a
// catalog entry with longer guidance.
//
// Errors are built by chaining on Wrap:
//
//	return issue.Wrap(issue.PipelineNotFoundId, err).
//		During("read pipeline").
//		On(path).
//		Suggest("Run phaser from the repository root")
type ActionableError struct {
	// Issue links to the catalog; zero means no guidance.
	Issue Id
	// Operation is a verb phrase such as "read pipeline" or "run step".
	Operation string
	// Resource is the file, phase or variant involved, if any.
	Resource string
	// Suggestions are one-line hints shown under the message.
	Suggestions []string
	// Cause is the underlying error.
	Cause error
}

// Wrap starts an ActionableError for cause filed under id.
func Wrap(id Id, cause error) *ActionableError {
	return &ActionableError{Issue: id, Cause: cause}
}

// During sets the failed operation.
func (e *ActionableError) During(operation string) *ActionableError {
	e.Operation = operation
	return e
}

// On sets the resource involved.
func (e *ActionableError) On(resource string) *ActionableError {
	e.Resource = resource
	return e
}

// Suggest appends hints.
func (e *ActionableError) Suggest(hints ...string) *ActionableError {
	e.Suggestions = append(e.Suggestions, hints...)
	return e
}

// Error returns "failed to <operation>: <resource>: <cause>", leaving out
// the parts that are not set.
func (e *ActionableError) Error() string {
	parts := make([]string, 0, 3)
	if e.Operation != "" {
		parts = append(parts, "failed to "+e.Operation)
	}
	if e.Resource != "" {
		parts = append(parts, e.Resource)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	if len(parts) == 0 {
		return "unknown error"
	}
	return strings.Join(parts, ": ")
}

func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Format renders the message followed by the suggestions as a bullet list.
// Verbose output also lists the chain of wrapped causes.
func (e *ActionableError) Format(verbose bool) string {
	var msg strings.Builder
	msg.WriteString(e.Error())

	if len(e.Suggestions) > 0 {
		msg.WriteString("\n")
		for _, hint := range e.Suggestions {
			msg.WriteString("\n  • " + hint)
		}
	}

	if verbose && e.Cause != nil {
		msg.WriteString("\n\nError chain:")
		depth := 1
		for err := e.Cause; err != nil; err = errors.Unwrap(err) {
			fmt.Fprintf(&msg, "\n  %d. %s", depth, err)
			depth++
		}
	}

	return msg.String()
}

// Guidance returns the catalog entry linked to the error, or nil.
func (e *ActionableError) Guidance() *Issue {
	return Get(e.Issue)
}
