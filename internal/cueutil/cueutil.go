// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates CUE documents against embedded schemas and turns
// CUE errors into path-prefixed messages.
package cueutil

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

// DefaultMaxFileSize bounds the size of documents accepted by Validate.
const DefaultMaxFileSize int64 = 1024 * 1024

// Validate compiles schema and data, unifies data with the schema
// definition (for example "#Config") and validates the result. Fields need
// not be concrete, so optional settings may be left out.
func Validate(schema string, data []byte, definition, filename string) (cue.Value, error) {
	if err := CheckFileSize(data, DefaultMaxFileSize, filename); err != nil {
		return cue.Value{}, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(schema)
	if schemaValue.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}
	root := schemaValue.LookupPath(cue.ParsePath(definition))
	if root.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: schema definition %s not found: %w", definition, root.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(filename))
	if userValue.Err() != nil {
		return cue.Value{}, FormatError(userValue.Err(), filename)
	}

	unified := root.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return cue.Value{}, FormatError(err, filename)
	}
	return unified, nil
}

// FormatError rewrites a CUE error as "<file>: <path>: <message>", one line
// per underlying error. Non-CUE errors are prefixed with the file name.
func FormatError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	cueErrors := errors.Errors(err)
	if len(cueErrors) == 0 {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	lines := make([]string, 0, len(cueErrors))
	for _, e := range cueErrors {
		path := formatPath(errors.Path(e))
		msg := e.Error()
		if path != "" && strings.HasPrefix(msg, path) {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, path), ":"))
		}
		if path != "" {
			msg = path + ": " + msg
		}
		lines = append(lines, msg)
	}

	if len(lines) == 1 {
		return fmt.Errorf("%s: %s", filePath, lines[0])
	}
	return fmt.Errorf("%s: validation failed:\n  %s", filePath, strings.Join(lines, "\n  "))
}

// formatPath renders ["log", "0", "level"] as "log[0].level".
func formatPath(path []string) string {
	var sb strings.Builder
	for i, part := range path {
		switch {
		case i > 0 && isIndex(part):
			sb.WriteString("[" + part + "]")
		case i > 0:
			sb.WriteString("." + part)
		default:
			sb.WriteString(part)
		}
	}
	return sb.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// CheckFileSize reports an error when data is larger than maxSize.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", filename, len(data), maxSize)
	}
	return nil
}
