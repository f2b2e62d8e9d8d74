// SPDX-License-Identifier: MPL-2.0

// Package shellwords splits command strings into argument vectors and quotes
// argument vectors back into command lines.
//
// Splitting follows POSIX shlex rules: quotes and backslash escapes are
// honoured, everything else is an ordinary word character. Parameter
// references such as $HOME and operator characters such as ; or > are passed
// through literally; nothing is expanded or executed.
package shellwords

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/anmitsu/go-shlex"
	"mvdan.cc/sh/v3/syntax"
)

// ErrEmptyCommand is returned when a command string contains no words.
var ErrEmptyCommand = errors.New("empty command")

// Split breaks s into words.
func Split(s string) ([]string, error) {
	words, err := shlex.Split(s, true)
	if err != nil {
		return nil, fmt.Errorf("split %q: %w", s, err)
	}
	if len(words) == 0 {
		return nil, ErrEmptyCommand
	}
	return words, nil
}

// Quote returns word quoted for a POSIX shell. Words that need no quoting
// are returned unchanged.
func Quote(word string) string {
	if word == "" {
		return "''"
	}
	quoted, err := syntax.Quote(word, syntax.LangBash)
	if err != nil {
		return strconv.Quote(word)
	}
	return quoted
}

// Join quotes every word of argv and joins them with single spaces.
func Join(argv []string) string {
	quoted := make([]string, len(argv))
	for i, word := range argv {
		quoted[i] = Quote(word)
	}
	return strings.Join(quoted, " ")
}
