// SPDX-License-Identifier: MPL-2.0

package execution

import (
	"os"
	"sort"
	"strings"
)

const (
	// LocaleVar is the variable that carries the forced locale.
	LocaleVar = "LANG"
	// Locale is the locale every child process runs under, so that output
	// parsed as YAML or JSON is UTF-8 regardless of the host settings.
	Locale = "C.UTF-8"
)

// NormalizeEnv returns a copy of env with all locale settings replaced by
// LANG=C.UTF-8. Every LC_* variable, LANG and LANGUAGE are dropped before
// LANG is set. A nil env starts from the current process environment.
// The input map is never modified.
func NormalizeEnv(env map[string]string) map[string]string {
	if env == nil {
		env = EnvFromSlice(os.Environ())
	}

	result := make(map[string]string, len(env)+1)
	for k, v := range env {
		if isLocaleVar(k) {
			continue
		}
		result[k] = v
	}
	result[LocaleVar] = Locale
	return result
}

func isLocaleVar(name string) bool {
	return strings.HasPrefix(name, "LC_") || name == "LANG" || name == "LANGUAGE"
}

// EnvFromSlice converts KEY=VALUE entries (as returned by os.Environ) into a
// map. Entries without a separator are skipped; later duplicates win.
func EnvFromSlice(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, entry := range environ {
		idx := strings.IndexByte(entry, '=')
		if idx <= 0 {
			continue
		}
		env[entry[:idx]] = entry[idx+1:]
	}
	return env
}

// EnvToSlice converts an environment map into KEY=VALUE entries sorted by key,
// so that the child environment is identical between runs.
func EnvToSlice(env map[string]string) []string {
	result := make([]string, 0, len(env))
	for k, v := range env {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}
