// SPDX-License-Identifier: MPL-2.0

package execution

import (
	"strings"
	"testing"
)

func TestNormalizeEnv(t *testing.T) {
	t.Parallel()

	in := map[string]string{
		"LC_ALL":   "xx",
		"LC_CTYPE": "en_US.ISO-8859-1",
		"LANG":     "yy",
		"LANGUAGE": "fr",
		"HOME":     "/home/bob",
		"XLC_FOO":  "kept",
	}

	got := NormalizeEnv(in)

	for k := range got {
		if strings.HasPrefix(k, "LC_") {
			t.Errorf("NormalizeEnv() kept locale variable %s", k)
		}
	}
	if _, ok := got["LANGUAGE"]; ok {
		t.Error("NormalizeEnv() kept LANGUAGE")
	}
	if got["LANG"] != "C.UTF-8" {
		t.Errorf("LANG = %q, want C.UTF-8", got["LANG"])
	}
	if got["HOME"] != "/home/bob" || got["XLC_FOO"] != "kept" {
		t.Errorf("NormalizeEnv() dropped unrelated variables: %v", got)
	}
	if len(in) != 6 || in["LANG"] != "yy" {
		t.Error("NormalizeEnv() modified its input")
	}
}

func TestNormalizeEnv_EmptyEnvStillGetsLocale(t *testing.T) {
	t.Parallel()

	got := NormalizeEnv(map[string]string{})
	if len(got) != 1 || got["LANG"] != "C.UTF-8" {
		t.Errorf("NormalizeEnv({}) = %v, want only LANG=C.UTF-8", got)
	}
}

func TestNormalizeEnv_InheritsProcessEnv(t *testing.T) {
	t.Setenv("PHASER_TEST_MARKER", "present")
	t.Setenv("LC_ALL", "xx")

	got := NormalizeEnv(nil)
	if got["PHASER_TEST_MARKER"] != "present" {
		t.Error("NormalizeEnv(nil) should start from the process environment")
	}
	if _, ok := got["LC_ALL"]; ok {
		t.Error("NormalizeEnv(nil) kept LC_ALL from the process environment")
	}
}

func TestEnvSliceConversions(t *testing.T) {
	t.Parallel()

	env := EnvFromSlice([]string{"B=2", "A=1", "EQ=a=b", "malformed", "=hidden"})
	if len(env) != 3 {
		t.Fatalf("EnvFromSlice() = %v, want 3 entries", env)
	}
	if env["EQ"] != "a=b" {
		t.Errorf("EQ = %q, want %q", env["EQ"], "a=b")
	}

	got := strings.Join(EnvToSlice(env), ",")
	if got != "A=1,B=2,EQ=a=b" {
		t.Errorf("EnvToSlice() = %q, want sorted entries", got)
	}
}
