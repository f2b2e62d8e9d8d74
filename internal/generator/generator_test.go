// SPDX-License-Identifier: MPL-2.0

package generator

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/phaserci/phaser/internal/execution"
	"github.com/phaserci/phaser/internal/shellwords"
)

type recordingInvoker struct {
	last   execution.Invocation
	result *execution.Result
	err    error
}

func (r *recordingInvoker) Invoke(_ context.Context, inv execution.Invocation) (*execution.Result, error) {
	r.last = inv
	return r.result, r.err
}

func quiet() Option {
	return WithLogger(log.New(&bytes.Buffer{}))
}

func requirePOSIX(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestGenerate_SplitsAndPassesArguments(t *testing.T) {
	t.Parallel()

	inv := &recordingInvoker{result: &execution.Result{Raw: []byte("a:\n  - echo\n")}}
	r := New(WithInvoker(inv), quiet())

	out, err := r.Generate(context.Background(), `generate.py "two words" argument-variant`)
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if out != "a:\n  - echo\n" {
		t.Errorf("Generate() = %q, want the decoded output", out)
	}
	want := []string{"generate.py", "two words", "argument-variant"}
	if !slices.Equal(inv.last.Argv, want) {
		t.Errorf("argv = %q, want %q", inv.last.Argv, want)
	}
	if !slices.Contains(inv.last.Env, "LANG=C.UTF-8") {
		t.Errorf("generator env %q lacks LANG=C.UTF-8", inv.last.Env)
	}
}

func TestGenerate_ResolvesProgramInDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	script := filepath.Join(dir, "generate-variants.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	inv := &recordingInvoker{result: &execution.Result{Raw: []byte{}}}
	r := New(WithDir(dir), WithInvoker(inv), quiet())

	if _, err := r.Generate(context.Background(), "generate-variants.sh x"); err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if inv.last.Argv[0] != script {
		t.Errorf("program = %q, want %q", inv.last.Argv[0], script)
	}
	if inv.last.Dir != dir {
		t.Errorf("dir = %q, want %q", inv.last.Dir, dir)
	}

	if _, err := r.Generate(context.Background(), "printf x"); err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if inv.last.Argv[0] != "printf" {
		t.Errorf("program = %q, want printf to be left for PATH lookup", inv.last.Argv[0])
	}
}

func TestGenerate_SplitFailure(t *testing.T) {
	t.Parallel()

	inv := &recordingInvoker{}
	r := New(WithInvoker(inv), quiet())

	for _, cmd := range []string{"", "gen 'unterminated", "gen \"open", "  "} {
		if _, err := r.Generate(context.Background(), cmd); err == nil {
			t.Errorf("Generate(%q) expected an error", cmd)
		}
	}
	if inv.last.Argv != nil {
		t.Error("invoker must not run when the command cannot be split")
	}
}

func TestGenerate_PropagatesInvocationErrors(t *testing.T) {
	t.Parallel()

	want := &execution.InvocationError{Argv: []string{"gen"}, ExitCode: 3, Exited: true, Err: errors.New("exit status 3")}
	r := New(WithInvoker(&recordingInvoker{err: want}), quiet())

	_, err := r.Generate(context.Background(), "gen")
	if !errors.Is(err, execution.ErrNonZeroExit) {
		t.Errorf("Generate() error = %v, want ErrNonZeroExit", err)
	}
}

func TestGenerate_NilResult(t *testing.T) {
	t.Parallel()

	r := New(WithInvoker(&recordingInvoker{}), quiet())
	if _, err := r.Generate(context.Background(), "gen"); !errors.Is(err, ErrNoOutput) {
		t.Errorf("Generate() error = %v, want ErrNoOutput", err)
	}
}

func TestGenerate_RealPrintf(t *testing.T) {
	requirePOSIX(t)
	if _, err := exec.LookPath("printf"); err != nil {
		t.Skip("printf not available")
	}
	t.Parallel()

	r := New(quiet())
	cmd := "printf " + shellwords.Quote("%s") + " " + shellwords.Quote("test-variant:\n  - Bob the builder\n")

	out, err := r.Generate(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "test-variant:") {
		t.Errorf("Generate() = %q, want generated YAML", out)
	}
}

func TestGenerate_RealScriptWithArgument(t *testing.T) {
	requirePOSIX(t)
	t.Parallel()

	dir := t.TempDir()
	script := "#!/bin/sh\nprintf 'test-%s:\\n  - echo Bob the builder\\n' \"$1\"\n"
	if err := os.WriteFile(filepath.Join(dir, "generate-variants.sh"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	r := New(WithDir(dir), quiet())
	out, err := r.Generate(context.Background(), "generate-variants.sh argument-variant")
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "test-argument-variant:") {
		t.Errorf("Generate() = %q, want the argument echoed in the variant name", out)
	}
}

func TestGenerate_RealMissingProgram(t *testing.T) {
	t.Parallel()

	r := New(WithDir(t.TempDir()), quiet())
	_, err := r.Generate(context.Background(), "generate-variants.py")

	var ie *execution.InvocationError
	if !errors.As(err, &ie) {
		t.Fatalf("Generate() error = %v, want *execution.InvocationError", err)
	}
	if ie.Exited {
		t.Error("a missing program must not be reported as exited")
	}
}
