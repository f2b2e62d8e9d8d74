// SPDX-License-Identifier: MPL-2.0

package execution

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strings"
	"testing"
)

func skipWithoutSh(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestCall_ReportsExitCodeWithoutError(t *testing.T) {
	skipWithoutSh(t)
	t.Parallel()

	var stdout bytes.Buffer
	res, err := Call.Invoke(context.Background(), Invocation{
		Argv:   []string{"sh", "-c", "echo out; exit 7"},
		Stdout: &stdout,
		Stderr: &bytes.Buffer{},
	})
	if err != nil {
		t.Fatalf("Call.Invoke() unexpected error: %v", err)
	}
	if res.ExitCode != 7 {
		t.Errorf("ExitCode = %d, want 7", res.ExitCode)
	}
	if res.Raw != nil {
		t.Error("Call must not capture output")
	}
	if stdout.String() != "out\n" {
		t.Errorf("stdout = %q, want %q", stdout.String(), "out\n")
	}
}

func TestCheck_NonZeroExitKeepsStderr(t *testing.T) {
	skipWithoutSh(t)
	t.Parallel()

	var stderr bytes.Buffer
	_, err := Check.Invoke(context.Background(), Invocation{
		Argv:   []string{"sh", "-c", "echo oops >&2; exit 2"},
		Stdout: &bytes.Buffer{},
		Stderr: &stderr,
	})

	var ie *InvocationError
	if !errors.As(err, &ie) {
		t.Fatalf("Check.Invoke() error = %v, want *InvocationError", err)
	}
	if ie.ExitCode != 2 || ie.Diagnostics() != "oops" {
		t.Errorf("InvocationError = %+v, want exit 2 with diagnostics %q", ie, "oops")
	}
	if stderr.String() != "oops\n" {
		t.Errorf("stderr was not forwarded: %q", stderr.String())
	}
}

func TestNoExec(t *testing.T) {
	t.Parallel()

	res, err := NoExec.Invoke(context.Background(), Invocation{Argv: []string{"rm", "-rf", "/"}})
	if err != nil || res.ExitCode != 0 {
		t.Errorf("NoExec.Invoke() = %+v, %v, want success", res, err)
	}
}

func TestTailBuffer_KeepsLastBytes(t *testing.T) {
	t.Parallel()

	var tb tailBuffer
	head := strings.Repeat("a", maxDiagnostics)
	if _, err := tb.Write([]byte(head)); err != nil {
		t.Fatal(err)
	}
	if _, err := tb.Write([]byte("tail")); err != nil {
		t.Fatal(err)
	}

	got := tb.String()
	if len(got) != maxDiagnostics {
		t.Errorf("len = %d, want %d", len(got), maxDiagnostics)
	}
	if !strings.HasSuffix(got, "tail") {
		t.Error("tailBuffer dropped the most recent bytes")
	}
}

func TestInvocationError(t *testing.T) {
	t.Parallel()

	launch := &InvocationError{Argv: []string{"gen", "a b"}, ExitCode: 1, Err: exec.ErrNotFound}
	if errors.Is(launch, ErrNonZeroExit) {
		t.Error("a launch failure must not match ErrNonZeroExit")
	}
	if !errors.Is(launch, exec.ErrNotFound) {
		t.Error("InvocationError should unwrap to its cause")
	}
	if got := launch.CommandLine(); got != "gen 'a b'" {
		t.Errorf("CommandLine() = %q, want %q", got, "gen 'a b'")
	}

	exited := &InvocationError{Argv: []string{"gen"}, ExitCode: 5, Exited: true, Err: errors.New("exit status 5"), Stderr: "  boom \n"}
	if got := exited.Error(); got != "gen: exit status 5" {
		t.Errorf("Error() = %q, want %q", got, "gen: exit status 5")
	}
	if got := exited.Diagnostics(); got != "boom" {
		t.Errorf("Diagnostics() = %q, want %q", got, "boom")
	}
}
