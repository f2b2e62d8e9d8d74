// SPDX-License-Identifier: MPL-2.0

package execution

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
)

// maxDiagnostics bounds the amount of standard error kept for diagnostics
// when the stream is also forwarded to the caller.
const maxDiagnostics = 64 * 1024

type (
	// Invocation is everything an Invoker needs to launch one program.
	Invocation struct {
		Argv   []string
		Env    []string
		Dir    string
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// Invoker launches a program. A nil *Result with a nil error means the
	// invoker has nothing to report.
	Invoker interface {
		Invoke(ctx context.Context, inv Invocation) (*Result, error)
	}

	// InvokerFunc adapts a function to the Invoker interface.
	InvokerFunc func(ctx context.Context, inv Invocation) (*Result, error)

	// tailBuffer keeps the last maxDiagnostics bytes written to it.
	tailBuffer struct {
		buf bytes.Buffer
	}
)

var (
	// Capture runs the program and captures its standard output in
	// Result.Raw. Standard error is captured for diagnostics. A non-zero
	// exit is reported as an *InvocationError.
	Capture Invoker = InvokerFunc(capture)

	// Call runs the program with the invocation's standard streams and
	// reports its exit code. A non-zero exit is not an error.
	Call Invoker = InvokerFunc(call)

	// Check is like Call, but a non-zero exit is reported as an
	// *InvocationError.
	Check Invoker = InvokerFunc(check)

	// NoExec never launches anything and always succeeds.
	NoExec Invoker = InvokerFunc(func(context.Context, Invocation) (*Result, error) {
		return NewSuccessResult(), nil
	})
)

// Invoke calls f.
func (f InvokerFunc) Invoke(ctx context.Context, inv Invocation) (*Result, error) {
	return f(ctx, inv)
}

func capture(ctx context.Context, inv Invocation) (*Result, error) {
	cmd := command(ctx, inv)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, newInvocationError(inv.Argv, err, stderr.String())
	}

	return &Result{Raw: append([]byte{}, stdout.Bytes()...)}, nil
}

func call(ctx context.Context, inv Invocation) (*Result, error) {
	cmd := command(ctx, inv)
	cmd.Stdout = writerOr(inv.Stdout, os.Stdout)
	cmd.Stderr = writerOr(inv.Stderr, os.Stderr)

	err := cmd.Run()
	if err == nil {
		return NewSuccessResult(), nil
	}

	ie := newInvocationError(inv.Argv, err, "")
	if ie.Exited {
		return NewExitCodeResult(ie.ExitCode), nil
	}
	return nil, ie
}

func check(ctx context.Context, inv Invocation) (*Result, error) {
	cmd := command(ctx, inv)
	var diag tailBuffer
	cmd.Stdout = writerOr(inv.Stdout, os.Stdout)
	cmd.Stderr = io.MultiWriter(writerOr(inv.Stderr, os.Stderr), &diag)

	if err := cmd.Run(); err != nil {
		return nil, newInvocationError(inv.Argv, err, diag.String())
	}
	return NewSuccessResult(), nil
}

func command(ctx context.Context, inv Invocation) *exec.Cmd {
	cmd := exec.CommandContext(ctx, inv.Argv[0], inv.Argv[1:]...)
	cmd.Env = inv.Env
	cmd.Dir = inv.Dir
	cmd.Stdin = inv.Stdin
	return cmd
}

func newInvocationError(argv []string, err error, stderr string) *InvocationError {
	ie := &InvocationError{
		Argv:     argv,
		ExitCode: 1,
		Stderr:   stderr,
		Err:      err,
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		ie.Exited = true
		ie.ExitCode = ExitCode(exitErr.ExitCode())
		if ie.ExitCode.Validate() != nil {
			ie.ExitCode = 1
		}
	}
	return ie
}

func writerOr(w, fallback io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return fallback
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if len(p) > maxDiagnostics {
		p = p[len(p)-maxDiagnostics:]
	}
	if overflow := t.buf.Len() + len(p) - maxDiagnostics; overflow > 0 {
		t.buf.Next(overflow)
	}
	t.buf.Write(p)
	return n, nil
}

func (t *tailBuffer) String() string {
	return t.buf.String()
}
