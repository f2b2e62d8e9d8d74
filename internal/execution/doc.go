// SPDX-License-Identifier: MPL-2.0

// Package execution is the single entry point for running external programs.
//
// Both pipeline steps and embed generators go through Execute, which logs the
// command line, normalizes the locale of the child environment to C.UTF-8,
// short-circuits in dry-run mode, decodes captured output as UTF-8 and logs
// child diagnostics before handing any error back to the caller unchanged.
//
// The actual process launch is delegated to an Invoker. Capture, Call and
// Check cover the common cases; tests can supply their own InvokerFunc.
package execution
