// Package rainlog is the executor's thin diagnostic sink: prefixed lines to
// stderr, plus fatal-exit helpers.
package rainlog

import (
	"fmt"
	"io"
	"os"
)

// Sink is where diagnostic output goes. Tests may swap it for a buffer.
var Sink io.Writer = os.Stderr

// ExitFunc terminates the process on a Fatalf call. Tests may swap it to
// observe a fatal call without actually exiting the test binary.
var ExitFunc = os.Exit

// Errorf logs a non-fatal diagnostic line.
func Errorf(format string, args ...interface{}) {
	fmt.Fprintf(Sink, "[rain-executor] "+format+"\n", args...)
}

// Fatalf logs a diagnostic line and terminates the process. This is the
// boundary for anything that compromises the protocol stream: malformed
// wire bytes, socket failures, missing configuration, filesystem failures on
// file-backed data objects.
func Fatalf(format string, args ...interface{}) {
	fmt.Fprintf(Sink, "[rain-executor] FATAL: "+format+"\n", args...)
	ExitFunc(1)
}
