package executor

import "fmt"

// FatalError represents a protocol- or I/O-level failure that compromises
// the message stream: missing/malformed configuration, socket
// failures, malformed wire bytes, an envelope of the wrong shape, an
// unrecognised message kind, a missing required key, or an unknown
// data-object location tag. (A filesystem failure on a file-backed data
// object never becomes a FatalError: package dataobject exits the process
// through rainlog.Fatalf directly.) Encountering one is unrecoverable for the connection; the caller
// (Executor.Start) logs it and aborts the process so the governor can
// re-spawn.
type FatalError struct {
	Reason  string
	Message string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func fatalf(reason, format string, args ...interface{}) *FatalError {
	return &FatalError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// TaskError represents a failure scoped to one call: an unknown task
// name, a handler-signalled error, or a mismatch between produced and
// declared output counts. It never terminates the executor; it is surfaced
// as an error result and the dispatch loop continues.
type TaskError struct {
	Message string
}

func (e *TaskError) Error() string {
	return e.Message
}

func taskErrorf(format string, args ...interface{}) *TaskError {
	return &TaskError{Message: fmt.Sprintf(format, args...)}
}
