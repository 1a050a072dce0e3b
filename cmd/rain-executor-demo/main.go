// Command rain-executor-demo is a small host program that embeds the
// executor runtime and registers a handful of sample tasks, exercising the
// library's public surface end to end.
package main

import (
	"fmt"

	"github.com/rainforge/executor-go/dataobject"
	"github.com/rainforge/executor-go/executor"
	"github.com/rainforge/executor-go/rainlog"
	"github.com/rainforge/executor-go/taskctx"
)

func main() {
	exec := executor.New("cpptester")

	exec.AddTaskWithArity("hello", 1, hello)
	exec.AddTask("fail", fail)
	exec.AddTask("panic", panicTask)

	if err := exec.Start(); err != nil {
		rainlog.Fatalf("%v", err)
	}
}

// hello concatenates "Hello " with the single input's contents and "!". A
// data object read never fails a call: a file-backed object's underlying
// filesystem failure is fatal for the whole process, not something a
// handler can recover from and turn into a task-level error.
func hello(ctx *taskctx.Context, inputs []dataobject.DataObject, outputs *[]dataobject.DataObject) {
	if !ctx.CheckNArgs(1) {
		return
	}
	text, _ := inputs[0].ReadAsString()
	*outputs = append(*outputs, dataobject.New([]byte(fmt.Sprintf("Hello %s!", text))))
}

// fail always signals a handler error, echoing the single input's contents
// as the error message.
func fail(ctx *taskctx.Context, inputs []dataobject.DataObject, outputs *[]dataobject.DataObject) {
	if !ctx.CheckNArgs(1) {
		return
	}
	msg, _ := inputs[0].ReadAsString()
	ctx.SetError(msg)
}

// panicTask appends no outputs regardless of what was declared, so a call
// that declares one or more outputs gets an output-count mismatch reported
// by the dispatch loop.
func panicTask(ctx *taskctx.Context, inputs []dataobject.DataObject, outputs *[]dataobject.DataObject) {
}
