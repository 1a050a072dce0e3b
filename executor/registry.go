package executor

import (
	"github.com/rainforge/executor-go/dataobject"
	"github.com/rainforge/executor-go/taskctx"
)

// TaskFunc is the handler signature: given a mutable context, an
// immutable ordered sequence of input data objects, and a mutable ordered
// sequence to which it may append output data objects, it runs to
// completion without blocking the dispatch loop. It signals failure via
// ctx.SetError rather than returning an error, so that the outer dispatch
// loop retains full control over how a failure is reported.
type TaskFunc func(ctx *taskctx.Context, inputs []dataobject.DataObject, outputs *[]dataobject.DataObject)

type registeredTask struct {
	fn    TaskFunc
	arity int // -1 if not declared
}

// AddTask registers handler under name. Must be called before Start; keys
// are unique (a later call with the same name replaces the earlier one).
func (e *Executor) AddTask(name string, fn TaskFunc) {
	e.handlers[name] = registeredTask{fn: fn, arity: -1}
}

// AddTaskWithArity registers handler under name, additionally declaring its
// expected input count for the task manifest.
func (e *Executor) AddTaskWithArity(name string, arity int, fn TaskFunc) {
	e.handlers[name] = registeredTask{fn: fn, arity: arity}
}

// findHandler looks up a registered task by short name.
func (e *Executor) findHandler(name string) (TaskFunc, bool) {
	t, ok := e.handlers[name]
	if !ok {
		return nil, false
	}
	return t.fn, true
}
