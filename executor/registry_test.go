package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rainforge/executor-go/dataobject"
	"github.com/rainforge/executor-go/taskctx"
)

func TestAddTaskHasNoDeclaredArity(t *testing.T) {
	e := New("cpptester")
	e.AddTask("fail", failTask)

	fn, ok := e.findHandler("fail")
	assert.True(t, ok)
	assert.NotNil(t, fn)
	assert.Equal(t, -1, e.handlers["fail"].arity)
}

func TestAddTaskWithArityRecordsArity(t *testing.T) {
	e := New("cpptester")
	e.AddTaskWithArity("hello", 1, helloTask)

	assert.Equal(t, 1, e.handlers["hello"].arity)
}

func TestFindHandlerMissing(t *testing.T) {
	e := New("cpptester")
	_, ok := e.findHandler("nope")
	assert.False(t, ok)
}

func TestAddTaskReplacesEarlierRegistration(t *testing.T) {
	e := New("cpptester")
	calls := 0
	first := func(ctx *taskctx.Context, inputs []dataobject.DataObject, outputs *[]dataobject.DataObject) {
		calls = 1
	}
	second := func(ctx *taskctx.Context, inputs []dataobject.DataObject, outputs *[]dataobject.DataObject) {
		calls = 2
	}

	e.AddTask("dup", first)
	e.AddTask("dup", second)

	fn, ok := e.findHandler("dup")
	assert.True(t, ok)
	fn(taskctx.New(0), nil, &[]dataobject.DataObject{})
	assert.Equal(t, 2, calls)
}
