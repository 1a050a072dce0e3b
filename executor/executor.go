// Package executor implements the central dispatch component: environment
// discovery, the registration handshake, the receive/dispatch loop, the
// handler registry, call execution, and result/error reporting.
package executor

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/rainforge/executor-go/dataobject"
	"github.com/rainforge/executor-go/frame"
	"github.com/rainforge/executor-go/rainlog"
	"github.com/rainforge/executor-go/sid"
	"github.com/rainforge/executor-go/taskctx"
	"github.com/rainforge/executor-go/wire"
)

const (
	envSocket = "RAIN_EXECUTOR_SOCKET"
	envID     = "RAIN_EXECUTOR_ID"
)

// Executor serves tasks of one declared type over a framed connection to a
// governor. Construct it with New, register handlers with AddTask /
// AddTaskWithArity, then call Start.
type Executor struct {
	typeName string
	id       uint32
	runID    uuid.UUID

	handlers map[string]registeredTask

	conn *frame.Conn
}

// New constructs an executor declared to serve tasks of typeName. Handlers
// must be registered before Start.
func New(typeName string) *Executor {
	return &Executor{
		typeName: typeName,
		handlers: make(map[string]registeredTask),
		runID:    uuid.New(),
	}
}

// TypeName returns the executor's declared type name.
func (e *Executor) TypeName() string { return e.typeName }

// Start validates the task manifest built from the current registry, then
// reads the environment, connects to the governor, performs the
// registration handshake, and enters the dispatch loop. It does not return under
// normal operation: the loop terminates only on a fatal protocol or I/O
// error, which is logged and the process aborted so the governor can
// re-spawn it.
func (e *Executor) Start() error {
	if err := e.validateOwnManifest(); err != nil {
		rainlog.Fatalf("invalid task manifest: %v", err)
	}

	socketPath, id, err := readEnv()
	if err != nil {
		rainlog.Fatalf("%v", err)
	}
	e.id = id

	conn, err := frame.Connect(socketPath)
	if err != nil {
		rainlog.Fatalf("connect to %s: %v", socketPath, err)
	}
	e.conn = conn
	defer conn.Close()

	if err := e.register(); err != nil {
		rainlog.Fatalf("register: %v", err)
	}
	rainlog.Errorf("executor %d (run %s) registered as %s", e.id, e.runID, e.typeName)

	if err := e.Serve(conn); err != nil {
		rainlog.Fatalf("%v", err)
	}
	return nil
}

// readEnv reads RAIN_EXECUTOR_SOCKET and RAIN_EXECUTOR_ID. Absence of
// either, or a parse failure on the id, is fatal: the id is parsed as an
// unsigned 32-bit decimal integer.
func readEnv() (socketPath string, id uint32, err error) {
	socketPath, ok := os.LookupEnv(envSocket)
	if !ok || socketPath == "" {
		return "", 0, fatalf("MissingEnv", "%s is not set", envSocket)
	}

	idStr, ok := os.LookupEnv(envID)
	if !ok || idStr == "" {
		return "", 0, fatalf("MissingEnv", "%s is not set", envID)
	}
	n, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return "", 0, fatalf("InvalidEnv", "%s=%q is not a valid unsigned 32-bit decimal integer: %v", envID, idStr, err)
	}
	return socketPath, uint32(n), nil
}

// register sends the initial "register" envelope.
func (e *Executor) register() error {
	payload := wire.NewMap()
	payload.Put("protocol", "cbor-1")
	payload.Put("executor_type", e.typeName)
	payload.Put("executor_id", e.id)

	return e.send("register", payload)
}

func (e *Executor) send(kind string, payload wire.Value) error {
	envelope := []wire.Value{kind, payload}
	b, err := wire.Encode(envelope)
	if err != nil {
		return fatalf("EncodeFailed", "%v", err)
	}
	if err := e.conn.Send(b); err != nil {
		return fatalf("SendFailed", "%v", err)
	}
	return nil
}

// Serve runs the receive/dispatch loop over conn: decode the top-level
// envelope, dispatch recognised kinds, and repeat. Results are sent back
// over the same conn. It only returns when a fatal error occurs.
func (e *Executor) Serve(conn *frame.Conn) error {
	e.conn = conn
	for {
		raw, err := conn.Receive()
		if err != nil {
			return fatalf("PeerClosed", "%v", err)
		}

		val, _, err := wire.Decode(raw)
		if err != nil {
			return fatalf("MalformedWire", "%v", err)
		}

		envelope, err := wire.AsArray(val)
		if err != nil || len(envelope) != 2 {
			return fatalf("MalformedEnvelope", "expected a 2-element [kind, payload] array")
		}

		kind, err := wire.AsText(envelope[0])
		if err != nil {
			return fatalf("MalformedEnvelope", "kind: %v", err)
		}
		payload, err := wire.AsMap(envelope[1])
		if err != nil {
			return fatalf("MalformedEnvelope", "payload: %v", err)
		}

		switch kind {
		case "call":
			if err := e.handleCall(payload); err != nil {
				return err
			}
		default:
			return fatalf("MalformedEnvelope", "unrecognised message kind %q", kind)
		}
	}
}

// handleCall decodes the spec and inputs, looks up the handler, invokes it,
// and reports a result. Only failures that compromise
// the protocol stream are returned (and are fatal); task-scoped failures
// are reported as an error result and nil is returned so the loop
// continues.
func (e *Executor) handleCall(payload *wire.Map) error {
	specVal, err := payload.Lookup("spec")
	if err != nil {
		return fatalf("MalformedEnvelope", "call: %v", err)
	}
	spec, err := wire.AsMap(specVal)
	if err != nil {
		return fatalf("MalformedEnvelope", "call.spec: %v", err)
	}

	taskTypeVal, err := spec.Lookup("task_type")
	if err != nil {
		return fatalf("MalformedEnvelope", "call.spec: %v", err)
	}
	taskType, err := wire.AsText(taskTypeVal)
	if err != nil {
		return fatalf("MalformedEnvelope", "call.spec.task_type: %v", err)
	}

	idVal, err := spec.Lookup("id")
	if err != nil {
		return fatalf("MalformedEnvelope", "call.spec: %v", err)
	}
	taskID, err := sid.Decode(idVal)
	if err != nil {
		return fatalf("MalformedEnvelope", "call.spec.id: %v", err)
	}

	taskName := e.stripTypePrefix(taskType)

	handler, ok := e.findHandler(taskName)
	if !ok {
		return e.sendErrorResult(taskID, taskErrorf("Method '%s' not found in executor", taskType).Error())
	}

	inputs, fatal := e.decodeInputs(payload)
	if fatal != nil {
		return fatal
	}
	defer releaseAll(inputs)

	outputStubs, err := e.outputStubs(payload)
	if err != nil {
		return err
	}
	lenOut := len(outputStubs)

	ctx := taskctx.New(len(inputs))
	var outputs []dataobject.DataObject
	handler(ctx, inputs, &outputs)
	defer releaseAll(outputs)

	if ctx.HasError() {
		return e.sendErrorResult(taskID, ctx.ErrorMessage())
	}
	if len(outputs) != lenOut {
		return e.sendErrorResult(taskID, taskErrorf("Task produced %d outputs, but expected %d", len(outputs), lenOut).Error())
	}

	outSpecs := make([]wire.Value, len(outputs))
	for i, obj := range outputs {
		outSpec, err := dataobject.MakeOutputSpec(obj, outputStubs[i])
		if err != nil {
			return fatalf("EncodeFailed", "output %d: %v", i, err)
		}
		outSpecs[i] = outSpec
	}

	return e.sendSuccessResult(taskID, outSpecs)
}

// releaseAll releases every data object in objs, logging (but not failing
// the call over) any error a release reports.
func releaseAll(objs []dataobject.DataObject) {
	for _, o := range objs {
		if err := o.Release(); err != nil {
			rainlog.Errorf("release data object: %v", err)
		}
	}
}

// stripTypePrefix strips the "<executor_type>/" prefix from taskType. If
// taskType does not carry the expected prefix the full string is
// returned unchanged, which simply will not be found in the registry — a
// task-scoped "not found" failure rather than a protocol-fatal one.
func (e *Executor) stripTypePrefix(taskType string) string {
	prefix := e.typeName + "/"
	if strings.HasPrefix(taskType, prefix) {
		return taskType[len(prefix):]
	}
	return taskType
}

func (e *Executor) decodeInputs(payload *wire.Map) ([]dataobject.DataObject, error) {
	inputsVal, err := payload.Lookup("inputs")
	if err != nil {
		return nil, fatalf("MalformedEnvelope", "call: %v", err)
	}
	inputsArr, err := wire.AsArray(inputsVal)
	if err != nil {
		return nil, fatalf("MalformedEnvelope", "call.inputs: %v", err)
	}

	inputs := make([]dataobject.DataObject, len(inputsArr))
	for i, item := range inputsArr {
		obj, err := dataobject.FromInputSpec(item)
		if err != nil {
			return nil, fatalf("UnknownLocation", "input %d: %v", i, err)
		}
		inputs[i] = obj
	}
	return inputs, nil
}

func (e *Executor) outputStubs(payload *wire.Map) ([]wire.Value, error) {
	outputsVal, err := payload.Lookup("outputs")
	if err != nil {
		return nil, fatalf("MalformedEnvelope", "call: %v", err)
	}
	outputsArr, err := wire.AsArray(outputsVal)
	if err != nil {
		return nil, fatalf("MalformedEnvelope", "call.outputs: %v", err)
	}
	return outputsArr, nil
}

// sendSuccessResult sends the success result envelope.
func (e *Executor) sendSuccessResult(taskID sid.Sid, outputs []wire.Value) error {
	payload := wire.NewMap()
	payload.Put("task", taskID.Encode())
	payload.Put("success", true)
	payload.Put("outputs", outputs)
	payload.Put("info", wire.NewMap())
	return e.send("result", payload)
}

// sendErrorResult sends the error result envelope. Note the error message
// is wrapped in literal double quotes, preserved verbatim as an observable
// protocol placeholder rather than "fixed".
func (e *Executor) sendErrorResult(taskID sid.Sid, message string) error {
	info := wire.NewMap()
	info.Put("error", fmt.Sprintf("\"%s\"", message))

	payload := wire.NewMap()
	payload.Put("task", taskID.Encode())
	payload.Put("success", false)
	payload.Put("info", info)
	return e.send("result", payload)
}
