// Package dataobject implements the polymorphic, read-only data object: a
// thing that can produce a size and a byte slice on demand, and can encode
// its location onto the wire, in one of two variants —
// memory-backed (owns a byte vector) or file-backed (lazily stat'd and
// mmap'd, with the mapping cached for the object's lifetime).
package dataobject

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/rainforge/executor-go/rainlog"
	"github.com/rainforge/executor-go/wire"
)

// DataObject is a read-only byte sequence with a known size. Once bytes()
// has been called on a file-backed object, subsequent calls return the same
// backing storage until the object is released.
type DataObject interface {
	// Size returns the object's length in bytes. Stable once observed. On a
	// file-backed object a filesystem failure (stat, open, mmap) is fatal
	// for the process rather than a value this method can hand back, and
	// the in-memory variant never fails, so neither variant returns a
	// non-nil error.
	Size() (int, error)
	// Bytes returns the object's contents. See Size for the fatal-failure
	// note on the file-backed variant.
	Bytes() ([]byte, error)
	// ReadAsString returns the current byte contents as text. It does not
	// validate UTF-8 and does not force a re-read.
	ReadAsString() (string, error)
	// Location encodes where this object's bytes live, as the 2-array
	// ["memory", <bytes>] or ["path", <text>].
	Location() (wire.Value, error)
	// Release frees any OS resources held by the object (unmaps a
	// file-backed object's mapping, if one was ever established).
	Release() error
}

// ErrUnknownLocation is returned (wrapped) when a location tag is neither
// "memory" nor "path".
type ErrUnknownLocation struct {
	Tag string
}

func (e *ErrUnknownLocation) Error() string {
	return fmt.Sprintf("dataobject: unknown location tag %q", e.Tag)
}

// New wraps an in-memory byte slice as a memory-backed data object. The
// slice is owned by the returned object; callers must not mutate it
// afterward.
func New(data []byte) DataObject {
	return &memoryObject{data: data}
}

// NewFile builds a file-backed data object for path. Size and the mapping
// are resolved lazily on first access.
func NewFile(path string) DataObject {
	return &fileObject{path: path}
}

// FromInputSpec decodes an input spec's location into a DataObject.
// item.location is read as a 2-array [tag, payload]: tag "memory" copies
// the payload bytes into an owned memory-backed object; tag "path" builds a
// file-backed object over the given absolute path with size and mapping
// left unresolved. Any other tag is an *ErrUnknownLocation.
func FromInputSpec(item wire.Value) (DataObject, error) {
	m, err := wire.AsMap(item)
	if err != nil {
		return nil, fmt.Errorf("dataobject: input spec: %w", err)
	}
	locVal, err := m.Lookup("location")
	if err != nil {
		return nil, err
	}
	return decodeLocation(locVal)
}

func decodeLocation(locVal wire.Value) (DataObject, error) {
	arr, err := wire.AsArray(locVal)
	if err != nil {
		return nil, fmt.Errorf("dataobject: location: %w", err)
	}
	if len(arr) != 2 {
		return nil, fmt.Errorf("dataobject: location: expected 2-element array, got %d", len(arr))
	}
	tag, err := wire.AsText(arr[0])
	if err != nil {
		return nil, fmt.Errorf("dataobject: location tag: %w", err)
	}
	switch tag {
	case "memory":
		b, err := wire.AsBytes(arr[1])
		if err != nil {
			return nil, fmt.Errorf("dataobject: memory payload: %w", err)
		}
		owned := make([]byte, len(b))
		copy(owned, b)
		return New(owned), nil
	case "path":
		p, err := wire.AsText(arr[1])
		if err != nil {
			return nil, fmt.Errorf("dataobject: path payload: %w", err)
		}
		return NewFile(p), nil
	default:
		return nil, &ErrUnknownLocation{Tag: tag}
	}
}

// MakeOutputSpec builds the wire map for a produced output: {"info": {},
// "location": <location>}, in that key order. The stub parameter is the
// governor-supplied output stub for this index; it is currently unused
// beyond being accepted (a legacy "id" field belongs only to older
// protocol variants).
func MakeOutputSpec(obj DataObject, stub wire.Value) (wire.Value, error) {
	loc, err := obj.Location()
	if err != nil {
		return nil, err
	}
	m := wire.NewMap()
	m.Put("info", wire.NewMap())
	m.Put("location", loc)
	return m, nil
}

// memoryObject is the memory-backed variant: bytes owned inline.
type memoryObject struct {
	data []byte
}

func (o *memoryObject) Size() (int, error) { return len(o.data), nil }

func (o *memoryObject) Bytes() ([]byte, error) { return o.data, nil }

func (o *memoryObject) ReadAsString() (string, error) { return string(o.data), nil }

func (o *memoryObject) Location() (wire.Value, error) {
	return []wire.Value{"memory", o.data}, nil
}

func (o *memoryObject) Release() error { return nil }

// resolveState is the file-backed object's lazy-resolution state machine
// Unresolved → SizeKnown → Mapped.
type resolveState int

const (
	stateUnresolved resolveState = iota
	stateSizeKnown
	stateMapped
)

// fileObject is the file-backed variant. size and mapping are resolved
// lazily on first access and cached for the object's lifetime. size() and
// bytes() are safe to call concurrently. Every call takes the per-object
// mutex, including after resolution; there is no lock-free read path.
type fileObject struct {
	path string

	mu      sync.Mutex
	state   resolveState
	size    int
	mapping []byte
}

func (o *fileObject) Size() (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sizeLocked()
}

// sizeLocked resolves size if unknown. Caller must hold o.mu. A stat
// failure is a filesystem failure on a file-backed data object, which is
// fatal for the process, not a recoverable per-call error: it is reported
// through rainlog.Fatalf directly, exactly as a handler could never see or
// downgrade it.
func (o *fileObject) sizeLocked() (int, error) {
	if o.state >= stateSizeKnown {
		return o.size, nil
	}
	fi, err := os.Stat(o.path)
	if err != nil {
		rainlog.Fatalf("dataobject: stat %s: %v", o.path, err)
		return 0, nil
	}
	o.size = int(fi.Size())
	o.state = stateSizeKnown
	return o.size, nil
}

// Bytes resolves and returns the mapping. Open and mmap failures are fatal
// for the same reason a stat failure in sizeLocked is: they compromise the
// process's ability to serve any file-backed object, not just this call.
func (o *fileObject) Bytes() ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == stateMapped {
		return o.mapping, nil
	}
	if _, err := o.sizeLocked(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(o.path, os.O_RDONLY, 0)
	if err != nil {
		rainlog.Fatalf("dataobject: open %s: %v", o.path, err)
		return nil, nil
	}
	defer f.Close()

	if o.size == 0 {
		o.mapping = []byte{}
		o.state = stateMapped
		return o.mapping, nil
	}

	mapped, err := unix.Mmap(int(f.Fd()), 0, o.size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		rainlog.Fatalf("dataobject: mmap %s: %v", o.path, err)
		return nil, nil
	}
	o.mapping = mapped
	o.state = stateMapped
	return o.mapping, nil
}

func (o *fileObject) ReadAsString() (string, error) {
	b, err := o.Bytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (o *fileObject) Location() (wire.Value, error) {
	return []wire.Value{"path", o.path}, nil
}

// Release unmaps the mapping, if one was ever established. Safe to call
// more than once.
func (o *fileObject) Release() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != stateMapped || len(o.mapping) == 0 {
		o.state = stateUnresolved
		o.mapping = nil
		return nil
	}
	err := unix.Munmap(o.mapping)
	o.mapping = nil
	o.state = stateUnresolved
	return err
}
