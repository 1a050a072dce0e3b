// Package sid implements the session-scoped identifier used throughout the
// executor protocol.
package sid

import (
	"fmt"

	"github.com/rainforge/executor-go/wire"
)

// Sid is a session-scoped (session, id) pair. The zero value is the
// sentinel "invalid" identifier. Immutable after construction.
type Sid struct {
	Session uint32
	ID      uint32
}

// TaskID and DataObjectID are the two uses of Sid in this protocol.
type TaskID = Sid
type DataObjectID = Sid

// Invalid is the sentinel (0,0) pair.
var Invalid = Sid{}

// IsValid reports whether s is not the sentinel pair.
func (s Sid) IsValid() bool {
	return s != Invalid
}

// String returns the logging form "[<session_id>,<id>]".
func (s Sid) String() string {
	return fmt.Sprintf("[%d,%d]", s.Session, s.ID)
}

// Encode serialises s as a 2-element wire array [session_id, id].
func (s Sid) Encode() wire.Value {
	return []wire.Value{s.Session, s.ID}
}

// Decode reads a Sid from a wire array of length 2.
func Decode(v wire.Value) (Sid, error) {
	arr, err := wire.AsArray(v)
	if err != nil {
		return Sid{}, err
	}
	if len(arr) != 2 {
		return Sid{}, fmt.Errorf("sid: expected 2-element array, got %d elements", len(arr))
	}
	session, err := wire.AsUint(arr[0])
	if err != nil {
		return Sid{}, fmt.Errorf("sid: session_id: %w", err)
	}
	id, err := wire.AsUint(arr[1])
	if err != nil {
		return Sid{}, fmt.Errorf("sid: id: %w", err)
	}
	return Sid{Session: session, ID: id}, nil
}
