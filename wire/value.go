// Package wire implements the self-describing binary value tree used by the
// executor protocol: unsigned integers, booleans, text strings, byte
// strings, arrays, and maps, carried as CBOR.
//
// Scalar leaves are encoded with github.com/fxamacker/cbor/v2, and all
// decoding goes through it. Arrays and maps get a thin hand-written header
// encoder on top of it so that map insertion order survives onto the wire,
// including maps nested inside arrays (the CBOR library's own map
// marshalling iterates a Go map, which has no stable order); Decode
// hands maps back through the library, which is sufficient since every
// consumer looks values up by key rather than depending on iteration order.
package wire

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Value is one node of the wire value tree: uint32, bool, string, []byte,
// []Value, or *Map.
type Value = interface{}

// ErrMalformedWire is returned (wrapped) when bytes are truncated, a
// declared length exceeds the remaining input, or a CBOR type tag is
// unrecognised.
var ErrMalformedWire = errors.New("wire: malformed input")

// MissingKeyError is returned by Map.Lookup when a key is absent.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("wire: missing key %q", e.Key)
}

// TypeMismatchError is returned by the As* accessors when a Value does not
// hold the requested type.
type TypeMismatchError struct {
	Want string
	Got  interface{}
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("wire: type mismatch, want %s, got %T", e.Want, e.Got)
}

// Map is a text-keyed value map that remembers insertion order.
type Map struct {
	keys []string
	vals []Value
}

// NewMap creates an empty ordered map.
func NewMap() *Map {
	return &Map{}
}

// Put appends key/value, or overwrites the value if key is already present,
// preserving the position of first insertion.
func (m *Map) Put(key string, v Value) *Map {
	for i, k := range m.keys {
		if k == key {
			m.vals[i] = v
			return m
		}
	}
	m.keys = append(m.keys, key)
	m.vals = append(m.vals, v)
	return m
}

// Lookup returns the value stored under key, or a *MissingKeyError.
func (m *Map) Lookup(key string) (Value, error) {
	for i, k := range m.keys {
		if k == key {
			return m.vals[i], nil
		}
	}
	return nil, &MissingKeyError{Key: key}
}

// Len reports the number of entries.
func (m *Map) Len() int { return len(m.keys) }

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string { return append([]string(nil), m.keys...) }

// Encode serialises a value tree deterministically, with no trailing bytes.
func Encode(v Value) ([]byte, error) {
	b, err := encodeValue(v)
	if err != nil {
		return nil, fmt.Errorf("wire: encode: %w", err)
	}
	return b, nil
}

func encodeValue(v Value) ([]byte, error) {
	switch t := v.(type) {
	case *Map:
		return encodeMap(t)
	case []Value:
		return encodeArray(t)
	case uint32:
		return cbor.Marshal(uint64(t))
	default:
		return cbor.Marshal(t)
	}
}

func encodeMap(m *Map) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(cborHeader(5, uint64(m.Len())))
	for i, k := range m.keys {
		kb, err := cbor.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		vb, err := encodeValue(m.vals[i])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	return buf.Bytes(), nil
}

func encodeArray(a []Value) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(cborHeader(4, uint64(len(a))))
	for _, e := range a {
		eb, err := encodeValue(e)
		if err != nil {
			return nil, err
		}
		buf.Write(eb)
	}
	return buf.Bytes(), nil
}

// cborHeader builds a definite-length CBOR major-type header (RFC 8949 §3).
func cborHeader(major byte, n uint64) []byte {
	switch {
	case n < 24:
		return []byte{major<<5 | byte(n)}
	case n < 1<<8:
		return []byte{major<<5 | 24, byte(n)}
	case n < 1<<16:
		return []byte{major<<5 | 25, byte(n >> 8), byte(n)}
	case n < 1<<32:
		return []byte{major<<5 | 26, byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	default:
		return []byte{
			major<<5 | 27,
			byte(n >> 56), byte(n >> 48), byte(n >> 40), byte(n >> 32),
			byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n),
		}
	}
}

// Decode parses bytes into a value tree, returning the value and the number
// of bytes consumed. It fails with ErrMalformedWire if bytes are truncated,
// a declared length exceeds the remaining input, or a type tag is
// unrecognised.
func Decode(b []byte) (Value, int, error) {
	dec := cbor.NewDecoder(bytes.NewReader(b))
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformedWire, err)
	}
	return denormalize(raw), int(dec.NumBytesRead()), nil
}

func denormalize(v interface{}) Value {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		m := NewMap()
		for k, val := range t {
			ks, _ := k.(string)
			m.Put(ks, denormalize(val))
		}
		return m
	case map[string]interface{}:
		m := NewMap()
		for k, val := range t {
			m.Put(k, denormalize(val))
		}
		return m
	case []interface{}:
		out := make([]Value, len(t))
		for i, e := range t {
			out[i] = denormalize(e)
		}
		return out
	case uint64:
		if t <= 0xFFFFFFFF {
			return uint32(t)
		}
		return t
	default:
		return t
	}
}

// AsText returns the UTF-8 string of a text-string value.
func AsText(v Value) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", &TypeMismatchError{Want: "text", Got: v}
	}
	return s, nil
}

// AsBytes returns the raw bytes of a byte-string value.
func AsBytes(v Value) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, &TypeMismatchError{Want: "bytes", Got: v}
	}
	return b, nil
}

// AsUint returns a value fitting in 32 bits.
func AsUint(v Value) (uint32, error) {
	switch n := v.(type) {
	case uint32:
		return n, nil
	case uint64:
		return uint32(n), nil
	case int64:
		if n < 0 {
			return 0, &TypeMismatchError{Want: "uint", Got: v}
		}
		return uint32(n), nil
	default:
		return 0, &TypeMismatchError{Want: "uint", Got: v}
	}
}

// AsBool returns a boolean value.
func AsBool(v Value) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, &TypeMismatchError{Want: "bool", Got: v}
	}
	return b, nil
}

// AsArray returns an array value's elements.
func AsArray(v Value) ([]Value, error) {
	a, ok := v.([]Value)
	if !ok {
		return nil, &TypeMismatchError{Want: "array", Got: v}
	}
	return a, nil
}

// AsMap returns a map value.
func AsMap(v Value) (*Map, error) {
	m, ok := v.(*Map)
	if !ok {
		return nil, &TypeMismatchError{Want: "map", Got: v}
	}
	return m, nil
}
