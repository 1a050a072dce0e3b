package dataobject

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rainforge/executor-go/rainlog"
	"github.com/rainforge/executor-go/wire"
)

func TestMemoryObjectRoundTrip(t *testing.T) {
	obj := New([]byte("hello world"))

	size, err := obj.Size()
	require.NoError(t, err)
	assert.Equal(t, 11, size)

	b, err := obj.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), b)

	loc, err := obj.Location()
	require.NoError(t, err)
	arr, ok := loc.([]wire.Value)
	require.True(t, ok)
	require.Len(t, arr, 2)
	assert.Equal(t, "memory", arr[0])
	assert.Equal(t, []byte("hello world"), arr[1])
}

func TestMemoryObjectFromInputSpec(t *testing.T) {
	spec := inputSpecFor(t, []wire.Value{"memory", []byte("boom")})

	obj, err := FromInputSpec(spec)
	require.NoError(t, err)

	b, err := obj.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("boom"), b)
}

func TestFileObjectSizeAndBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.bin")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	obj := NewFile(path)

	size, err := obj.Size()
	require.NoError(t, err)
	assert.Equal(t, 3, size)

	b, err := obj.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), b)

	loc, err := obj.Location()
	require.NoError(t, err)
	arr := loc.([]wire.Value)
	assert.Equal(t, "path", arr[0])
	assert.Equal(t, path, arr[1])

	require.NoError(t, obj.Release())
}

func TestFileObjectFromInputSpec(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.bin")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	spec := inputSpecFor(t, []wire.Value{"path", path})
	obj, err := FromInputSpec(spec)
	require.NoError(t, err)

	s, err := obj.ReadAsString()
	require.NoError(t, err)
	assert.Equal(t, "abc", s)
}

func TestFileObjectBytesStableAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.bin")
	require.NoError(t, os.WriteFile(path, []byte("stable"), 0o644))

	obj := NewFile(path).(*fileObject)

	first, err := obj.Bytes()
	require.NoError(t, err)
	second, err := obj.Bytes()
	require.NoError(t, err)

	assert.Same(t, &first[0], &second[0])
}

func TestFileObjectStatFailureIsFatal(t *testing.T) {
	oldExit := rainlog.ExitFunc
	oldSink := rainlog.Sink
	defer func() {
		rainlog.ExitFunc = oldExit
		rainlog.Sink = oldSink
	}()

	var buf bytes.Buffer
	rainlog.Sink = &buf
	exitCode := -1
	rainlog.ExitFunc = func(code int) { exitCode = code }

	obj := NewFile("/nonexistent/path/does-not-exist")
	_, _ = obj.Size()

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, buf.String(), "stat")
}

func TestUnknownLocationTag(t *testing.T) {
	spec := inputSpecFor(t, []wire.Value{"weird", []byte("x")})
	_, err := FromInputSpec(spec)
	require.Error(t, err)
	var ule *ErrUnknownLocation
	assert.ErrorAs(t, err, &ule)
	assert.Equal(t, "weird", ule.Tag)
}

func TestMakeOutputSpecShape(t *testing.T) {
	obj := New([]byte("out"))
	stub := wire.NewMap()

	specVal, err := MakeOutputSpec(obj, stub)
	require.NoError(t, err)

	m, err := wire.AsMap(specVal)
	require.NoError(t, err)
	assert.Equal(t, []string{"info", "location"}, m.Keys())

	locVal, err := m.Lookup("location")
	require.NoError(t, err)
	loc := locVal.([]wire.Value)
	assert.Equal(t, "memory", loc[0])
	assert.Equal(t, []byte("out"), loc[1])
}

func TestFileObjectConcurrentResolutionIsSafe(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "concurrent.bin")
	require.NoError(t, os.WriteFile(path, []byte("concurrent-bytes"), 0o644))

	obj := NewFile(path)

	const n = 32
	var wg sync.WaitGroup
	sizes := make([]int, n)
	datas := make([][]byte, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := obj.Size()
			require.NoError(t, err)
			b, err := obj.Bytes()
			require.NoError(t, err)
			sizes[i] = s
			datas[i] = b
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		assert.Equal(t, 16, sizes[i])
		assert.Equal(t, []byte("concurrent-bytes"), datas[i])
	}
}

func inputSpecFor(t *testing.T, location []wire.Value) wire.Value {
	t.Helper()
	m := wire.NewMap()
	m.Put("location", location)
	return m
}
