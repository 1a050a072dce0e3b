package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestBuildsSortedEntries(t *testing.T) {
	e := New("cpptester")
	e.AddTaskWithArity("hello", 1, helloTask)
	e.AddTask("fail", failTask)

	m := e.Manifest()
	require.Len(t, m.Tasks, 2)
	assert.Equal(t, "fail", m.Tasks[0].Name)
	assert.Nil(t, m.Tasks[0].InArgs)
	assert.Equal(t, "hello", m.Tasks[1].Name)
	require.NotNil(t, m.Tasks[1].InArgs)
	assert.Equal(t, 1, *m.Tasks[1].InArgs)
}

func TestManifestEmptyRegistry(t *testing.T) {
	e := New("cpptester")
	m := e.Manifest()
	assert.Empty(t, m.Tasks)
}

func TestValidateOwnManifestPasses(t *testing.T) {
	e := New("cpptester")
	e.AddTaskWithArity("hello", 1, helloTask)
	e.AddTask("fail", failTask)
	require.NoError(t, e.validateOwnManifest())
}

func TestValidateManifestRejectsMalformedDocument(t *testing.T) {
	err := ValidateManifest([]byte(`{"tasks": [{"in_args": "not-a-number"}]}`))
	require.Error(t, err)
}

func TestValidateManifestAcceptsWellFormedDocument(t *testing.T) {
	err := ValidateManifest([]byte(`{"tasks": [{"name": "hello", "in_args": 1}, {"name": "fail"}]}`))
	require.NoError(t, err)
}
