package taskctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckNArgsSucceeds(t *testing.T) {
	c := New(2)
	assert.True(t, c.CheckNArgs(2))
	assert.False(t, c.HasError())
}

func TestCheckNArgsFails(t *testing.T) {
	c := New(0)
	assert.False(t, c.CheckNArgs(1))
	assert.True(t, c.HasError())
	assert.Equal(t, "Invalid number of arguments, expected = 1, but got = 0", c.ErrorMessage())
}

func TestSetErrorIsIdempotentAndOverwrites(t *testing.T) {
	c := New(1)
	c.SetError("first")
	assert.True(t, c.HasError())
	assert.Equal(t, "first", c.ErrorMessage())

	c.SetError("second")
	assert.True(t, c.HasError())
	assert.Equal(t, "second", c.ErrorMessage())
}

func TestNArgs(t *testing.T) {
	c := New(3)
	assert.Equal(t, 3, c.NArgs())
}
