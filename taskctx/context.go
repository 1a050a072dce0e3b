// Package taskctx implements the per-call scratch state handed to task
// handlers.
package taskctx

import "fmt"

// Context is constructed just before a handler runs and discarded once its
// outputs have been serialised or its error reported.
type Context struct {
	nArgs        int
	err          bool
	errorMessage string
}

// New builds a Context for a call with the given declared input count.
func New(nArgs int) *Context {
	return &Context{nArgs: nArgs}
}

// NArgs returns the declared input count.
func (c *Context) NArgs() int {
	return c.nArgs
}

// CheckNArgs reports whether the declared input count equals expected. If
// it does not, the context is marked failed with a diagnostic message and
// false is returned. Handlers are expected to early-return on false.
func (c *Context) CheckNArgs(expected int) bool {
	if c.nArgs == expected {
		return true
	}
	c.SetError(fmt.Sprintf("Invalid number of arguments, expected = %d, but got = %d", expected, c.nArgs))
	return false
}

// SetError marks the context failed with message. Idempotent; a later call
// overwrites the message.
func (c *Context) SetError(message string) {
	c.err = true
	c.errorMessage = message
}

// HasError reports whether the context has been marked failed.
func (c *Context) HasError() bool {
	return c.err
}

// ErrorMessage returns the message passed to the most recent SetError call.
func (c *Context) ErrorMessage() string {
	return c.errorMessage
}
