package build

import (
	"context"

	"go.uber.org/zap"
)

// Context carries the build invocation's logger with explicit, scoped
// indentation. Indentation lives on the context rather than in process-global
// state, so concurrent builds and tests never share it.
type Context struct {
	context.Context
	log    *zap.Logger
	indent string
}

// NewContext wraps ctx with the build logger.
func NewContext(ctx context.Context, log *zap.Logger) *Context {
	if log == nil {
		log = zap.NewNop()
	}
	return &Context{Context: ctx, log: log}
}

// Push deepens the log indentation and returns a restore function. Callers
// defer the restore so the scope cannot leak on early return.
func (c *Context) Push() (restore func()) {
	prev := c.indent
	c.indent += "  "
	return func() { c.indent = prev }
}

// Fork returns an independent copy for a goroutine. Indentation changes in
// the fork never race with the parent.
func (c *Context) Fork() *Context {
	return &Context{Context: c.Context, log: c.log, indent: c.indent}
}

func (c *Context) Info(msg string, fields ...zap.Field) {
	c.log.Info(c.indent+msg, fields...)
}

func (c *Context) Debug(msg string, fields ...zap.Field) {
	c.log.Debug(c.indent+msg, fields...)
}

func (c *Context) Warn(msg string, fields ...zap.Field) {
	c.log.Warn(c.indent+msg, fields...)
}

func (c *Context) Error(msg string, fields ...zap.Field) {
	c.log.Error(c.indent+msg, fields...)
}
