package ecoflow

import (
	"context"
	"net/http"
)

// Next is the pipeline continuation. A step invokes it to hand control to
// the next step; leaving it uninvoked halts the pipeline for this request.
type Next func()

// Context carries the per-request state a step operates on. Request is nil
// when a step is driven outside an HTTP traversal (for example from a timer
// flow); steps that need the inbound request must treat that as an
// authentication failure rather than panic.
type Context struct {
	ctx     context.Context
	Request *http.Request
	Payload *Payload

	status int
}

// NewContext builds a step context. A nil payload is replaced with an empty
// one so steps can always write their outcome.
func NewContext(ctx context.Context, req *http.Request, payload *Payload) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if payload == nil {
		payload = NewPayload()
	}
	return &Context{ctx: ctx, Request: req, Payload: payload}
}

// Context returns the request-scoped context.Context.
func (c *Context) Context() context.Context {
	return c.ctx
}

// SetStatus records the HTTP status a step wants reflected on the response.
// Zero means the step left the status untouched.
func (c *Context) SetStatus(code int) {
	c.status = code
}

// Status returns the recorded HTTP status, or 0 when unset.
func (c *Context) Status() int {
	return c.status
}
