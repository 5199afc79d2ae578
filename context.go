package dromos

import (
	"context"
	"net/http"
)

// Context describes a request to a HandlerFunc. A new Context is created for
// every hop of dispatch; it is never modified after it is handed to a
// handler.
type Context struct {
	ctx        context.Context
	verb       string
	segment    string
	path       []string
	headers    http.Header
	remoteAddr string
	payload    *Payload
}

func newContext(req *dispatchRequest, segment string, remaining []string) *Context {
	return &Context{
		ctx:        req.ctx,
		verb:       req.verb,
		segment:    segment,
		path:       remaining,
		headers:    req.headers,
		remoteAddr: req.remoteAddr,
		payload:    req.payload,
	}
}

// Context returns the context.Context of the underlying request. For websocket
// upgrades it lives as long as the upgrade request.
func (c *Context) Context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// Verb returns the lower cased request method, or "ws" for websocket
// upgrade requests.
func (c *Context) Verb() string {
	return c.verb
}

// Segment returns the path segment that selected the current handler. It is
// "" when the handler was selected as the index of its router.
func (c *Context) Segment() string {
	return c.segment
}

// Path returns the path segments that remain after the current one. These are
// the segments a router returned with Delegate will resolve. The returned
// slice is a copy and may be modified.
func (c *Context) Path() []string {
	path := make([]string, len(c.path))
	copy(path, c.path)
	return path
}

// Headers returns the headers of the original request.
func (c *Context) Headers() http.Header {
	return c.headers
}

// Header returns the first value of the named request header.
func (c *Context) Header(key string) string {
	return c.headers.Get(key)
}

// RemoteAddr returns the network address of the client.
func (c *Context) RemoteAddr() string {
	return c.remoteAddr
}

// Payload returns the request payload: the JSON body when the request has
// one, the query string otherwise.
func (c *Context) Payload() *Payload {
	return c.payload
}

// Unmarshal decodes the request payload into the value pointed to by into.
// See Payload.Unmarshal.
func (c *Context) Unmarshal(into any) error {
	return c.payload.Unmarshal(into)
}
