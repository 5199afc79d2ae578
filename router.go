package dromos

import (
	"strings"
)

// Router is a set of handlers bound to a verb and a single path segment.
// Dispatch consumes the request path one segment at a time: the first segment
// selects a handler on the router, and if that handler returns another router
// via Delegate, the next segment is resolved on it, and so on.
//
// A binding for the verb is preferred over an "any" binding for the same
// segment. The segment "" matches when no segments remain, so it serves as
// the index of a router.
//
// Routers are not modified by dispatch and may be shared between requests once
// they are built. Handlers that need per request state should build a fresh
// router and return it with Delegate.
type Router struct {
	firstHandlerNode *HandlerNode
	lastHandlerNode  *HandlerNode
	bindingCount     int
}

// NewRouter creates and returns a new Router.
func NewRouter() *Router {
	return &Router{}
}

// Bind registers handler for the given verb and path segment. The verb is
// matched case insensitively against the request method, or against "ws" for
// websocket upgrade requests, or "any" for every verb. Surrounding slashes are
// trimmed from segment; a segment that still contains a slash panics, as
// bindings only ever match one segment.
//
// When the same verb and segment are bound more than once, the first binding
// wins.
func (r *Router) Bind(verb, segment string, handler HandlerFunc) {
	if handler == nil {
		panic("no handler provided")
	}
	verb = strings.ToLower(strings.TrimSpace(verb))
	if verb == "" {
		panic("no verb provided")
	}
	segment = strings.Trim(segment, "/")
	if strings.Contains(segment, "/") {
		panic("invalid segment \"" + segment + "\": bindings match a single path segment. " +
			"Delegate to a nested router for deeper paths.")
	}

	nextHandlerNode := &HandlerNode{
		Verb:    verb,
		Segment: segment,
		Handler: handler,
	}

	if r.firstHandlerNode == nil {
		r.firstHandlerNode = nextHandlerNode
		r.lastHandlerNode = nextHandlerNode
	} else {
		r.lastHandlerNode.Next = nextHandlerNode
		r.lastHandlerNode = nextHandlerNode
	}
	r.bindingCount += 1
}

// Get binds handler to GET requests for segment.
func (r *Router) Get(segment string, handler HandlerFunc) {
	r.Bind("get", segment, handler)
}

// Put binds handler to PUT requests for segment.
func (r *Router) Put(segment string, handler HandlerFunc) {
	r.Bind("put", segment, handler)
}

// Post binds handler to POST requests for segment.
func (r *Router) Post(segment string, handler HandlerFunc) {
	r.Bind("post", segment, handler)
}

// Patch binds handler to PATCH requests for segment.
func (r *Router) Patch(segment string, handler HandlerFunc) {
	r.Bind("patch", segment, handler)
}

// Delete binds handler to DELETE requests for segment.
func (r *Router) Delete(segment string, handler HandlerFunc) {
	r.Bind("delete", segment, handler)
}

// Any binds handler to every verb for segment, including websocket upgrades.
// Bindings for a specific verb take precedence.
func (r *Router) Any(segment string, handler HandlerFunc) {
	r.Bind(AnyVerb, segment, handler)
}

// WS binds handler to websocket upgrade requests for segment. The handler
// should return Session with a MessageHandler, or Delegate.
func (r *Router) WS(segment string, handler HandlerFunc) {
	r.Bind(WSVerb, segment, handler)
}

// lookup finds the handler bound to verb and segment, falling back to the
// handler bound to any and segment.
func (r *Router) lookup(verb, segment string) (HandlerFunc, bool) {
	var fallback HandlerFunc
	for currentNode := r.firstHandlerNode; currentNode != nil; currentNode = currentNode.Next {
		if currentNode.matches(verb, segment) {
			return currentNode.Handler, true
		}
		if fallback == nil && currentNode.matches(AnyVerb, segment) {
			fallback = currentNode.Handler
		}
	}
	return fallback, fallback != nil
}
