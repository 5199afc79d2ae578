package dromos

// ResultKind tags the variant held by a Result.
type ResultKind int

const (
	// ValueResult ends dispatch; the value is the HTTP response body.
	ValueResult ResultKind = iota
	// DelegateResult continues dispatch on a nested Router.
	DelegateResult
	// SessionResult ends dispatch by starting a websocket session.
	SessionResult
)

func (k ResultKind) String() string {
	switch k {
	case ValueResult:
		return "value"
	case DelegateResult:
		return "delegate"
	case SessionResult:
		return "session"
	default:
		return "unknown"
	}
}

// Result is what a HandlerFunc returns. Build one with Value, Delegate or
// Session. The zero Result is Value(nil).
type Result struct {
	kind    ResultKind
	body    any
	router  *Router
	handler MessageHandler
}

// Value returns a terminal result. Over HTTP body is encoded as JSON and sent
// with status 200.
func Value(body any) Result {
	return Result{kind: ValueResult, body: body}
}

// Delegate returns a result that continues dispatch on router with the path
// segments that remain after the one consumed by the current handler.
func Delegate(router *Router) Result {
	return Result{kind: DelegateResult, router: router}
}

// Session returns a result that accepts a websocket upgrade and drives handler
// for the lifetime of the connection. It is only valid from handlers bound
// with Router.WS.
func Session(handler MessageHandler) Result {
	return Result{kind: SessionResult, handler: handler}
}

// Kind returns which variant the result holds.
func (r Result) Kind() ResultKind {
	return r.kind
}

// Body returns the value of a ValueResult.
func (r Result) Body() any {
	return r.body
}

// Router returns the nested router of a DelegateResult.
func (r Result) Router() *Router {
	return r.router
}

// Handler returns the message handler of a SessionResult.
func (r Result) Handler() MessageHandler {
	return r.handler
}
