package dromos

import "context"

// HandlerFunc is a capability bound to a verb and a path segment on a Router.
// It receives a Context describing the request and returns a Result: a plain
// value that ends dispatch, a nested Router that continues dispatch with the
// remaining path, or a MessageHandler that starts a websocket session.
//
// Returning an error ends dispatch. Over HTTP the error is serialized into the
// response body; over websockets the upgrade is rejected.
type HandlerFunc func(ctx *Context) (Result, error)

// MessageHandler is the lifecycle contract of a websocket session. It is
// returned wrapped by Session from a handler bound with Router.WS.
//
// Start is called once, after the connection is accepted. The Outbound it
// receives may be kept and used at any time until the session ends. Msg is
// called once per inbound text message, in the order the messages arrive, and
// never before Start has returned. Closed is called exactly once when the
// session ends, whichever side closed it.
//
// An error returned from Start drops the session with StatusInternalError. An
// error returned from Msg or Closed is logged and does not end the session.
type MessageHandler interface {
	Start(out Outbound) error
	Msg(msg string) error
	Closed(status Status, reason string) error
}

// Outbound is the set of operations a MessageHandler can perform on its
// session. It is bound to one connection and is only meaningful until Closed
// has been called; later calls are left to the connection to handle.
type Outbound interface {
	// SessionID returns the unique id of the session.
	SessionID() string

	// SendMsg sends a text message to the peer.
	SendMsg(ctx context.Context, msg string) error

	// Ping sends a ping to the peer. Whether payload is carried on the wire
	// depends on the SocketConnection; the default coder/websocket connection
	// generates its own payload and waits for the pong.
	Ping(ctx context.Context, payload string) error

	// Close closes the session with StatusNormalClosure.
	Close() error

	// CloseWithStatus closes the session with the given status and reason.
	// The peer observes exactly this status and reason. Reasons longer than
	// 123 bytes are truncated. A status that cannot be sent on the wire, such
	// as 1006 or 500, returns ErrInvalidCloseStatus and leaves the session
	// open.
	CloseWithStatus(status Status, reason string) error
}

// MessageHandlerFuncs adapts plain functions to the MessageHandler interface.
// Nil functions are treated as no-ops.
type MessageHandlerFuncs struct {
	StartFunc  func(out Outbound) error
	MsgFunc    func(msg string) error
	ClosedFunc func(status Status, reason string) error
}

var _ MessageHandler = &MessageHandlerFuncs{}

// Start calls StartFunc.
func (h *MessageHandlerFuncs) Start(out Outbound) error {
	if h.StartFunc == nil {
		return nil
	}
	return h.StartFunc(out)
}

// Msg calls MsgFunc.
func (h *MessageHandlerFuncs) Msg(msg string) error {
	if h.MsgFunc == nil {
		return nil
	}
	return h.MsgFunc(msg)
}

// Closed calls ClosedFunc.
func (h *MessageHandlerFuncs) Closed(status Status, reason string) error {
	if h.ClosedFunc == nil {
		return nil
	}
	return h.ClosedFunc(status, reason)
}
