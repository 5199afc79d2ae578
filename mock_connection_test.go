package dromos_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/RobertWHurst/dromos"
)

var errMockConnectionClosed = errors.New("mock connection closed")

type closeCall struct {
	status dromos.Status
	reason string
}

// mockConnection is an in-memory SocketConnection. Tests push inbound
// messages with send and end the session from the peer side with peerClose.
type mockConnection struct {
	incoming  chan *dromos.SocketMessage
	peerClose chan error
	outgoing  chan *dromos.SocketMessage
	pings     chan []byte

	mu         sync.Mutex
	closeCalls []closeCall
	closeErr   error
	closed     chan struct{}
}

var _ dromos.SocketConnection = &mockConnection{}

func newMockConnection() *mockConnection {
	return &mockConnection{
		incoming:  make(chan *dromos.SocketMessage, 64),
		peerClose: make(chan error, 1),
		outgoing:  make(chan *dromos.SocketMessage, 64),
		pings:     make(chan []byte, 8),
		closed:    make(chan struct{}),
	}
}

func (c *mockConnection) send(msg string) {
	c.incoming <- &dromos.SocketMessage{Type: dromos.MessageText, Data: []byte(msg)}
}

func (c *mockConnection) close(status dromos.Status, reason string) {
	c.peerClose <- dromos.CloseError{Code: status, Reason: reason}
}

func (c *mockConnection) Read(ctx context.Context) (*dromos.SocketMessage, error) {
	select {
	case <-c.closed:
		return nil, errMockConnectionClosed
	default:
	}

	select {
	case msg := <-c.incoming:
		return msg, nil
	case err := <-c.peerClose:
		return nil, err
	case <-c.closed:
		return nil, errMockConnectionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *mockConnection) Write(ctx context.Context, msg *dromos.SocketMessage) error {
	select {
	case <-c.closed:
		return errMockConnectionClosed
	default:
	}
	c.outgoing <- msg
	return nil
}

func (c *mockConnection) Ping(ctx context.Context, payload []byte) error {
	c.pings <- payload
	return nil
}

func (c *mockConnection) Close(status dromos.Status, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCalls = append(c.closeCalls, closeCall{status: status, reason: reason})
	if len(c.closeCalls) == 1 {
		close(c.closed)
		return c.closeErr
	}
	return nil
}

// firstClose returns the status and reason of the first Close call.
func (c *mockConnection) firstClose() (closeCall, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.closeCalls) == 0 {
		return closeCall{}, false
	}
	return c.closeCalls[0], true
}

type mockUpgrader struct {
	connection   *mockConnection
	acceptErr    error
	acceptPanic  bool
	accepted     bool
	rejected     bool
	rejectStatus int
	rejectBody   []byte
}

var _ dromos.Upgrader = &mockUpgrader{}

func (u *mockUpgrader) Accept() (dromos.SocketConnection, error) {
	if u.acceptPanic {
		panic("accept exploded")
	}
	if u.acceptErr != nil {
		return nil, u.acceptErr
	}
	u.accepted = true
	return u.connection, nil
}

func (u *mockUpgrader) Reject(status int, body []byte) error {
	u.rejected = true
	u.rejectStatus = status
	u.rejectBody = body
	return nil
}

func connectionInfo(path string) *dromos.ConnectionInfo {
	return &dromos.ConnectionInfo{
		RemoteAddr: "127.0.0.1:1234",
		Path:       path,
		Query:      url.Values{},
		Headers:    http.Header{},
	}
}

// handleConnection runs HandleConnection in the background and returns a
// channel closed once it returns.
func handleConnection(server *dromos.Server, path string, upgrader dromos.Upgrader) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		server.HandleConnection(context.Background(), connectionInfo(path), upgrader)
	}()
	return done
}

type closedEvent struct {
	status dromos.Status
	reason string
}

// recordingHandler records every lifecycle call on channels.
type recordingHandler struct {
	started chan dromos.Outbound
	msgs    chan string
	closed  chan closedEvent

	startErr error
	onMsg    func(msg string) error
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		started: make(chan dromos.Outbound, 1),
		msgs:    make(chan string, 64),
		closed:  make(chan closedEvent, 4),
	}
}

func (h *recordingHandler) Start(out dromos.Outbound) error {
	h.started <- out
	return h.startErr
}

func (h *recordingHandler) Msg(msg string) error {
	h.msgs <- msg
	if h.onMsg != nil {
		return h.onMsg(msg)
	}
	return nil
}

func (h *recordingHandler) Closed(status dromos.Status, reason string) error {
	h.closed <- closedEvent{status: status, reason: reason}
	return nil
}

func sessionRouter(segment string, handler dromos.MessageHandler) *dromos.Router {
	router := dromos.NewRouter()
	router.WS(segment, func(ctx *dromos.Context) (dromos.Result, error) {
		return dromos.Session(handler), nil
	})
	return router
}

const testTimeout = 2 * time.Second

func waitDone(done <-chan struct{}) bool {
	select {
	case <-done:
		return true
	case <-time.After(testTimeout):
		return false
	}
}
