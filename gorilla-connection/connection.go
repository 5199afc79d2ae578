package gorillaconnection

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/RobertWHurst/dromos"
	"github.com/gorilla/websocket"
)

// DefaultControlTimeout bounds writes of control frames (ping, close) when the
// caller's context has no deadline, and how long the peer has to answer a
// close frame.
const DefaultControlTimeout = 5 * time.Second

// Connection is a dromos.SocketConnection backed by a gorilla/websocket
// connection. Unlike the default connection it sends the ping payload given to
// Outbound.Ping.
type Connection struct {
	conn *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once

	readDoneMu sync.Mutex
	readDone   bool
}

var _ dromos.SocketConnection = &Connection{}

// New wraps an upgraded gorilla/websocket connection.
func New(conn *websocket.Conn) *Connection {
	return &Connection{conn: conn}
}

// Read reads the next message. A close frame from the peer is returned as a
// dromos.CloseError carrying the peer's status and reason.
func (c *Connection) Read(ctx context.Context) (*dromos.SocketMessage, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetReadDeadline(deadline)
	}

	messageType, data, err := c.conn.ReadMessage()
	if err != nil {
		c.readDoneMu.Lock()
		c.readDone = true
		c.readDoneMu.Unlock()

		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) {
			return nil, dromos.CloseError{
				Code:   dromos.Status(closeErr.Code),
				Reason: closeErr.Text,
			}
		}
		return nil, err
	}

	msg := &dromos.SocketMessage{Data: data}
	switch messageType {
	case websocket.TextMessage:
		msg.Type = dromos.MessageText
	default:
		msg.Type = dromos.MessageBinary
	}
	return msg, nil
}

// Write sends a message. Writes are serialized since gorilla/websocket allows
// only one concurrent writer.
func (c *Connection) Write(ctx context.Context, msg *dromos.SocketMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
	} else {
		_ = c.conn.SetWriteDeadline(time.Time{})
	}

	messageType := websocket.TextMessage
	if msg.Type == dromos.MessageBinary {
		messageType = websocket.BinaryMessage
	}
	return c.conn.WriteMessage(messageType, msg.Data)
}

// Ping sends a ping control frame carrying payload. It does not wait for the
// pong.
func (c *Connection) Ping(ctx context.Context, payload []byte) error {
	return c.conn.WriteControl(websocket.PingMessage, payload, controlDeadline(ctx))
}

// Close sends a close frame with status and reason the first time it is
// called, and gives the peer DefaultControlTimeout to answer it. Once the read
// side has finished, Close releases the underlying network connection.
func (c *Connection) Close(status dromos.Status, reason string) error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(int(status), reason),
			time.Now().Add(DefaultControlTimeout),
		)
		if errors.Is(err, websocket.ErrCloseSent) {
			err = nil
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(DefaultControlTimeout))
	})

	c.readDoneMu.Lock()
	readDone := c.readDone
	c.readDoneMu.Unlock()
	if readDone {
		_ = c.conn.Close()
	}
	return err
}

func controlDeadline(ctx context.Context) time.Time {
	if deadline, ok := ctx.Deadline(); ok {
		return deadline
	}
	return time.Now().Add(DefaultControlTimeout)
}

// Acceptor upgrades HTTP requests with a gorilla/websocket Upgrader. Use it
// with dromos.WithAcceptor.
type Acceptor struct {
	Upgrader       *websocket.Upgrader
	ResponseHeader http.Header
}

var _ dromos.Acceptor = &Acceptor{}

// NewAcceptor creates an Acceptor. A nil upgrader allows any origin with
// default buffer sizes.
func NewAcceptor(upgrader *websocket.Upgrader) *Acceptor {
	if upgrader == nil {
		upgrader = &websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		}
	}
	return &Acceptor{Upgrader: upgrader}
}

func (a *Acceptor) Accept(res http.ResponseWriter, req *http.Request) (dromos.SocketConnection, error) {
	conn, err := a.Upgrader.Upgrade(res, req, a.ResponseHeader)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}
