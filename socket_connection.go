package dromos

import (
	"context"

	"github.com/coder/websocket"
)

// MessageType is the type of a websocket message.
type MessageType = websocket.MessageType

const (
	MessageText   MessageType = websocket.MessageText
	MessageBinary MessageType = websocket.MessageBinary
)

// SocketMessage is a single websocket message read from or written to a
// SocketConnection.
type SocketMessage struct {
	Type MessageType
	Data []byte
}

// SocketConnection is the transport a session runs over. Read is only ever
// called from one goroutine; Write, Ping and Close may be called concurrently
// with Read and with each other.
//
// When the peer closes the connection, Read must return an error that
// CloseStatus can extract the status and reason from (a
// github.com/coder/websocket CloseError). Close may be called more than once;
// calls after the first should not send another close frame.
type SocketConnection interface {
	Read(ctx context.Context) (*SocketMessage, error)
	Write(ctx context.Context, msg *SocketMessage) error
	Ping(ctx context.Context, payload []byte) error
	Close(status Status, reason string) error
}

// WebSocketConnection is a SocketConnection implementation that wraps
// github.com/coder/websocket.Conn. This is the connection type produced by the
// default acceptor.
type WebSocketConnection struct {
	webSocketConnection *websocket.Conn
}

var _ SocketConnection = &WebSocketConnection{}

// NewWebSocketConnection creates a WebSocketConnection from a
// github.com/coder/websocket.Conn.
func NewWebSocketConnection(websocketConnection *websocket.Conn) *WebSocketConnection {
	return &WebSocketConnection{
		webSocketConnection: websocketConnection,
	}
}

// Read reads the next message from the WebSocket connection. Blocks until a
// message arrives or an error occurs.
func (c *WebSocketConnection) Read(ctx context.Context) (*SocketMessage, error) {
	messageType, data, err := c.webSocketConnection.Read(ctx)
	if err != nil {
		return nil, err
	}

	return &SocketMessage{
		Type: messageType,
		Data: data,
	}, nil
}

// Write sends a message to the WebSocket connection.
func (c *WebSocketConnection) Write(ctx context.Context, msg *SocketMessage) error {
	return c.webSocketConnection.Write(ctx, msg.Type, msg.Data)
}

// Ping sends a ping and waits for the matching pong. coder/websocket chooses
// the ping payload itself, so payload is not sent.
func (c *WebSocketConnection) Ping(ctx context.Context, _ []byte) error {
	return c.webSocketConnection.Ping(ctx)
}

// Close closes the WebSocket connection with the given status code and reason.
func (c *WebSocketConnection) Close(status Status, reason string) error {
	return c.webSocketConnection.Close(status, reason)
}
