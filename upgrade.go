package dromos

import (
	"net/http"
	"net/url"

	"github.com/coder/websocket"
)

// ConnectionInfo describes a websocket upgrade request: the path and query it
// was made to, its headers and the remote address.
type ConnectionInfo struct {
	RemoteAddr string
	Path       string
	Query      url.Values
	Headers    http.Header
}

// Upgrader accepts or rejects one pending websocket upgrade. Exactly one of
// its methods is called by the server.
type Upgrader interface {
	// Accept completes the handshake and returns the connection.
	Accept() (SocketConnection, error)

	// Reject refuses the upgrade with an HTTP status and a JSON body.
	Reject(status int, body []byte) error
}

// Acceptor turns an HTTP upgrade request into a SocketConnection.
type Acceptor interface {
	Accept(res http.ResponseWriter, req *http.Request) (SocketConnection, error)
}

// CoderAcceptor accepts websocket connections with github.com/coder/websocket.
// It is the default Acceptor of a Server.
type CoderAcceptor struct {
	// OriginPatterns lists the allowed origins. An empty list allows all
	// origins.
	OriginPatterns []string

	// ReadLimit is the maximum size of an inbound message in bytes. Zero
	// keeps the library default.
	ReadLimit int64
}

var _ Acceptor = &CoderAcceptor{}

func (a *CoderAcceptor) Accept(res http.ResponseWriter, req *http.Request) (SocketConnection, error) {
	origins := a.OriginPatterns
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	conn, err := websocket.Accept(res, req, &websocket.AcceptOptions{
		OriginPatterns: origins,
	})
	if err != nil {
		return nil, err
	}
	if a.ReadLimit > 0 {
		conn.SetReadLimit(a.ReadLimit)
	}

	return NewWebSocketConnection(conn), nil
}

// httpUpgrader is the Upgrader for upgrade requests received by the server's
// own http.Handler.
type httpUpgrader struct {
	res      http.ResponseWriter
	req      *http.Request
	acceptor Acceptor
}

func (u *httpUpgrader) Accept() (SocketConnection, error) {
	return u.acceptor.Accept(u.res, u.req)
}

func (u *httpUpgrader) Reject(status int, body []byte) error {
	u.res.Header().Set("Content-Type", "application/json")
	u.res.WriteHeader(status)
	_, err := u.res.Write(body)
	return err
}
