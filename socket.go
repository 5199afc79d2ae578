package dromos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HandleConnection drives the server with a websocket upgrade that arrived on
// a custom transport. This is designed for frameworks that bring their own
// WebSocket implementation; most applications should use ServeHTTP or
// Middleware instead.
//
// The path in info is dispatched with the verb "ws". If no handler matches the
// upgrade is rejected with 404, and if dispatch fails it is rejected with 500
// and the serialized error. Otherwise the upgrade is accepted and
// HandleConnection blocks until the session has ended.
func (s *Server) HandleConnection(ctx context.Context, info *ConnectionInfo, upgrader Upgrader) {
	defer s.guard("upgrade")

	handler, err := s.resolveSession(ctx, info)
	s.upgrade(ctx, info, upgrader, handler, err)
}

func (s *Server) handleWebsocket(res http.ResponseWriter, req *http.Request, pass *passthrough) {
	info := &ConnectionInfo{
		RemoteAddr: req.RemoteAddr,
		Path:       req.URL.Path,
		Query:      req.URL.Query(),
		Headers:    req.Header,
	}
	upgrader := &httpUpgrader{
		res:      res,
		req:      req,
		acceptor: s.acceptor,
	}

	handler, err := s.resolveSession(req.Context(), info)
	if pass != nil {
		if errors.Is(err, ErrNotFound) {
			pass.next()
			return
		}
		pass.inhibit()
	}
	s.upgrade(req.Context(), info, upgrader, handler, err)
}

// resolveSession dispatches an upgrade request and checks that the result is
// a message handler.
func (s *Server) resolveSession(ctx context.Context, info *ConnectionInfo) (MessageHandler, error) {
	result, err := dispatch(s.root, &dispatchRequest{
		ctx:        ctx,
		verb:       WSVerb,
		path:       info.Path,
		headers:    info.Headers,
		remoteAddr: info.RemoteAddr,
		payload:    newQueryPayload(info.Query),
	})
	if err != nil {
		return nil, err
	}
	if result.kind != SessionResult || result.handler == nil {
		return nil, fmt.Errorf("%w: %s result for websocket upgrade", ErrContractViolation, result.kind)
	}
	return result.handler, nil
}

func (s *Server) upgrade(ctx context.Context, info *ConnectionInfo, upgrader Upgrader, handler MessageHandler, err error) {
	if err != nil {
		status := errorStatus(err)
		s.metrics.dispatched("ws", errorOutcome(err))
		s.logDispatchError(WSVerb, info.Path, status, err)
		if rejectErr := upgrader.Reject(status, marshalError(err)); rejectErr != nil {
			s.logger.Debug("failed to reject websocket upgrade",
				zap.String("path", info.Path),
				zap.Error(rejectErr),
			)
		}
		return
	}

	connection, err := upgrader.Accept()
	if err != nil {
		s.metrics.dispatched("ws", outcomeError)
		s.logger.Warn("failed to accept websocket connection",
			zap.String("path", info.Path),
			zap.Error(err),
		)
		return
	}
	s.metrics.dispatched("ws", outcomeOK)

	newSession(s, info, connection, handler).run(ctx)
}

// sessionEvent is an inbound message, or when closed is set, the end of the
// session.
type sessionEvent struct {
	msg    string
	closed bool
	status Status
	reason string
}

// session bridges one accepted connection to its MessageHandler. The read
// loop runs on the goroutine that accepted the connection; the handler is
// called from a single supervised forwarding goroutine, which keeps messages
// in order and guarantees Start runs before Msg and Closed runs last.
type session struct {
	id         string
	server     *Server
	connection SocketConnection
	handler    MessageHandler
	logger     *zap.Logger

	events        chan sessionEvent
	forwarderDone chan struct{}

	closeMu     sync.Mutex
	closeDone   chan struct{}
	closeStatus Status
	closeReason string
}

func newSession(server *Server, info *ConnectionInfo, connection SocketConnection, handler MessageHandler) *session {
	id := uuid.NewString()
	return &session{
		id:            id,
		server:        server,
		connection:    connection,
		handler:       handler,
		logger:        server.logger.With(zap.String("session", id), zap.String("path", info.Path)),
		events:        make(chan sessionEvent, server.eventBuffer),
		forwarderDone: make(chan struct{}),
	}
}

func (s *session) run(ctx context.Context) {
	s.server.metrics.sessionOpened()
	defer s.server.metrics.sessionClosed()
	s.logger.Debug("websocket session opened")

	s.server.supervise("forward", s.forward)

	status, reason := s.readLoop(ctx)
	s.events <- sessionEvent{closed: true, status: status, reason: reason}
	close(s.events)
	<-s.forwarderDone

	// Releases the connection if the peer went away without a close
	// handshake; a no-op when a close frame was already exchanged.
	_ = s.connection.Close(StatusNormalClosure, "")

	s.logger.Debug("websocket session closed",
		zap.Int("status", int(status)),
		zap.String("reason", reason),
	)
}

func (s *session) readLoop(ctx context.Context) (Status, string) {
	for {
		msg, err := s.connection.Read(ctx)
		if err != nil {
			return s.closeResult(err)
		}

		if msg.Type != MessageText {
			_ = s.closeWithStatus(StatusUnsupportedData, "binary messages are not supported")
			continue
		}

		s.server.metrics.messageReceived()
		s.events <- sessionEvent{msg: string(msg.Data)}
	}
}

// closeResult decides the status and reason delivered to Closed. A close
// requested by the handler wins over whatever the read error reports, once
// the close frame has been written or has failed to be.
func (s *session) closeResult(err error) (Status, string) {
	s.closeMu.Lock()
	closeDone := s.closeDone
	s.closeMu.Unlock()
	if closeDone == nil {
		return CloseStatus(err)
	}

	<-closeDone
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	return s.closeStatus, s.closeReason
}

func (s *session) forward() {
	defer close(s.forwarderDone)

	started := true
	if err := execWithRecovery(func() error { return s.handler.Start(&outbound{session: s}) }); err != nil {
		started = false
		s.handlerFault("start", err)
		_ = s.closeWithStatus(StatusInternalError, closeReasonFromError(err))
	}

	for event := range s.events {
		if event.closed {
			if err := execWithRecovery(func() error { return s.handler.Closed(event.status, event.reason) }); err != nil {
				s.handlerFault("closed", err)
			}
			continue
		}
		// A handler whose Start failed only learns that the session closed.
		if !started {
			continue
		}
		if err := execWithRecovery(func() error { return s.handler.Msg(event.msg) }); err != nil {
			s.handlerFault("msg", err)
		}
	}
}

func (s *session) handlerFault(stage string, err error) {
	s.server.metrics.handlerFault(stage)
	fields := []zap.Field{zap.String("stage", stage), zap.Error(err)}
	var faultErr *FaultError
	if errors.As(err, &faultErr) {
		fields = append(fields, zap.String("stack", faultErr.Stack))
	}
	s.logger.Error("message handler failed", fields...)
}

// closeWithStatus sends a close frame once. Later calls do nothing. A status
// that cannot be sent in a close frame is refused without closing. If the
// close frame cannot be written the session is reported to the handler as
// abnormally closed, since the peer never saw the requested status.
func (s *session) closeWithStatus(status Status, reason string) error {
	if !IsSendableStatus(status) {
		return fmt.Errorf("%w: %d", ErrInvalidCloseStatus, status)
	}
	reason = truncateCloseReason(reason)

	s.closeMu.Lock()
	if s.closeDone != nil {
		s.closeMu.Unlock()
		return nil
	}
	s.closeDone = make(chan struct{})
	s.closeStatus = status
	s.closeReason = reason
	s.closeMu.Unlock()

	err := s.connection.Close(status, reason)
	s.closeMu.Lock()
	if err != nil {
		s.closeStatus = StatusAbnormalClosure
		s.closeReason = ""
	}
	close(s.closeDone)
	s.closeMu.Unlock()
	return err
}

// closeReasonFromError serializes err as a close reason. The error message is
// shortened until the JSON fits in a close frame, so the reason stays valid
// JSON.
func closeReasonFromError(err error) string {
	message := err.Error()
	if body, ok := errorBody(err).(Error); ok {
		message = string(body)
	}
	for {
		reasonBytes, _ := json.Marshal(M{"error": message})
		if len(reasonBytes) <= maxCloseReasonLength || message == "" {
			return string(reasonBytes)
		}
		excess := len(reasonBytes) - maxCloseReasonLength
		if excess > len(message) {
			excess = len(message)
		}
		message = strings.ToValidUTF8(message[:len(message)-excess], "")
	}
}

// outbound is the Outbound handed to MessageHandler.Start.
type outbound struct {
	session *session
}

var _ Outbound = &outbound{}

func (o *outbound) SessionID() string {
	return o.session.id
}

func (o *outbound) SendMsg(ctx context.Context, msg string) error {
	if err := o.session.connection.Write(ctx, &SocketMessage{
		Type: MessageText,
		Data: []byte(msg),
	}); err != nil {
		return err
	}
	o.session.server.metrics.messageSent()
	return nil
}

func (o *outbound) Ping(ctx context.Context, payload string) error {
	return o.session.connection.Ping(ctx, []byte(payload))
}

func (o *outbound) Close() error {
	return o.session.closeWithStatus(StatusNormalClosure, "")
}

func (o *outbound) CloseWithStatus(status Status, reason string) error {
	return o.session.closeWithStatus(status, reason)
}
