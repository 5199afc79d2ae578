// Package natsrelay provides a dromos.MessageHandler that bridges a websocket
// session to NATS subjects, so that other services can talk to a connected
// client without holding its connection.
//
// For a relay with subject prefix "chat" and a session with id ID:
//
//	chat.open         announces {"sessionId": ID} when the session starts
//	chat.in.ID        receives every message sent by the client
//	chat.out.ID       messages published here are sent to the client
//	chat.out          messages published here are sent to every client
//	chat.close        announces {"sessionId", "status", "reason"} at the end
package natsrelay

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/RobertWHurst/dromos"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DefaultSendTimeout bounds how long a message received from NATS may take to
// be written to the client.
const DefaultSendTimeout = 10 * time.Second

// SessionAnnouncement is published on the open and close subjects.
type SessionAnnouncement struct {
	SessionID string `json:"sessionId"`
	Status    int    `json:"status,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Relay bridges one session to NATS. A Relay carries the state of a single
// session; create a new one for every upgrade request.
type Relay struct {
	conn    *nats.Conn
	prefix  string
	logger  *zap.Logger
	timeout time.Duration

	mu            sync.Mutex
	out           dromos.Outbound
	subscriptions []*nats.Subscription
}

var _ dromos.MessageHandler = &Relay{}

// Option configures a Relay.
type Option func(*Relay)

// WithLogger sets the logger used to report delivery failures.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

// WithSendTimeout sets how long forwarding a NATS message to the client may
// take.
func WithSendTimeout(timeout time.Duration) Option {
	return func(r *Relay) {
		r.timeout = timeout
	}
}

// New creates a Relay publishing and subscribing under prefix.
func New(conn *nats.Conn, prefix string, opts ...Option) *Relay {
	r := &Relay{
		conn:    conn,
		prefix:  strings.TrimSuffix(prefix, "."),
		logger:  zap.NewNop(),
		timeout: DefaultSendTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start subscribes to the session's outbound subjects and announces the
// session.
func (r *Relay) Start(out dromos.Outbound) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.out = out
	for _, subject := range []string{r.subject("out", out.SessionID()), r.subject("out")} {
		sub, err := r.conn.Subscribe(subject, r.deliver)
		if err != nil {
			r.unsubscribeLocked()
			return err
		}
		r.subscriptions = append(r.subscriptions, sub)
	}

	return r.announce("open", SessionAnnouncement{SessionID: out.SessionID()})
}

// Msg publishes a client message on the session's inbound subject.
func (r *Relay) Msg(msg string) error {
	out := r.outbound()
	if out == nil {
		return errors.New("relay used before start")
	}
	return r.conn.Publish(r.subject("in", out.SessionID()), []byte(msg))
}

// Closed unsubscribes and announces the end of the session.
func (r *Relay) Closed(status dromos.Status, reason string) error {
	r.mu.Lock()
	r.unsubscribeLocked()
	out := r.out
	r.mu.Unlock()

	if out == nil {
		return nil
	}
	return r.announce("close", SessionAnnouncement{
		SessionID: out.SessionID(),
		Status:    int(status),
		Reason:    reason,
	})
}

func (r *Relay) deliver(msg *nats.Msg) {
	out := r.outbound()
	if out == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := out.SendMsg(ctx, string(msg.Data)); err != nil {
		r.logger.Warn("failed to relay message to client",
			zap.String("session", out.SessionID()),
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
	}
}

func (r *Relay) outbound() dromos.Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.out
}

func (r *Relay) announce(event string, announcement SessionAnnouncement) error {
	messageBytes, err := json.Marshal(announcement)
	if err != nil {
		return err
	}
	return r.conn.Publish(r.subject(event), messageBytes)
}

func (r *Relay) unsubscribeLocked() {
	for _, sub := range r.subscriptions {
		_ = sub.Unsubscribe()
	}
	r.subscriptions = nil
}

func (r *Relay) subject(parts ...string) string {
	return r.prefix + "." + strings.Join(parts, ".")
}
