package dromos

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// DefaultEventBuffer is the number of inbound messages a session queues for
// its MessageHandler before the read loop waits.
const DefaultEventBuffer = 32

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used by the server. The default discards all
// output.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics registers the server's Prometheus collectors with registerer.
// Without this option no metrics are recorded.
func WithMetrics(registerer prometheus.Registerer) Option {
	return func(s *Server) {
		s.metrics = NewMetrics(registerer)
	}
}

// WithOrigins configures the allowed origin patterns for websocket upgrades
// accepted by the default acceptor. If not set, all origins are allowed
// (equivalent to []string{"*"}).
//
// Origin patterns support wildcards, for example:
//   - "https://example.com" - exact match
//   - "https://*.example.com" - subdomain wildcard
//   - "*" - allow all origins (default)
func WithOrigins(origins ...string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithReadLimit sets the maximum size in bytes of an inbound websocket
// message for the default acceptor.
func WithReadLimit(limit int64) Option {
	return func(s *Server) {
		s.readLimit = limit
	}
}

// WithBodyLimit sets the maximum size in bytes of an HTTP request body.
func WithBodyLimit(limit int64) Option {
	return func(s *Server) {
		if limit > 0 {
			s.bodyLimit = limit
		}
	}
}

// WithAcceptor replaces the acceptor used to upgrade HTTP requests to
// websocket connections. WithOrigins and WithReadLimit only apply to the
// default acceptor.
func WithAcceptor(acceptor Acceptor) Option {
	return func(s *Server) {
		s.acceptor = acceptor
	}
}

// WithEventBuffer sets how many inbound messages a session queues for its
// MessageHandler.
func WithEventBuffer(size int) Option {
	return func(s *Server) {
		if size >= 0 {
			s.eventBuffer = size
		}
	}
}

// WithFatalHandler replaces what happens when a panic escapes fault isolation.
// By default the fault is logged with Fatal and the process exits.
func WithFatalHandler(handler func(err error)) Option {
	return func(s *Server) {
		if handler != nil {
			s.fatal = handler
		}
	}
}
