package dromos

import (
	"net/http"
	"strings"

	"github.com/RobertWHurst/navaros"
	"go.uber.org/zap"
)

// Server dispatches HTTP requests and websocket upgrades to a root Router.
// It implements http.Handler for use with Go's standard HTTP server, and can
// also be mounted as middleware in a Navaros router.
type Server struct {
	root        *Router
	logger      *zap.Logger
	metrics     *Metrics
	acceptor    Acceptor
	origins     []string
	readLimit   int64
	bodyLimit   int64
	eventBuffer int
	fatal       func(err error)
}

var _ http.Handler = &Server{}

// NewServer creates a Server that dispatches to root.
func NewServer(root *Router, opts ...Option) *Server {
	if root == nil {
		panic("no root router provided")
	}

	s := &Server{
		root:        root,
		logger:      zap.NewNop(),
		bodyLimit:   DefaultBodyLimit,
		eventBuffer: DefaultEventBuffer,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.fatal == nil {
		s.fatal = func(err error) {
			s.logger.Fatal("terminating after unrecovered fault", zap.Error(err))
		}
	}
	if s.acceptor == nil {
		s.acceptor = &CoderAcceptor{
			OriginPatterns: s.origins,
			ReadLimit:      s.readLimit,
		}
	}

	return s
}

// Root returns the router the server dispatches to.
func (s *Server) Root() *Router {
	return s.root
}

// ServeHTTP implements the http.Handler interface. Websocket upgrade requests
// are dispatched with the verb "ws" and, when accepted, ServeHTTP returns once
// the session has ended. Other requests are dispatched with their method and
// answered with a JSON body.
func (s *Server) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	defer s.guard("http")

	if isWebsocketUpgradeRequest(req) {
		s.handleWebsocket(res, req, nil)
		return
	}
	s.handleHTTP(res, req, nil)
}

// Middleware returns a Navaros middleware function that dispatches requests to
// the server. If no binding matches the request path, the request is passed
// to the next handler in the Navaros chain instead of being answered with a
// 404.
func (s *Server) Middleware() navaros.HandlerFunc {
	return func(ctx *navaros.Context) {
		defer s.guard("http")

		pass := &passthrough{
			next: ctx.Next,
			inhibit: func() {
				navaros.CtxInhibitResponse(ctx)
			},
		}
		if isWebsocketUpgradeRequest(ctx.Request()) {
			s.handleWebsocket(ctx.ResponseWriter(), ctx.Request(), pass)
			return
		}
		s.handleHTTP(ctx.ResponseWriter(), ctx.Request(), pass)
	}
}

// passthrough lets a request that matched nothing continue down an outer
// middleware chain.
type passthrough struct {
	next    func()
	inhibit func()
}

func isWebsocketUpgradeRequest(req *http.Request) bool {
	return strings.EqualFold(req.Header.Get("Upgrade"), "websocket")
}
