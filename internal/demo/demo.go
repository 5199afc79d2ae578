// Package demo contains the example application served by the dromos
// command. It shows the handler conventions: index bindings, nested routers
// built per request, payload decoding, header access and websocket sessions.
package demo

import (
	"context"
	"net/http"
	"time"

	"github.com/RobertWHurst/dromos"
	natsrelay "github.com/RobertWHurst/dromos/nats-relay"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Options configures the demo router.
type Options struct {
	// NATS enables the /relay websocket endpoint when set.
	NATS        *nats.Conn
	NATSSubject string
	Logger      *zap.Logger
}

// PingPong is the payload of /echo.
type PingPong struct {
	Ping string `json:"ping"`
	Pong string `json:"pong"`
}

// NewRouter builds the demo root router.
func NewRouter(opts Options) *dromos.Router {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	router := dromos.NewRouter()

	router.Get("", func(ctx *dromos.Context) (dromos.Result, error) {
		return dromos.Value("Hello World!"), nil
	})

	router.Get("asd", func(ctx *dromos.Context) (dromos.Result, error) {
		return dromos.Value("world"), nil
	})

	router.Get("sub", func(ctx *dromos.Context) (dromos.Result, error) {
		return dromos.Delegate(newSubRouter()), nil
	})

	router.Any("echo", echo)
	router.Any("hop", hop)

	router.Get("ct", func(ctx *dromos.Context) (dromos.Result, error) {
		return dromos.Value(ctx.Header("Content-Type")), nil
	})

	router.WS("listen", func(ctx *dromos.Context) (dromos.Result, error) {
		return dromos.Session(&echoSession{}), nil
	})

	if opts.NATS != nil {
		router.WS("relay", func(ctx *dromos.Context) (dromos.Result, error) {
			return dromos.Session(natsrelay.New(opts.NATS, opts.NATSSubject, natsrelay.WithLogger(opts.Logger))), nil
		})
	}

	return router
}

func newSubRouter() *dromos.Router {
	router := dromos.NewRouter()
	router.Get("", func(ctx *dromos.Context) (dromos.Result, error) {
		return dromos.Value("sub"), nil
	})
	return router
}

// echo appends "1" to pong, from either the body or the query.
func echo(ctx *dromos.Context) (dromos.Result, error) {
	var pingPong PingPong
	if err := ctx.Unmarshal(&pingPong); err != nil {
		return dromos.Result{}, dromos.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	pingPong.Pong += "1"
	return dromos.Value(pingPong), nil
}

// hop delegates to a router built around the next path segment, so that
// /hop/bola answers "bola".
func hop(ctx *dromos.Context) (dromos.Result, error) {
	path := ctx.Path()
	if len(path) == 0 {
		return dromos.Result{}, dromos.NewHTTPError(http.StatusBadRequest, "hop requires a destination segment")
	}
	return dromos.Delegate(newHopRouter(path[0])), nil
}

func newHopRouter(destination string) *dromos.Router {
	router := dromos.NewRouter()

	router.Get(destination, func(ctx *dromos.Context) (dromos.Result, error) {
		return dromos.Value(destination), nil
	})

	router.WS(destination, func(ctx *dromos.Context) (dromos.Result, error) {
		return dromos.Session(&dromos.MessageHandlerFuncs{
			StartFunc: func(out dromos.Outbound) error {
				go func() {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := out.SendMsg(ctx, destination); err != nil {
						_ = out.CloseWithStatus(dromos.StatusInternalError, err.Error())
						return
					}
					_ = out.Close()
				}()
				return nil
			},
		}), nil
	})

	return router
}

// echoSession sends every message back to the client.
type echoSession struct {
	out dromos.Outbound
}

func (s *echoSession) Start(out dromos.Outbound) error {
	s.out = out
	return nil
}

func (s *echoSession) Msg(msg string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.out.SendMsg(ctx, msg)
}

func (s *echoSession) Closed(status dromos.Status, reason string) error {
	return nil
}
