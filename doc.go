// Package dromos provides a convention based request router for HTTP and
// WebSocket in Go.
//
// Dromos resolves a request path one segment at a time. Each segment is
// looked up on a Router by verb and segment name, and the handler bound there
// decides what happens next: it can answer with a value, hand the rest of the
// path to a nested Router, or start a WebSocket session.
//
// # Key Features
//
//   - Routing by convention, one path segment per hop
//   - Nested routers built per request, so a handler can route on data
//   - JSON bodies and query strings decoded the same way
//   - WebSocket sessions with an ordered Start / Msg / Closed lifecycle
//   - Panics in handlers fail the request or message, not the server
//   - Works with any HTTP router via http.Handler, or as Navaros middleware
//
// # Quick Start
//
// Create a router, bind handlers to segments and serve it:
//
//	router := dromos.NewRouter()
//
//	router.Get("", func(ctx *dromos.Context) (dromos.Result, error) {
//	    return dromos.Value("Hello World!"), nil
//	})
//
//	router.Get("users", func(ctx *dromos.Context) (dromos.Result, error) {
//	    return dromos.Delegate(usersRouter), nil
//	})
//
//	http.ListenAndServe(":8080", dromos.NewServer(router))
//
// # Resolution
//
// A binding for a specific verb wins over a binding made with Any. The
// segment "" is the index of a router and answers both "/" and "". When a
// handler delegates and no segments remain, the nested router's index is
// used. A path with no matching binding is answered with 404.
//
// WebSocket upgrade requests are resolved with the verb "ws", so handlers for
// sessions are bound with Router.WS.
//
// # Sessions
//
// A handler bound with WS returns a MessageHandler wrapped with Session:
//
//	router.WS("chat", func(ctx *dromos.Context) (dromos.Result, error) {
//	    return dromos.Session(&dromos.MessageHandlerFuncs{
//	        StartFunc: func(out dromos.Outbound) error {
//	            return out.SendMsg(ctx.Context(), "welcome")
//	        },
//	        MsgFunc: func(msg string) error {
//	            log.Printf("received: %s", msg)
//	            return nil
//	        },
//	    }), nil
//	})
//
// Start is called once when the connection is accepted, Msg once per text
// message in arrival order, and Closed exactly once when either side ends the
// session.
//
// # Transports
//
// By default connections are accepted with github.com/coder/websocket. The
// gorilla-connection package provides an Acceptor built on
// github.com/gorilla/websocket, and Server.HandleConnection runs sessions over
// any other transport that implements SocketConnection.
package dromos
