package dromos

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// dispatchRequest is what the dispatcher needs to know about a request,
// regardless of the transport it arrived on.
type dispatchRequest struct {
	ctx        context.Context
	verb       string
	path       string
	headers    http.Header
	remoteAddr string
	payload    *Payload
}

// splitPath splits a request path into segments, dropping empty segments and
// any query string. A path without segments becomes the single segment "".
func splitPath(path string) []string {
	if i := strings.IndexByte(path, '?'); i != -1 {
		path = path[:i]
	}
	segments := []string{}
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	if len(segments) == 0 {
		segments = []string{""}
	}
	return segments
}

// dispatch resolves the request path against root. Each hop consumes the
// first remaining segment: the handler bound to it is called, and if it
// delegates to a nested router the remaining segments are resolved on that
// router. The first result that does not delegate is returned.
//
// Handler panics are recovered and returned as a *FaultError.
func dispatch(root *Router, req *dispatchRequest) (Result, error) {
	router := root
	segments := splitPath(req.path)

	for {
		segment := segments[0]
		handler, ok := router.lookup(req.verb, segment)
		if !ok {
			return Result{}, ErrNotFound
		}

		remaining := segments[1:]
		ctx := newContext(req, segment, remaining)

		var result Result
		err := execWithRecovery(func() error {
			var handlerErr error
			result, handlerErr = handler(ctx)
			return handlerErr
		})
		if err != nil {
			return Result{}, err
		}

		if result.kind != DelegateResult {
			return result, nil
		}
		if result.router == nil {
			return Result{}, fmt.Errorf("%w at segment %q", ErrNilRouter, segment)
		}

		router = result.router
		segments = remaining
		if len(segments) == 0 {
			segments = []string{""}
		}
	}
}
