package dromos

import (
	"fmt"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"
)

// execWithRecovery runs fn and converts a panic into a *FaultError so that a
// misbehaving handler fails its own request or message instead of the server.
func execWithRecovery(fn func() error) (err error) {
	defer func() {
		if maybeErr := recover(); maybeErr != nil {
			err = &FaultError{
				Err:   panicError(maybeErr),
				Stack: trimmedStack(),
			}
		}
	}()
	return fn()
}

// supervise runs fn on its own goroutine. Nothing waits on the goroutine's
// outcome, so a panic escaping fn is treated as fatal.
func (s *Server) supervise(stage string, fn func()) {
	go func() {
		defer s.guard(stage)
		fn()
	}()
}

// guard must be deferred directly. It recovers a panic that escaped every
// per request and per message recovery, logs it, then hands it to the fatal
// handler, which terminates the process unless replaced with
// WithFatalHandler.
func (s *Server) guard(stage string) {
	maybeErr := recover()
	if maybeErr == nil {
		return
	}
	err := &FaultError{
		Err:   panicError(maybeErr),
		Stack: trimmedStack(),
	}
	s.metrics.fault(stage)
	s.logger.Error("fault escaped isolation boundary",
		zap.String("stage", stage),
		zap.Error(err.Err),
		zap.String("stack", err.Stack),
	)
	s.fatal(err)
}

func panicError(maybeErr any) error {
	if err, ok := maybeErr.(error); ok {
		return err
	}
	return fmt.Errorf("%v", maybeErr)
}

// trimmedStack drops the frames belonging to debug.Stack and the recovering
// function.
func trimmedStack() string {
	stack := string(debug.Stack())
	stackLines := strings.Split(stack, "\n")
	if len(stackLines) <= 7 {
		return stack
	}
	return strings.Join(stackLines[7:], "\n")
}
