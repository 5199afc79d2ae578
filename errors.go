package dromos

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned by dispatch when no binding matches a segment,
	// neither for the verb nor for any. It becomes a 404 on both transports.
	ErrNotFound = errors.New("not found")

	// ErrContractViolation is returned when a handler returns a result that
	// the transport cannot use, such as a plain value for a websocket upgrade
	// or a message handler for a plain HTTP request.
	ErrContractViolation = errors.New("handler result does not match transport")

	// ErrNilRouter is returned when a handler delegates to a nil router.
	ErrNilRouter = errors.New("handler delegated to a nil router")

	// ErrInvalidCloseStatus is returned by Outbound.CloseWithStatus for a
	// status that cannot be sent in a close frame. The session stays open.
	ErrInvalidCloseStatus = errors.New("close status cannot be sent")
)

// HTTPError lets a handler choose the HTTP status of an error response. The
// body sent is {"error": Message}.
type HTTPError struct {
	Status  int
	Message string
}

// NewHTTPError creates an HTTPError. If message is empty the status text is
// used.
func NewHTTPError(status int, message string) *HTTPError {
	if message == "" {
		message = http.StatusText(status)
	}
	return &HTTPError{Status: status, Message: message}
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

// FaultError wraps a panic recovered while running a handler. Stack holds the
// goroutine stack at the point of the panic.
type FaultError struct {
	Err   error
	Stack string
}

func (e *FaultError) Error() string {
	return "handler panicked: " + e.Err.Error()
}

func (e *FaultError) Unwrap() error {
	return e.Err
}

// errorStatus maps a dispatch error to the HTTP status used for the response
// or the upgrade rejection.
func errorStatus(err error) int {
	var httpErr *HTTPError
	var validationErr ValidationError
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &httpErr):
		return httpErr.Status
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorBody converts an error into the value serialized as its JSON body.
func errorBody(err error) any {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return Error(httpErr.Message)
	}
	var validationErr ValidationError
	if errors.As(err, &validationErr) {
		return validationErr
	}
	return Error(err.Error())
}
