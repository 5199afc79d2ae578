package dromos

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// handleHTTP dispatches a plain HTTP request and writes the outcome as JSON.
// Whatever happens, the deferred finish step runs exactly once.
func (s *Server) handleHTTP(res http.ResponseWriter, req *http.Request, pass *passthrough) {
	start := time.Now()
	status := http.StatusOK
	outcome := outcomeOK
	defer func() {
		s.finishHTTP(req, status, outcome, start)
	}()

	var body any
	result, err := s.dispatchHTTP(req)
	if err == nil && result.kind != ValueResult {
		err = fmt.Errorf("%w: %s result for %s request", ErrContractViolation, result.kind, req.Method)
	}

	switch {
	case err == nil:
		body = result.body

	case errors.Is(err, ErrNotFound) && pass != nil:
		outcome = outcomeNotFound
		status = 0
		pass.next()
		return

	default:
		outcome = errorOutcome(err)
		status = errorStatus(err)
		body = errorBody(err)
		s.logDispatchError(req.Method, req.URL.Path, status, err)
	}

	if pass != nil {
		pass.inhibit()
	}
	status = writeJSON(res, status, body)
}

func (s *Server) dispatchHTTP(req *http.Request) (Result, error) {
	payload, err := readPayload(req, s.bodyLimit)
	if err != nil {
		return Result{}, err
	}
	return dispatch(s.root, &dispatchRequest{
		ctx:        req.Context(),
		verb:       strings.ToLower(req.Method),
		path:       req.URL.Path,
		headers:    req.Header,
		remoteAddr: req.RemoteAddr,
		payload:    payload,
	})
}

func (s *Server) finishHTTP(req *http.Request, status int, outcome string, start time.Time) {
	s.metrics.httpFinished(outcome, start)
	s.logger.Debug("request finished",
		zap.String("verb", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", status),
		zap.String("outcome", outcome),
		zap.Duration("duration", time.Since(start)),
	)
}

func (s *Server) logDispatchError(verb, path string, status int, err error) {
	if status < http.StatusInternalServerError {
		s.logger.Debug("request rejected",
			zap.String("verb", verb),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Error(err),
		)
		return
	}

	fields := []zap.Field{
		zap.String("verb", verb),
		zap.String("path", path),
		zap.Int("status", status),
		zap.Error(err),
	}
	var faultErr *FaultError
	if errors.As(err, &faultErr) {
		fields = append(fields, zap.String("stack", faultErr.Stack))
	}
	s.logger.Error("handler failed", fields...)
}

func errorOutcome(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return outcomeNotFound
	case errors.Is(err, ErrContractViolation):
		return outcomeContractViolation
	default:
		return outcomeError
	}
}

// writeJSON encodes body and writes it with status. If body cannot be encoded
// a 500 with the encoding error is written instead. The status actually
// written is returned.
func writeJSON(res http.ResponseWriter, status int, body any) int {
	bodyBytes, err := json.Marshal(shapeBody(body))
	if err != nil {
		status = http.StatusInternalServerError
		bodyBytes, _ = json.Marshal(shapeBody(Error("failed to encode response: " + err.Error())))
	}

	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(status)
	_, _ = res.Write(bodyBytes)
	return status
}

// marshalError serializes err the way it is sent in a response body, for use
// as a rejection body.
func marshalError(err error) []byte {
	errorBytes, marshalErr := json.Marshal(shapeBody(errorBody(err)))
	if marshalErr != nil {
		errorBytes, _ = json.Marshal(M{"error": err.Error()})
	}
	return errorBytes
}
