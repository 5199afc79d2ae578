package dromos

import (
	"errors"
	"strings"

	"github.com/coder/websocket"
)

// Status represents a WebSocket close status code as defined in RFC 6455. Use
// these codes with Outbound.CloseWithStatus, or receive them in
// MessageHandler.Closed.
type Status = websocket.StatusCode

// WebSocket close status codes
const (
	StatusNormalClosure           Status = websocket.StatusNormalClosure           // 1000
	StatusGoingAway               Status = websocket.StatusGoingAway               // 1001
	StatusProtocolError           Status = websocket.StatusProtocolError           // 1002
	StatusUnsupportedData         Status = websocket.StatusUnsupportedData         // 1003
	StatusNoStatusRcvd            Status = websocket.StatusNoStatusRcvd            // 1005
	StatusAbnormalClosure         Status = websocket.StatusAbnormalClosure         // 1006
	StatusInvalidFramePayloadData Status = websocket.StatusInvalidFramePayloadData // 1007
	StatusPolicyViolation         Status = websocket.StatusPolicyViolation         // 1008
	StatusMessageTooBig           Status = websocket.StatusMessageTooBig           // 1009
	StatusMandatoryExtension      Status = websocket.StatusMandatoryExtension      // 1010
	StatusInternalError           Status = websocket.StatusInternalError           // 1011
	StatusServiceRestart          Status = websocket.StatusServiceRestart          // 1012
	StatusTryAgainLater           Status = websocket.StatusTryAgainLater           // 1013
	StatusBadGateway              Status = websocket.StatusBadGateway              // 1014
	StatusTLSHandshake            Status = websocket.StatusTLSHandshake            // 1015
)

// CloseError is the error a SocketConnection's Read returns when the peer
// sent a close frame.
type CloseError = websocket.CloseError

// maxCloseReasonLength is the largest close reason RFC 6455 allows in a close
// frame (125 byte control payload minus the 2 byte status code).
const maxCloseReasonLength = 123

// CloseStatus extracts the status code and reason from an error returned by a
// SocketConnection's Read. If the error does not carry a close frame,
// StatusAbnormalClosure and an empty reason are returned.
func CloseStatus(err error) (Status, string) {
	var closeErr CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Code, closeErr.Reason
	}
	return StatusAbnormalClosure, ""
}

// IsSendableStatus reports whether status may be sent in a close frame.
// RFC 6455 reserves 1004-1006 and 1015 for reporting, and codes below 1000,
// between 1016 and 2999, or above 4999 are not defined.
func IsSendableStatus(status Status) bool {
	switch {
	case status >= 1000 && status <= 1003:
		return true
	case status >= 1007 && status <= 1014:
		return true
	case status >= 3000 && status <= 4999:
		return true
	default:
		return false
	}
}

func truncateCloseReason(reason string) string {
	if len(reason) <= maxCloseReasonLength {
		return reason
	}
	return strings.ToValidUTF8(reason[:maxCloseReasonLength], "")
}
