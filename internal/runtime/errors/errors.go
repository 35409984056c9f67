package errors

import (
	sterrors "errors"
	"fmt"
)

var (
	ErrConfigRequired   = sterrors.New("wmcaflow: config is required")
	ErrLoggerRequired   = sterrors.New("wmcaflow: logger is required")
	ErrNilEvent         = sterrors.New("wmcaflow: event carries no data")
	ErrSizeMismatch     = sterrors.New("wmcaflow: record shorter than layout")
	ErrFieldOverflow    = sterrors.New("wmcaflow: field value exceeds declared width")
	ErrRequestRejected  = sterrors.New("wmcaflow: native transport rejected the request")
	ErrNotConnected     = sterrors.New("wmcaflow: not connected")
	ErrTimeout          = sterrors.New("wmcaflow: timed out waiting for reply")
	ErrEmptyReply       = sterrors.New("wmcaflow: completion arrived with no data blocks")
	ErrHashFailure      = sterrors.New("wmcaflow: account password hashing failed")
	ErrPumpStopped      = sterrors.New("wmcaflow: event pump is stopped")
	ErrDisconnected     = sterrors.New("wmcaflow: connection lost")
	ErrUnknownTransport = sterrors.New("wmcaflow: unknown native transport")
)

// StatusError carries the server status message that accompanied a failed
// request. Code "00000" is the server's success code and never produces a
// StatusError.
type StatusError struct {
	Code string
	Text string
}

func (e *StatusError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("wmcaflow: server status %s", e.Code)
	}
	return fmt.Sprintf("wmcaflow: server status %s: %s", e.Code, e.Text)
}
