package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by socket sends while no connection is open.
	// Nothing is queued.
	ErrNotConnected = errors.New("gateway: socket not connected")

	// ErrAckTimeout is returned when a command's ack does not arrive in time
	ErrAckTimeout = errors.New("gateway: timed out waiting for ack")

	// ErrConnectionLost fails commands whose connection dropped before the ack
	ErrConnectionLost = errors.New("gateway: connection lost before ack")

	// ErrSocketClosed is returned after Close
	ErrSocketClosed = errors.New("gateway: socket closed")

	// ErrEmptyResult is returned when a create call succeeds without the
	// created record
	ErrEmptyResult = errors.New("gateway: response carried no record")
)

// APIError is a failed REST call: a non-2xx status or success=false
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

// IsAPIError reports whether err carries an *APIError
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// CommandError is a command the engine acknowledged with ok=false
type CommandError struct {
	Command string
	Reason  string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("gateway: %s rejected: %s", e.Command, e.Reason)
}
