package remote

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrRemoteCommand matches every *CommandError.
var ErrRemoteCommand = errors.New("remote command failed")

// ErrSessionRequired means a session-bound command was sent without a session.
var ErrSessionRequired = errors.New("automation session is not established")

// ValidationError describes a user-supplied invalid value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "validation error"
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CommandError is a failure reported by the automation server for one command.
type CommandError struct {
	Command    Command
	HTTPStatus int
	// Code is the W3C error code, for example "no such element" or "unknown error".
	Code       string
	Message    string
	Stacktrace string
}

func (e *CommandError) Error() string {
	if e == nil {
		return "remote command failed"
	}
	var b strings.Builder
	b.WriteString(e.Command.String())
	b.WriteString(" failed")
	if e.HTTPStatus > 0 {
		fmt.Fprintf(&b, " (status %d)", e.HTTPStatus)
	}
	if e.Code != "" {
		b.WriteString(": ")
		b.WriteString(e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *CommandError) Is(target error) bool {
	return target == ErrRemoteCommand
}

// TransportError wraps a failure that happened before a reply was received.
type TransportError struct {
	Command  Command
	Endpoint string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	if e == nil {
		return "transport failed"
	}
	if e.Attempts > 1 {
		return fmt.Sprintf("%s via %s failed after %d attempts: %v", e.Command, e.Endpoint, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s via %s failed: %v", e.Command, e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrRemoteCommand
}

// isRetryableError reports failures where the request never reached the server,
// so repeating it cannot apply a command twice.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return false
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}
