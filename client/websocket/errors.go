package websocket

import (
	"fmt"
)

// ExitReason tells why Session.Run has returned. Each reason is distinct:
// clean terminations (cancellation, idle timeout, remote close) come with a
// nil error, the others with an error of the matching type.
type ExitReason int

const (
	// ExitCancelled means the context given to Run was cancelled, or the
	// session was closed by the caller.
	ExitCancelled ExitReason = iota

	// ExitIdleTimeout means nothing was received for longer than
	// SessionParams.IdleTimeout, and the session closed the connection.
	ExitIdleTimeout

	// ExitRemoteClose means the server sent a close frame.
	ExitRemoteClose

	// ExitTransportError means the connection failed; the error is a
	// *TransportError.
	ExitTransportError

	// ExitDecodeError means a data frame could not be decoded into the
	// session's event type; the error is a *DecodeError.
	ExitDecodeError

	// ExitHandlerError means the handler returned an error, which Run returns
	// unchanged.
	ExitHandlerError

	// ExitNotStarted means the loop didn't run at all: the session wasn't
	// connected, or another Run was already active. The error tells which.
	ExitNotStarted

	// exitNone is used internally for "keep looping".
	exitNone ExitReason = -1
)

// ExitReasonNames contains human-readable names for exit reasons.
var ExitReasonNames = map[ExitReason]string{
	ExitCancelled:      "cancelled",
	ExitIdleTimeout:    "idle-timeout",
	ExitRemoteClose:    "remote-close",
	ExitTransportError: "transport-error",
	ExitDecodeError:    "decode-error",
	ExitHandlerError:   "handler-error",
	ExitNotStarted:     "not-started",
}

func (r ExitReason) String() string {
	if name, ok := ExitReasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("exit(%d)", int(r))
}

// IsClean returns whether the reason is a successful termination.
func (r ExitReason) IsClean() bool {
	return r == ExitCancelled || r == ExitIdleTimeout || r == ExitRemoteClose
}

// ConnectError is returned by Session.Connect when the websocket connection
// could not be established: network failure, TLS failure or a rejected
// handshake. Connect never retries.
type ConnectError struct {
	URL string
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connecting to %s: %s", e.URL, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// TransportError means that reading from or writing to an established
// connection has failed. Op is "receive" or "send".
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %s", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError means a data frame didn't match the session's event type.
// Data is the offending frame.
type DecodeError struct {
	Data []byte
	Err  error
}

func (e *DecodeError) Error() string {
	const maxShown = 256

	data := e.Data
	suffix := ""
	if len(data) > maxShown {
		data = data[:maxShown]
		suffix = "..."
	}

	return fmt.Sprintf("decoding %q%s: %s", data, suffix, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
