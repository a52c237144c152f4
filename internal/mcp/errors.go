package mcp

import (
	"errors"
	"fmt"
)

// ErrNotInitialized is returned when Tools or Call is used before a
// successful Initialize. It signals an ordering mistake in the caller, not a
// transient condition, and is never retried.
var ErrNotInitialized = errors.New("connection not initialized")

// ConnectionError reports a transport or handshake failure while
// initializing a connection. Handshake failures are not assumed transient,
// so Initialize does not retry.
type ConnectionError struct {
	// Server is the configured name of the failing server.
	Server string

	// Err is the underlying transport/protocol error.
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("mcp: server %q: connect: %v", e.Server, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// UnknownToolError reports a dispatch request for a tool no live connection
// advertises. This is an expected outcome (the model may hallucinate a tool
// name) and is meant to be folded back into the conversation rather than
// treated as fatal.
type UnknownToolError struct {
	// Tool is the requested tool name.
	Tool string

	// Suggestion is the closest-matching catalogue entry, or "" when nothing
	// in the catalogue resembles the requested name.
	Suggestion string
}

func (e *UnknownToolError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("mcp: no server advertises tool %q (closest match: %q)", e.Tool, e.Suggestion)
	}
	return fmt.Sprintf("mcp: no server advertises tool %q", e.Tool)
}

// ToolExecutionError reports that a tool call failed on every attempt of the
// connection's retry policy. Like [UnknownToolError] it is recoverable: the
// conversation engine folds it into the history so the model can adapt.
type ToolExecutionError struct {
	// Tool is the tool that was called.
	Tool string

	// Server is the connection that owned the call.
	Server string

	// Attempts is the total number of attempts made before giving up.
	Attempts int

	// Err is the error from the final attempt.
	Err error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("mcp: tool %q on server %q failed after %d attempts: %v",
		e.Tool, e.Server, e.Attempts, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }
