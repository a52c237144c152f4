// Package mcp defines the connection and pooling layer for Model Context
// Protocol (MCP) tool servers.
//
// A [Connection] owns the lifecycle of one tool server: transport
// establishment, tool discovery, call dispatch with retry, and idempotent
// teardown. A [Pool] aggregates several connections, maintains the combined
// tool catalogue, and routes tool calls to the connection that advertises
// the requested tool.
//
// Lifecycle:
//
//  1. Build one [Connection] per configured server.
//  2. Create a [Pool] from the connections and call [Pool.InitializeAll].
//  3. Use [Pool.Catalogue] to enumerate tools and [Pool.Dispatch] to run them.
//  4. Call [Pool.CleanupAll] to release all connections.
//
// All exported types are safe for concurrent use unless noted otherwise.
package mcp

import "context"

// Transport selects the connection mechanism for an MCP server.
type Transport string

const (
	// TransportStdio spawns a subprocess and communicates over stdin/stdout.
	TransportStdio Transport = "stdio"

	// TransportStreamableHTTP communicates via the MCP Streamable HTTP protocol.
	TransportStreamableHTTP Transport = "streamable-http"
)

// IsValid reports whether t is a recognised transport.
func (t Transport) IsValid() bool {
	return t == TransportStdio || t == TransportStreamableHTTP
}

// ServerConfig describes how to launch or reach a single MCP server.
// It is supplied externally (typically from the YAML configuration) and is
// treated as opaque launch data by the connection: no executable-existence
// policy is applied here beyond what the transport layer reports.
type ServerConfig struct {
	// Name is the human-readable identifier for this server.
	// Must be unique within a single [Pool]. Used in log messages and errors.
	Name string

	// Transport specifies the connection mechanism.
	Transport Transport

	// Command is the executable path used when Transport is "stdio".
	// Ignored for streamable-http transport.
	Command string

	// Args are additional command-line arguments passed to Command.
	Args []string

	// URL is the endpoint address used when Transport is "streamable-http".
	// Ignored for stdio transport.
	URL string

	// Env holds additional environment variables injected into the server
	// process when Transport is "stdio". May be nil.
	Env map[string]string
}

// CallResult holds the outcome of a single tool execution as a tagged value:
// either a success payload or an application-level failure, never both.
type CallResult struct {
	// Content is the tool's textual output, typically a JSON string or
	// human-readable text ready for insertion into an LLM context window.
	Content string

	// IsError indicates that the tool returned an application-level error
	// (as opposed to a transport or protocol failure returned via the Go error
	// return value). When IsError is true, Content contains the error message.
	IsError bool

	// DurationMs is the wall-clock time in milliseconds from when the request
	// was dispatched until the full response was received.
	DurationMs int64
}

// Connection owns one MCP server session.
//
// Implementations must be safe for concurrent use. A connection may be
// re-initialized after Cleanup; the [Pool] relies on this when a session
// facade is torn down and later rebuilt.
type Connection interface {
	// Name returns the server's configured identifier.
	Name() string

	// Initialize establishes the transport and performs the MCP handshake.
	// On failure it releases any partially-acquired resources before
	// returning a [*ConnectionError].
	Initialize(ctx context.Context) error

	// Tools queries the live session for its tool catalogue, in the order the
	// server advertises them. Returns [ErrNotInitialized] (wrapped) if called
	// before a successful Initialize.
	Tools(ctx context.Context) ([]Descriptor, error)

	// Call executes the named tool with the given arguments, retrying failed
	// attempts per the connection's retry policy. A non-nil *CallResult with
	// IsError set represents a tool-reported failure; a Go error is returned
	// only for transport/protocol failures after all attempts are exhausted
	// (as a [*ToolExecutionError]) or ordering mistakes ([ErrNotInitialized]).
	Call(ctx context.Context, tool string, args map[string]any) (*CallResult, error)

	// Cleanup releases the session and transport. It is idempotent: the first
	// call tears down, later calls are no-ops. Safe to call even when
	// Initialize never succeeded.
	Cleanup() error
}
