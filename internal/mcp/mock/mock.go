// Package mock provides a test double for the mcp.Connection interface.
//
// Use Connection in unit tests to stand in for a live MCP server: set the
// response fields to script outcomes and read the call records afterwards.
// All fields are safe to set before calling any method; mutating them during
// a concurrent call is the caller's responsibility.
//
// Example:
//
//	conn := &mock.Connection{
//	    ServerName: "mta",
//	    ToolList:   []mcp.Descriptor{{Name: "plan_subway_trip"}},
//	    CallResult: &mcp.CallResult{Content: `{"route":"Q"}`},
//	}
package mock

import (
	"context"
	"sync"

	"github.com/KhushalM/MTA-Routing/internal/mcp"
)

// CallRecord records a single invocation of Call.
type CallRecord struct {
	// Tool is the tool name passed to Call.
	Tool string
	// Args is the argument map passed to Call.
	Args map[string]any
}

// Connection is a mock implementation of mcp.Connection.
// Zero values for response fields cause methods to return zero values and nil
// errors. Set Err fields to inject errors.
type Connection struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// ServerName is returned by Name.
	ServerName string

	// InitErr, if non-nil, is returned by Initialize.
	InitErr error

	// ToolList is returned by Tools.
	ToolList []mcp.Descriptor

	// ToolsErr, if non-nil, is returned by Tools.
	ToolsErr error

	// CallResult is returned by Call. May be nil (returns nil, nil).
	CallResult *mcp.CallResult

	// CallErr, if non-nil, is returned by Call.
	CallErr error

	// CallFunc, if non-nil, is invoked by Call instead of returning
	// CallResult/CallErr. Useful for per-call scripting.
	CallFunc func(ctx context.Context, tool string, args map[string]any) (*mcp.CallResult, error)

	// CleanupErr, if non-nil, is returned by Cleanup.
	CleanupErr error

	// --- Call records (read after test) ---

	// InitCalls is the number of times Initialize was called.
	InitCalls int

	// ToolsCalls is the number of times Tools was called.
	ToolsCalls int

	// Calls records every invocation of Call in order.
	Calls []CallRecord

	// CleanupCalls is the number of times Cleanup was called.
	CleanupCalls int
}

// Name returns ServerName.
func (c *Connection) Name() string { return c.ServerName }

// Initialize records the call and returns InitErr.
func (c *Connection) Initialize(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.InitCalls++
	return c.InitErr
}

// Tools records the call and returns ToolList, ToolsErr.
func (c *Connection) Tools(_ context.Context) ([]mcp.Descriptor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ToolsCalls++
	if c.ToolsErr != nil {
		return nil, c.ToolsErr
	}
	tools := make([]mcp.Descriptor, len(c.ToolList))
	copy(tools, c.ToolList)
	return tools, nil
}

// Call records the invocation and returns the scripted outcome.
func (c *Connection) Call(ctx context.Context, tool string, args map[string]any) (*mcp.CallResult, error) {
	c.mu.Lock()
	c.Calls = append(c.Calls, CallRecord{Tool: tool, Args: args})
	fn := c.CallFunc
	res, err := c.CallResult, c.CallErr
	c.mu.Unlock()

	if fn != nil {
		return fn(ctx, tool, args)
	}
	return res, err
}

// Cleanup records the call and returns CleanupErr.
func (c *Connection) Cleanup() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CleanupCalls++
	return c.CleanupErr
}

// Reset clears all recorded calls. Thread-safe.
func (c *Connection) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.InitCalls = 0
	c.ToolsCalls = 0
	c.Calls = nil
	c.CleanupCalls = 0
}

// Ensure Connection implements mcp.Connection at compile time.
var _ mcp.Connection = (*Connection)(nil)
