// Package client provides the concrete [mcp.Connection] implementation over
// the official MCP Go SDK (github.com/modelcontextprotocol/go-sdk).
//
// A [Connection] talks to one MCP server via a stdio subprocess or the MCP
// Streamable HTTP protocol, retries failed tool calls with a fixed delay, and
// tears its session down idempotently. Connections may be re-initialized
// after cleanup, which the session facade relies on when rebuilding.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/KhushalM/MTA-Routing/internal/mcp"
	"github.com/KhushalM/MTA-Routing/internal/observe"
)

// Retry policy defaults. Tool servers are local subprocesses whose failures
// are usually transient restarts, not backpressure, so the inter-attempt
// delay is fixed rather than exponential.
const (
	defaultRetries     = 2
	defaultRetryDelay  = time.Second
	defaultCallTimeout = 30 * time.Second
)

// session is the subset of [mcpsdk.ClientSession] the connection uses.
// Narrowed to an interface so tests can substitute a scripted session.
type session interface {
	Tools(ctx context.Context, params *mcpsdk.ListToolsParams) iter.Seq2[*mcpsdk.Tool, error]
	CallTool(ctx context.Context, params *mcpsdk.CallToolParams) (*mcpsdk.CallToolResult, error)
	Close() error
}

// Connection is a concrete [mcp.Connection] backed by the official MCP SDK.
//
// The zero value is not usable; create instances with [New].
type Connection struct {
	cfg         mcp.ServerConfig
	retries     int
	retryDelay  time.Duration
	callTimeout time.Duration
	client      *mcpsdk.Client
	metrics     *observe.Metrics

	// mu guards sess. It doubles as the exclusive cleanup lock: concurrent or
	// repeated Cleanup calls serialize on it and find sess already nil.
	mu   sync.RWMutex
	sess session
}

// Compile-time check: Connection must implement mcp.Connection.
var _ mcp.Connection = (*Connection)(nil)

// Option configures a [Connection].
type Option func(*Connection)

// WithRetries sets the number of retry attempts after a failed tool call.
// n < 0 is treated as 0. The total attempt count is n+1.
func WithRetries(n int) Option {
	return func(c *Connection) {
		if n < 0 {
			n = 0
		}
		c.retries = n
	}
}

// WithRetryDelay sets the fixed delay between tool-call attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Connection) {
		if d > 0 {
			c.retryDelay = d
		}
	}
}

// WithCallTimeout sets the per-attempt timeout for tool calls.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Connection) {
		if d > 0 {
			c.callTimeout = d
		}
	}
}

// WithMetrics overrides the metrics instance, for tests.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Connection) { c.metrics = m }
}

// New creates a Connection for the server described by cfg. The server is not
// contacted until [Connection.Initialize].
func New(cfg mcp.ServerConfig, opts ...Option) (*Connection, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("mcp client: server config must have a non-empty name")
	}
	if !cfg.Transport.IsValid() {
		return nil, fmt.Errorf("mcp client: unknown transport %q for server %q", cfg.Transport, cfg.Name)
	}
	if cfg.Transport == mcp.TransportStdio && cfg.Command == "" {
		return nil, fmt.Errorf("mcp client: stdio server %q requires a non-empty command", cfg.Name)
	}
	if cfg.Transport == mcp.TransportStreamableHTTP && cfg.URL == "" {
		return nil, fmt.Errorf("mcp client: streamable-http server %q requires a non-empty url", cfg.Name)
	}

	c := &Connection{
		cfg:         cfg,
		retries:     defaultRetries,
		retryDelay:  defaultRetryDelay,
		callTimeout: defaultCallTimeout,
		client: mcpsdk.NewClient(
			&mcpsdk.Implementation{Name: "mta-assistant", Version: "1.0.0"},
			nil,
		),
	}
	for _, o := range opts {
		o(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c, nil
}

// Name returns the server's configured identifier.
func (c *Connection) Name() string { return c.cfg.Name }

// Initialize establishes the transport and performs the MCP handshake. On
// failure it runs Cleanup before returning so no partially-acquired resource
// dangles, and wraps the cause in a [*mcp.ConnectionError].
func (c *Connection) Initialize(ctx context.Context) error {
	var transport mcpsdk.Transport

	switch c.cfg.Transport {
	case mcp.TransportStdio:
		cmd := exec.CommandContext(ctx, c.cfg.Command, c.cfg.Args...)
		cmd.Env = os.Environ()
		for k, v := range c.cfg.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
		transport = &mcpsdk.CommandTransport{Command: cmd}

	case mcp.TransportStreamableHTTP:
		transport = &mcpsdk.StreamableClientTransport{Endpoint: c.cfg.URL}
	}

	sess, err := c.client.Connect(ctx, transport, nil)
	if err != nil {
		_ = c.Cleanup()
		return &mcp.ConnectionError{Server: c.cfg.Name, Err: err}
	}

	c.mu.Lock()
	c.sess = sess
	c.mu.Unlock()

	slog.Info("MCP server connected", "server", c.cfg.Name, "transport", c.cfg.Transport)
	return nil
}

// Tools queries the live session for its tool catalogue.
func (c *Connection) Tools(ctx context.Context) ([]mcp.Descriptor, error) {
	sess := c.session()
	if sess == nil {
		return nil, fmt.Errorf("mcp client: server %q: %w", c.cfg.Name, mcp.ErrNotInitialized)
	}

	var tools []mcp.Descriptor
	for tool, err := range sess.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("mcp client: list tools for server %q: %w", c.cfg.Name, err)
		}
		tools = append(tools, mcp.Descriptor{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: schemaToMap(tool.InputSchema),
		})
	}

	slog.Debug("discovered tools", "server", c.cfg.Name, "count", len(tools))
	return tools, nil
}

// Call executes the named tool, retrying transport failures with a fixed
// delay: retries+1 attempts in total. Each attempt runs under the per-call
// timeout. A tool-reported error comes back as a CallResult with IsError set
// and is not retried; only transport/protocol failures are.
func (c *Connection) Call(ctx context.Context, tool string, args map[string]any) (*mcp.CallResult, error) {
	sess := c.session()
	if sess == nil {
		return nil, fmt.Errorf("mcp client: server %q: %w", c.cfg.Name, mcp.ErrNotInitialized)
	}

	attempts := c.retries + 1
	start := time.Now()

	var lastErr error
	made := 0
	for attempt := 1; attempt <= attempts; attempt++ {
		made = attempt
		result, err := c.callOnce(ctx, sess, tool, args)
		if err == nil {
			result.DurationMs = time.Since(start).Milliseconds()
			status := "ok"
			if result.IsError {
				status = "tool_error"
			}
			c.metrics.RecordToolCall(ctx, tool, status, time.Since(start))
			slog.Info("tool call finished",
				"server", c.cfg.Name,
				"tool", tool,
				"attempts", attempt,
				"duration_ms", result.DurationMs,
			)
			return result, nil
		}

		lastErr = err
		slog.Warn("tool call attempt failed",
			"server", c.cfg.Name,
			"tool", tool,
			"attempt", attempt,
			"of", attempts,
			"err", err,
		)

		if attempt == attempts {
			break
		}
		c.metrics.RecordToolRetry(ctx, tool, c.cfg.Name)
		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
		case <-time.After(c.retryDelay):
			continue
		}
		break
	}

	c.metrics.RecordToolCall(ctx, tool, "error", time.Since(start))
	return nil, &mcp.ToolExecutionError{
		Tool:     tool,
		Server:   c.cfg.Name,
		Attempts: made,
		Err:      lastErr,
	}
}

// callOnce performs a single CallTool round trip under the per-call timeout.
func (c *Connection) callOnce(ctx context.Context, sess session, tool string, args map[string]any) (*mcp.CallResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	res, err := sess.CallTool(callCtx, &mcpsdk.CallToolParams{
		Name:      tool,
		Arguments: args,
	})
	if err != nil {
		return nil, err
	}

	// Concatenate all text content from the result.
	var sb strings.Builder
	for _, content := range res.Content {
		if tc, ok := content.(*mcpsdk.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}

	return &mcp.CallResult{
		Content: sb.String(),
		IsError: res.IsError,
	}, nil
}

// Cleanup closes the session exactly once. Subsequent calls are no-ops.
func (c *Connection) Cleanup() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess == nil {
		return nil
	}

	err := c.sess.Close()
	c.sess = nil
	if err != nil {
		return fmt.Errorf("mcp client: close server %q: %w", c.cfg.Name, err)
	}
	slog.Info("MCP server cleaned up", "server", c.cfg.Name)
	return nil
}

// session returns the live session, or nil before Initialize / after Cleanup.
func (c *Connection) session() session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess
}

// schemaToMap converts any schema value to a map[string]any via a JSON
// round trip, defaulting to a bare object schema when conversion fails.
func schemaToMap(schema any) map[string]any {
	if schema == nil {
		return map[string]any{"type": "object"}
	}
	if m, ok := schema.(map[string]any); ok {
		return m
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return map[string]any{"type": "object"}
	}
	return m
}
