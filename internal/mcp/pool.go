package mcp

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/antzucaro/matchr"
	"golang.org/x/sync/errgroup"
)

// suggestionThreshold is the minimum Jaro-Winkler similarity for an unknown
// tool name to be answered with a "closest match" suggestion.
const suggestionThreshold = 0.8

// Pool aggregates a fixed, ordered set of [Connection] values, maintains the
// combined tool catalogue, and routes tool calls to the owning connection.
//
// Initialization is partial-failure tolerant: a connection that fails to
// initialize is logged and excluded from the catalogue without aborting the
// others. The catalogue mapping is rebuilt wholesale on every
// [Pool.InitializeAll], never mutated incrementally.
type Pool struct {
	conns []Connection

	mu        sync.RWMutex
	catalogue []Descriptor
	owners    map[string]Connection // key: tool name
}

// NewPool creates a Pool over the given connections. The order of conns is
// the registration order used for catalogue aggregation and collision
// resolution. The connections are not initialized until [Pool.InitializeAll].
func NewPool(conns ...Connection) *Pool {
	return &Pool{
		conns:  conns,
		owners: make(map[string]Connection),
	}
}

// InitializeAll initializes every connection and rebuilds the tool catalogue
// from the ones that succeed. A failed initialize or tool listing is logged
// and that connection is excluded; the remaining connections still come up.
//
// When two connections advertise the same tool name, the first-registered
// connection keeps it and the collision is logged so operators notice the
// shadowing.
func (p *Pool) InitializeAll(ctx context.Context) {
	catalogue := make([]Descriptor, 0)
	owners := make(map[string]Connection)

	for _, conn := range p.conns {
		if err := conn.Initialize(ctx); err != nil {
			slog.Error("failed to initialize MCP server", "server", conn.Name(), "err", err)
			continue
		}

		tools, err := conn.Tools(ctx)
		if err != nil {
			slog.Error("failed to list tools from MCP server", "server", conn.Name(), "err", err)
			continue
		}

		for _, tool := range tools {
			if prev, ok := owners[tool.Name]; ok {
				slog.Warn("duplicate tool name, first-registered server wins",
					"tool", tool.Name,
					"server", conn.Name(),
					"shadowed_by", prev.Name(),
				)
				continue
			}
			owners[tool.Name] = conn
			catalogue = append(catalogue, tool)
		}

		slog.Info("initialized MCP server", "server", conn.Name(), "tools", len(tools))
	}

	p.mu.Lock()
	p.catalogue = catalogue
	p.owners = owners
	p.mu.Unlock()
}

// Catalogue returns the aggregated tool descriptors in connection-registration
// order, then per-connection discovery order. The returned slice is a copy.
func (p *Pool) Catalogue() []Descriptor {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Descriptor, len(p.catalogue))
	copy(out, p.catalogue)
	return out
}

// Dispatch routes a tool call to the connection that advertises the named
// tool. Returns a [*UnknownToolError] (with a closest-match suggestion when
// one exists) if no live connection owns the name.
func (p *Pool) Dispatch(ctx context.Context, tool string, args map[string]any) (*CallResult, error) {
	p.mu.RLock()
	conn, ok := p.owners[tool]
	p.mu.RUnlock()

	if !ok {
		return nil, &UnknownToolError{Tool: tool, Suggestion: p.closestTool(tool)}
	}
	return conn.Call(ctx, tool, args)
}

// CleanupAll requests cleanup of every connection concurrently and waits for
// all of them to settle. Individual cleanup errors are logged and swallowed.
func (p *Pool) CleanupAll(ctx context.Context) {
	g, _ := errgroup.WithContext(ctx)
	for _, conn := range p.conns {
		g.Go(func() error {
			if err := conn.Cleanup(); err != nil {
				slog.Warn("error during MCP server cleanup", "server", conn.Name(), "err", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	p.mu.Lock()
	p.catalogue = nil
	p.owners = make(map[string]Connection)
	p.mu.Unlock()
}

// closestTool returns the catalogue entry most similar to name, or "" when
// no entry clears [suggestionThreshold].
func (p *Pool) closestTool(name string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	best := ""
	bestScore := suggestionThreshold
	for _, d := range p.catalogue {
		score := matchr.JaroWinkler(strings.ToLower(name), strings.ToLower(d.Name), false)
		if score >= bestScore {
			best = d.Name
			bestScore = score
		}
	}
	return best
}
