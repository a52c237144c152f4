package assistant

import (
	"sync"

	"github.com/KhushalM/MTA-Routing/internal/mcp"
)

// Formatter converts one tool's raw result into the text folded back into
// the conversation as a system message. Formatters should produce something
// the model can read naturally; raw JSON dumps work but summaries read better.
type Formatter func(result *mcp.CallResult) string

// defaultFormatter stringifies the raw result.
func defaultFormatter(result *mcp.CallResult) string {
	return "Tool execution result: " + result.Content
}

// FormatterRegistry resolves the [Formatter] for a tool name, falling back
// to [defaultFormatter] for tools without a registered entry. Safe for
// concurrent use.
type FormatterRegistry struct {
	mu     sync.RWMutex
	byTool map[string]Formatter
}

// NewFormatterRegistry creates an empty registry.
func NewFormatterRegistry() *FormatterRegistry {
	return &FormatterRegistry{byTool: make(map[string]Formatter)}
}

// Register installs f as the formatter for the named tool, replacing any
// previous entry. A nil f removes the entry.
func (r *FormatterRegistry) Register(tool string, f Formatter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f == nil {
		delete(r.byTool, tool)
		return
	}
	r.byTool[tool] = f
}

// Format renders result using the tool's registered formatter, or the
// default one when none is registered.
func (r *FormatterRegistry) Format(tool string, result *mcp.CallResult) string {
	r.mu.RLock()
	f, ok := r.byTool[tool]
	r.mu.RUnlock()

	if !ok {
		return defaultFormatter(result)
	}
	return f(result)
}
