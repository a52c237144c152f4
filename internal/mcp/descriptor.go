package mcp

import (
	"fmt"
	"sort"
	"strings"
)

// Descriptor is the immutable metadata advertised by a server for one tool:
// name, human description, and the JSON Schema of its input parameters.
// The schema is used only to render argument hints for the model prompt;
// argument validation is the providing server's responsibility.
type Descriptor struct {
	// Name is the tool's unique identifier within a catalogue.
	Name string

	// Description explains what the tool does (included in the system prompt).
	Description string

	// InputSchema is the JSON Schema describing the tool's parameters.
	// May be nil for parameter-less tools.
	InputSchema map[string]any
}

// FormatForPrompt renders the descriptor as a block of text for inclusion in
// the model's system prompt: the tool name, its description, and one line per
// argument with its schema description and a "(required)" marker.
func (d Descriptor) FormatForPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tool: %s\n", d.Name)
	fmt.Fprintf(&b, "Description: %s\n", d.Description)
	b.WriteString("Arguments:\n")
	for _, line := range d.argumentHints() {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// argumentHints builds one hint line per schema property, sorted by property
// name so the prompt is stable across runs (JSON object key order is not).
func (d Descriptor) argumentHints() []string {
	props, ok := d.InputSchema["properties"].(map[string]any)
	if !ok {
		return nil
	}

	required := map[string]bool{}
	if reqList, ok := d.InputSchema["required"].([]any); ok {
		for _, r := range reqList {
			if name, ok := r.(string); ok {
				required[name] = true
			}
		}
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	hints := make([]string, 0, len(names))
	for _, name := range names {
		desc := "No description"
		if info, ok := props[name].(map[string]any); ok {
			if s, ok := info["description"].(string); ok && s != "" {
				desc = s
			}
		}
		line := fmt.Sprintf("- %s: %s", name, desc)
		if required[name] {
			line += " (required)"
		}
		hints = append(hints, line)
	}
	return hints
}
