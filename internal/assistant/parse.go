package assistant

import (
	"encoding/json"
	"strings"
)

// ToolCall is the parsed intent extracted from a model reply that requests a
// tool invocation. It lives for one turn only; the history records the
// literal assistant text it was parsed from.
type ToolCall struct {
	// Name is the requested tool name.
	Name string

	// Args is the argument object to forward to the tool.
	Args map[string]any
}

// normalizeReply cleans up a raw model reply before parsing: it strips a
// leading "AI:" role prefix and surrounding Markdown code fences, both of
// which models emit despite instructions to reply with bare JSON.
func normalizeReply(reply string) string {
	out := strings.TrimSpace(reply)

	if rest, ok := strings.CutPrefix(out, "AI:"); ok {
		out = strings.TrimSpace(rest)
	}

	if strings.HasPrefix(out, "```") {
		out = strings.TrimPrefix(out, "```json")
		out = strings.TrimPrefix(out, "```")
		out = strings.TrimSuffix(strings.TrimSpace(out), "```")
		out = strings.TrimSpace(out)
	}

	return out
}

// parseToolCall decides between the two possible meanings of a model reply.
// It returns (call, true) when the entire reply is a single JSON object
// carrying both a "tool" and an "arguments" key, and (zero, false) for
// anything else, which the engine treats as a direct answer.
//
// The whole-reply requirement is deliberate: JSON embedded in prose is a
// direct answer, not a tool call.
func parseToolCall(reply string) (ToolCall, bool) {
	var probe struct {
		Tool      *string         `json:"tool"`
		Arguments *map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal([]byte(reply), &probe); err != nil {
		return ToolCall{}, false
	}
	if probe.Tool == nil || probe.Arguments == nil {
		return ToolCall{}, false
	}
	return ToolCall{Name: *probe.Tool, Args: *probe.Arguments}, true
}
