package assistant

import (
	"strings"

	"github.com/KhushalM/MTA-Routing/internal/mcp"
)

// BuildSystemPrompt renders the system instructions for a session: the
// formatted catalogue of available tools followed by the fixed calling
// convention the model must use to invoke one.
//
// The calling convention requires the model to reply with exactly one JSON
// object carrying "tool" and "arguments" keys and nothing else; any other
// reply is treated as a direct answer. See [parseToolCall] for the matching
// detection logic.
func BuildSystemPrompt(tools []mcp.Descriptor) string {
	blocks := make([]string, 0, len(tools))
	for _, t := range tools {
		blocks = append(blocks, t.FormatForPrompt())
	}

	var b strings.Builder
	b.WriteString("You are a helpful assistant with access to these tools:\n\n")
	b.WriteString(strings.Join(blocks, "\n"))
	b.WriteString("\n")
	b.WriteString(`Choose the appropriate tool based on the user's question. If no tool is needed, reply directly.

IMPORTANT: When you need to use a tool, you must ONLY respond with the exact JSON object format below, nothing else:
{
    "tool": "tool-name",
    "arguments": {
        "argument-name": "value"
    }
}

After receiving a tool's response:
1. Transform the raw data into a natural, conversational response
2. Keep responses concise but informative
3. Focus on the most relevant information
4. Use appropriate context from the user's question
5. Avoid simply repeating the raw data
6. Never fabricate information beyond what the tool returned

Please use only the tools that are explicitly defined above.`)

	return b.String()
}
