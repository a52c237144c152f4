// Package llm defines the Provider interface for Large Language Model backends.
//
// An LLM provider wraps a remote or local model API (e.g., OpenAI GPT-4,
// Anthropic Claude, or a local Ollama instance) and exposes a uniform
// completion interface so the conversation engine never couples to any
// specific SDK.
//
// Implementors must be safe for concurrent use and must propagate context
// cancellation promptly.
package llm

import "context"

// Message roles. The conversation engine only ever produces these three;
// providers that distinguish further roles map them internally.
const (
	// RoleSystem marks instructions and tool results injected by the engine.
	RoleSystem = "system"

	// RoleUser marks end-user input.
	RoleUser = "user"

	// RoleAssistant marks model output.
	RoleAssistant = "assistant"
)

// Message is one entry in a conversation transcript.
type Message struct {
	// Role is one of [RoleSystem], [RoleUser], or [RoleAssistant].
	Role string

	// Content is the message text. Tool results are serialized into Content
	// rather than carried as structured payloads; the model reads them the
	// same way it reads any other system message.
	Content string
}

// Provider is the abstraction over any LLM backend.
//
// Implementations must be safe for concurrent use from multiple goroutines.
type Provider interface {
	// Complete sends the full conversation transcript to the model and waits
	// for the reply text. The transcript already contains the system prompt
	// as its first message; implementations must not inject their own.
	//
	// Returns an error if the request fails or ctx is cancelled before the
	// completion arrives.
	Complete(ctx context.Context, messages []Message) (string, error)
}
