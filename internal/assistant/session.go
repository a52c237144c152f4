// Package assistant implements the tool-augmented conversation engine and
// its session facade.
//
// A [ChatSession] owns one conversation: it holds the append-only message
// history, builds the system instructions from the tool catalogue, and
// drives each turn through the model, detecting whether the reply is a
// direct answer or a JSON tool call to dispatch and fold back in. An
// [Assistant] wraps a session behind a lazily-initialized facade whose
// Submit method never fails for operational reasons; model outages, unknown
// tools, and provider crashes all come back as conversational text.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/KhushalM/MTA-Routing/internal/mcp"
	"github.com/KhushalM/MTA-Routing/internal/observe"
	"github.com/KhushalM/MTA-Routing/pkg/provider/llm"
)

// Toolset is the engine's view of the connection pool: the aggregated tool
// catalogue, call routing, and bulk teardown. *mcp.Pool implements it.
type Toolset interface {
	// Catalogue returns the aggregated tool descriptors.
	Catalogue() []mcp.Descriptor

	// Dispatch routes a tool call to the owning connection.
	Dispatch(ctx context.Context, tool string, args map[string]any) (*mcp.CallResult, error)

	// CleanupAll releases every connection.
	CleanupAll(ctx context.Context)
}

var _ Toolset = (*mcp.Pool)(nil)

// ModelError reports a failure of the model backend during a turn. It never
// escapes [ChatSession.Turn]; it exists so the failure path can be logged
// and tested by type.
type ModelError struct {
	// Err is the underlying provider error.
	Err error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("assistant: model completion failed: %v", e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// SessionOption configures a [ChatSession].
type SessionOption func(*ChatSession)

// WithFormatters sets the per-tool result formatter registry.
func WithFormatters(r *FormatterRegistry) SessionOption {
	return func(s *ChatSession) {
		if r != nil {
			s.formatters = r
		}
	}
}

// WithMetrics overrides the metrics instance, for tests.
func WithMetrics(m *observe.Metrics) SessionOption {
	return func(s *ChatSession) { s.metrics = m }
}

// ChatSession drives one conversation against one model provider and one
// toolset.
//
// At most one turn is in flight at a time: concurrent [ChatSession.Turn]
// calls serialize on an internal lock so the message history is never
// interleaved mid-mutation.
type ChatSession struct {
	provider   llm.Provider
	tools      Toolset
	formatters *FormatterRegistry
	metrics    *observe.Metrics

	// mu guards messages and serializes turns.
	mu       sync.Mutex
	messages []llm.Message

	cleanupOnce sync.Once
}

// NewChatSession creates a session over the given provider and toolset. The
// system instructions are built once from the toolset's current catalogue
// and pushed as the first message.
func NewChatSession(provider llm.Provider, tools Toolset, opts ...SessionOption) *ChatSession {
	s := &ChatSession{
		provider:   provider,
		tools:      tools,
		formatters: NewFormatterRegistry(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}

	s.messages = []llm.Message{{
		Role:    llm.RoleSystem,
		Content: BuildSystemPrompt(tools.Catalogue()),
	}}

	s.metrics.ActiveSessions.Add(context.Background(), 1)
	return s
}

// Turn runs one complete user-message-in, assistant-reply-out cycle:
//
//  1. Append the user message and ask the model for a reply.
//  2. If the normalized reply parses as a tool call, dispatch it, fold the
//     result (or the dispatch failure) into the history as a system message,
//     and ask the model again for the final natural-language answer.
//  3. Otherwise the reply is the answer.
//
// Turn always returns a string. Model failures and anything else unexpected
// are caught here, logged, recorded in the history, and surfaced to the
// caller as a short diagnostic reply.
func (s *ChatSession) Turn(ctx context.Context, text string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, llm.Message{Role: llm.RoleUser, Content: text})

	reply, err := s.complete(ctx)
	if err != nil {
		return s.failTurn(ctx, err)
	}
	reply = normalizeReply(reply)

	call, isCall := parseToolCall(reply)
	if !isCall {
		s.messages = append(s.messages, llm.Message{Role: llm.RoleAssistant, Content: reply})
		s.metrics.RecordTurn(ctx, "direct")
		return reply
	}

	// The assistant message keeps the tool-call JSON exactly as the model
	// produced it, so the transcript shows what drove the dispatch.
	s.messages = append(s.messages, llm.Message{Role: llm.RoleAssistant, Content: reply})
	slog.Info("model requested tool", "tool", call.Name)

	s.messages = append(s.messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: s.runTool(ctx, call),
	})

	final, err := s.complete(ctx)
	if err != nil {
		return s.failTurn(ctx, err)
	}
	final = normalizeReply(final)
	s.messages = append(s.messages, llm.Message{Role: llm.RoleAssistant, Content: final})
	s.metrics.RecordTurn(ctx, "tool")
	return final
}

// complete sends the current history to the model and returns its raw reply.
func (s *ChatSession) complete(ctx context.Context) (string, error) {
	start := time.Now()
	reply, err := s.provider.Complete(ctx, s.messages)
	if err != nil {
		s.metrics.RecordModelRequest(ctx, "llm", "error", time.Since(start))
		return "", &ModelError{Err: err}
	}
	s.metrics.RecordModelRequest(ctx, "llm", "ok", time.Since(start))
	return reply, nil
}

// runTool dispatches the parsed tool call and renders the outcome as the
// system-message text folded back into the conversation. Dispatch failures
// are an expected outcome here, described rather than propagated, so the
// model can adapt in its follow-up reply.
func (s *ChatSession) runTool(ctx context.Context, call ToolCall) string {
	res, err := s.tools.Dispatch(ctx, call.Name, call.Args)
	if err != nil {
		slog.Warn("tool dispatch failed", "tool", call.Name, "err", err)
		return fmt.Sprintf("Tool %q failed: %v", call.Name, err)
	}
	if res.IsError {
		slog.Warn("tool reported an error", "tool", call.Name, "message", res.Content)
		return fmt.Sprintf("Tool %q returned an error: %s", call.Name, res.Content)
	}
	return s.formatters.Format(call.Name, res)
}

// failTurn handles an unrecoverable collaborator failure at the turn
// boundary: log it, record a diagnostic assistant message, and return the
// diagnostic as the reply. The caller never sees the error itself.
func (s *ChatSession) failTurn(ctx context.Context, err error) string {
	slog.Error("turn failed", "err", err)
	s.metrics.RecordTurn(ctx, "error")

	reply := fmt.Sprintf("I encountered an error: %v. Please try again.", err)
	s.messages = append(s.messages, llm.Message{Role: llm.RoleAssistant, Content: reply})
	return reply
}

// Catalogue returns the toolset's current tool catalogue.
func (s *ChatSession) Catalogue() []mcp.Descriptor {
	return s.tools.Catalogue()
}

// History returns a copy of the conversation so far, system message first.
func (s *ChatSession) History() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]llm.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Reset discards the entire history, system message included, and rebuilds
// the system instructions from the toolset's current catalogue. Useful after
// a re-initialization changes the available tools.
func (s *ChatSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = []llm.Message{{
		Role:    llm.RoleSystem,
		Content: BuildSystemPrompt(s.tools.Catalogue()),
	}}
}

// Cleanup releases the underlying toolset. Idempotent; only the first call
// tears down.
func (s *ChatSession) Cleanup(ctx context.Context) {
	s.cleanupOnce.Do(func() {
		s.tools.CleanupAll(ctx)
		s.metrics.ActiveSessions.Add(ctx, -1)
	})
}
