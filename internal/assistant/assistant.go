package assistant

import (
	"context"
	"errors"
	"sync"

	"github.com/KhushalM/MTA-Routing/internal/mcp"
	"github.com/KhushalM/MTA-Routing/pkg/provider/llm"
)

// ErrNoProvider is returned by Submit when the Assistant was constructed
// without a model provider. This is an ordering/wiring mistake, not an
// operational failure, so it surfaces as an error rather than as text.
var ErrNoProvider = errors.New("assistant: no model provider configured")

// Option configures an [Assistant].
type Option func(*Assistant)

// WithSessionOptions forwards options to the [ChatSession] built on first
// Submit (and again after Teardown).
func WithSessionOptions(opts ...SessionOption) Option {
	return func(a *Assistant) {
		a.sessionOpts = append(a.sessionOpts, opts...)
	}
}

// Assistant is the single entry point for a conversation: it lazily builds
// the connection pool and chat session on first use, delegates every Submit
// to the session's turn algorithm, and tears everything down on request.
//
// The Assistant owns its connections for its lifetime. After [Assistant.Teardown]
// the next Submit rebuilds from scratch, re-initializing the same connections.
type Assistant struct {
	provider    llm.Provider
	conns       []mcp.Connection
	sessionOpts []SessionOption

	// mu guards the lazy construction and teardown of session.
	mu      sync.Mutex
	session *ChatSession
}

// New creates an Assistant over the given model provider and tool server
// connections. Nothing is contacted until the first [Assistant.Submit].
func New(provider llm.Provider, conns []mcp.Connection, opts ...Option) *Assistant {
	a := &Assistant{
		provider: provider,
		conns:    conns,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Submit runs one conversation turn and returns the assistant's reply.
//
// The first call (and the first call after a Teardown) initializes all tool
// connections and builds the session; connections that fail to come up are
// logged and excluded rather than failing the submit. Operational failures
// during the turn come back as reply text, never as an error; the error
// return is reserved for wiring mistakes.
func (a *Assistant) Submit(ctx context.Context, text string) (string, error) {
	session, err := a.ensureSession(ctx)
	if err != nil {
		return "", err
	}
	return session.Turn(ctx, text), nil
}

// ensureSession performs the guarded lazy initialization.
func (a *Assistant) ensureSession(ctx context.Context) (*ChatSession, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session != nil {
		return a.session, nil
	}
	if a.provider == nil {
		return nil, ErrNoProvider
	}

	pool := mcp.NewPool(a.conns...)
	pool.InitializeAll(ctx)
	a.session = NewChatSession(a.provider, pool, a.sessionOpts...)
	return a.session, nil
}

// History returns a copy of the current conversation, or nil when no session
// has been built yet.
func (a *Assistant) History() []llm.Message {
	a.mu.Lock()
	session := a.session
	a.mu.Unlock()

	if session == nil {
		return nil
	}
	return session.History()
}

// Catalogue returns the live session's tool catalogue. It is nil before the
// first Submit builds the session and again after Teardown, and empty when
// every connection failed to come up.
func (a *Assistant) Catalogue() []mcp.Descriptor {
	a.mu.Lock()
	session := a.session
	a.mu.Unlock()

	if session == nil {
		return nil
	}
	return session.Catalogue()
}

// Reset clears the conversation history of the live session, if any. The
// connections stay up.
func (a *Assistant) Reset() {
	a.mu.Lock()
	session := a.session
	a.mu.Unlock()

	if session != nil {
		session.Reset()
	}
}

// Teardown cleans up the session and all tool connections and clears the
// lazy-initialization state, so a later Submit rebuilds from scratch.
// Cleanup failures are logged by the layers below; Teardown itself never
// fails.
func (a *Assistant) Teardown(ctx context.Context) {
	a.mu.Lock()
	session := a.session
	a.session = nil
	a.mu.Unlock()

	if session != nil {
		session.Cleanup(ctx)
	}
}
