// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to feed controlled replies without a live LLM
// backend and to verify the transcripts the engine sends. All fields are safe
// to set before calling any method; mutating them during a concurrent call is
// the caller's responsibility.
//
// Example:
//
//	p := &mock.Provider{Replies: []string{`{"tool":"plan_subway_trip","arguments":{}}`, "All set!"}}
//	reply, err := p.Complete(ctx, msgs)
package mock

import (
	"context"
	"sync"

	"github.com/KhushalM/MTA-Routing/pkg/provider/llm"
)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context
	// Messages is a copy of the transcript passed to Complete.
	Messages []llm.Message
}

// Provider is a mock implementation of llm.Provider.
//
// Replies are consumed in order, one per Complete call; once exhausted, the
// last reply repeats. Set Err to inject a failure instead.
type Provider struct {
	mu sync.Mutex

	// Replies is the sequence of reply texts returned by successive Complete
	// calls. An empty slice yields "".
	Replies []string

	// Err, if non-nil, is returned as the error from Complete.
	Err error

	// CompleteFunc, if non-nil, is invoked by Complete instead of consuming
	// Replies/Err. The zero-based call index allows per-call scripting.
	CompleteFunc func(call int, messages []llm.Message) (string, error)

	// CompleteCalls records every invocation of Complete in order.
	CompleteCalls []CompleteCall
}

// Complete records the call and returns the next scripted reply.
func (p *Provider) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	msgs := make([]llm.Message, len(messages))
	copy(msgs, messages)
	idx := len(p.CompleteCalls)
	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Ctx: ctx, Messages: msgs})

	if p.CompleteFunc != nil {
		return p.CompleteFunc(idx, msgs)
	}
	if p.Err != nil {
		return "", p.Err
	}
	if len(p.Replies) == 0 {
		return "", nil
	}
	if idx >= len(p.Replies) {
		idx = len(p.Replies) - 1
	}
	return p.Replies[idx], nil
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CompleteCalls = nil
}

// Ensure Provider implements llm.Provider at compile time.
var _ llm.Provider = (*Provider)(nil)
