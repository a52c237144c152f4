package assistant_test

import (
	"context"
	"errors"
	"testing"

	"github.com/KhushalM/MTA-Routing/internal/assistant"
	"github.com/KhushalM/MTA-Routing/internal/mcp"
	mcpmock "github.com/KhushalM/MTA-Routing/internal/mcp/mock"
	llmmock "github.com/KhushalM/MTA-Routing/pkg/provider/llm/mock"
)

func TestSubmit_LazyInitializationHappensOnce(t *testing.T) {
	t.Parallel()

	conn := &mcpmock.Connection{
		ServerName: "transit",
		ToolList:   []mcp.Descriptor{{Name: "plan_subway_trip"}},
	}
	provider := &llmmock.Provider{Replies: []string{"hello"}}
	a := assistant.New(provider, []mcp.Connection{conn})

	if conn.InitCalls != 0 {
		t.Fatal("connection initialized before first Submit")
	}

	if _, err := a.Submit(context.Background(), "hi"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := a.Submit(context.Background(), "hi again"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if conn.InitCalls != 1 {
		t.Errorf("InitCalls = %d, want 1", conn.InitCalls)
	}
}

func TestSubmit_ToleratesFailingConnection(t *testing.T) {
	t.Parallel()

	bad := &mcpmock.Connection{
		ServerName: "broken",
		InitErr:    errors.New("spawn failed"),
	}
	good := &mcpmock.Connection{
		ServerName: "transit",
		ToolList:   []mcp.Descriptor{{Name: "plan_subway_trip"}},
	}
	provider := &llmmock.Provider{Replies: []string{"hello"}}
	a := assistant.New(provider, []mcp.Connection{bad, good})

	reply, err := a.Submit(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if reply != "hello" {
		t.Errorf("reply = %q", reply)
	}
}

func TestSubmit_NoProvider(t *testing.T) {
	t.Parallel()

	a := assistant.New(nil, nil)
	if _, err := a.Submit(context.Background(), "hi"); !errors.Is(err, assistant.ErrNoProvider) {
		t.Errorf("err = %v, want ErrNoProvider", err)
	}
}

func TestTeardown_RebuildOnNextSubmit(t *testing.T) {
	t.Parallel()

	conn := &mcpmock.Connection{
		ServerName: "transit",
		ToolList:   []mcp.Descriptor{{Name: "plan_subway_trip"}},
	}
	provider := &llmmock.Provider{Replies: []string{"hello"}}
	a := assistant.New(provider, []mcp.Connection{conn})

	if _, err := a.Submit(context.Background(), "hi"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	a.Teardown(context.Background())

	if conn.CleanupCalls != 1 {
		t.Errorf("CleanupCalls after teardown = %d, want 1", conn.CleanupCalls)
	}
	if got := a.History(); got != nil {
		t.Errorf("History after teardown = %v, want nil", got)
	}

	if _, err := a.Submit(context.Background(), "hi again"); err != nil {
		t.Fatalf("Submit after teardown: %v", err)
	}
	if conn.InitCalls != 2 {
		t.Errorf("InitCalls = %d, want 2 (rebuild re-initializes)", conn.InitCalls)
	}

	// The rebuilt session starts a fresh history.
	if history := a.History(); len(history) != 3 {
		t.Errorf("history length after rebuild = %d, want 3", len(history))
	}
}

func TestTeardown_BeforeFirstSubmit(t *testing.T) {
	t.Parallel()

	conn := &mcpmock.Connection{ServerName: "transit"}
	a := assistant.New(&llmmock.Provider{}, []mcp.Connection{conn})

	a.Teardown(context.Background())

	if conn.CleanupCalls != 0 {
		t.Errorf("CleanupCalls = %d, want 0 (nothing was built)", conn.CleanupCalls)
	}
}

func TestCatalogue_TracksSessionLifecycle(t *testing.T) {
	t.Parallel()

	conn := &mcpmock.Connection{
		ServerName: "transit",
		ToolList:   []mcp.Descriptor{{Name: "plan_subway_trip"}},
	}
	provider := &llmmock.Provider{Replies: []string{"hello"}}
	a := assistant.New(provider, []mcp.Connection{conn})

	if got := a.Catalogue(); got != nil {
		t.Errorf("Catalogue before first Submit = %v, want nil", got)
	}

	if _, err := a.Submit(context.Background(), "hi"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	catalogue := a.Catalogue()
	if len(catalogue) != 1 || catalogue[0].Name != "plan_subway_trip" {
		t.Errorf("Catalogue after Submit = %v", catalogue)
	}

	a.Teardown(context.Background())
	if got := a.Catalogue(); got != nil {
		t.Errorf("Catalogue after Teardown = %v, want nil", got)
	}
}

func TestReset_KeepsConnectionsUp(t *testing.T) {
	t.Parallel()

	conn := &mcpmock.Connection{
		ServerName: "transit",
		ToolList:   []mcp.Descriptor{{Name: "plan_subway_trip"}},
	}
	provider := &llmmock.Provider{Replies: []string{"hello"}}
	a := assistant.New(provider, []mcp.Connection{conn})

	if _, err := a.Submit(context.Background(), "hi"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	a.Reset()

	if conn.CleanupCalls != 0 {
		t.Errorf("Reset cleaned up connections: CleanupCalls = %d", conn.CleanupCalls)
	}
	if history := a.History(); len(history) != 1 {
		t.Errorf("history length after reset = %d, want 1", len(history))
	}
}

func TestSubmit_WithSessionOptions(t *testing.T) {
	t.Parallel()

	formatters := assistant.NewFormatterRegistry()
	formatters.Register("echo", func(res *mcp.CallResult) string {
		return "echoed " + res.Content
	})

	conn := &mcpmock.Connection{
		ServerName: "echoes",
		ToolList:   []mcp.Descriptor{{Name: "echo"}},
		CallResult: &mcp.CallResult{Content: "42"},
	}
	provider := &llmmock.Provider{Replies: []string{
		`{"tool": "echo", "arguments": {}}`,
		"the answer is 42",
	}}
	a := assistant.New(provider, []mcp.Connection{conn},
		assistant.WithSessionOptions(assistant.WithFormatters(formatters)),
	)

	if _, err := a.Submit(context.Background(), "go"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	history := a.History()
	if len(history) != 5 {
		t.Fatalf("history length = %d, want 5", len(history))
	}
	if history[3].Content != "echoed 42" {
		t.Errorf("tool result message = %q, want the registered formatter's output", history[3].Content)
	}
}
