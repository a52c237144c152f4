package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/KhushalM/MTA-Routing/internal/assistant"
	"github.com/KhushalM/MTA-Routing/internal/mcp"
	mcpmock "github.com/KhushalM/MTA-Routing/internal/mcp/mock"
	llmmock "github.com/KhushalM/MTA-Routing/pkg/provider/llm/mock"
)

func TestHealthz_AlwaysReturns200(t *testing.T) {
	h := New()

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	h.Healthz(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body liveness
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want %q", body.Status, "ok")
	}
	if body.UptimeSeconds < 0 {
		t.Errorf("uptime_seconds = %d, want >= 0", body.UptimeSeconds)
	}
}

func TestHealthz_ContentType(t *testing.T) {
	h := New()
	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	h.Healthz(rec, req)

	ct := rec.Header().Get("Content-Type")
	if ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestReadyz_AllCheckersPass(t *testing.T) {
	h := New(
		Checker{Name: "tools", Check: func(_ context.Context) error { return nil }},
		Checker{Name: "model", Check: func(_ context.Context) error { return nil }},
	)

	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body readiness
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want %q", body.Status, "ok")
	}
	for _, name := range []string{"tools", "model"} {
		if body.Checks[name].Status != "ok" {
			t.Errorf("%s check = %+v, want ok", name, body.Checks[name])
		}
	}
}

func TestReadyz_CheckerFails(t *testing.T) {
	h := New(
		Checker{Name: "tools", Check: func(_ context.Context) error {
			return errors.New("no live connections")
		}},
		Checker{Name: "model", Check: func(_ context.Context) error { return nil }},
	)

	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	var body readiness
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if body.Status != "fail" {
		t.Errorf("status = %q, want %q", body.Status, "fail")
	}
	if got := body.Checks["tools"]; got.Status != "fail" || got.Error != "no live connections" {
		t.Errorf("tools check = %+v", got)
	}
	if body.Checks["model"].Status != "ok" {
		t.Errorf("model check = %+v, want ok", body.Checks["model"])
	}
}

func TestReadyz_NoCheckers(t *testing.T) {
	h := New()

	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestReadyz_RespectsContextCancellation(t *testing.T) {
	h := New(
		Checker{Name: "slow", Check: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest("GET", "/readyz", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestToolCatalogue_Checker(t *testing.T) {
	var catalogue []mcp.Descriptor
	check := ToolCatalogue(func() []mcp.Descriptor { return catalogue })

	if err := check.Check(context.Background()); err == nil {
		t.Error("nil catalogue passed, want failure before the session is built")
	}

	catalogue = []mcp.Descriptor{}
	if err := check.Check(context.Background()); err == nil {
		t.Error("empty catalogue passed, want failure when no connection is live")
	}

	catalogue = []mcp.Descriptor{{Name: "plan_subway_trip"}}
	if err := check.Check(context.Background()); err != nil {
		t.Errorf("populated catalogue failed: %v", err)
	}
}

func TestModelProvider_Checker(t *testing.T) {
	if err := ModelProvider(nil).Check(context.Background()); err == nil {
		t.Error("nil provider passed, want failure")
	}
	if err := ModelProvider(&llmmock.Provider{}).Check(context.Background()); err != nil {
		t.Errorf("wired provider failed: %v", err)
	}
}

// TestReadyz_FollowsAssistantLifecycle wires the checkers the binary
// registers and watches /readyz track the assistant's lazy build and
// teardown.
func TestReadyz_FollowsAssistantLifecycle(t *testing.T) {
	conn := &mcpmock.Connection{
		ServerName: "transit",
		ToolList:   []mcp.Descriptor{{Name: "plan_subway_trip"}},
	}
	provider := &llmmock.Provider{Replies: []string{"hello"}}
	a := assistant.New(provider, []mcp.Connection{conn})

	h := New(ModelProvider(provider), ToolCatalogue(a.Catalogue))

	readyStatus := func() int {
		req := httptest.NewRequest("GET", "/readyz", nil)
		rec := httptest.NewRecorder()
		h.Readyz(rec, req)
		return rec.Code
	}

	if got := readyStatus(); got != http.StatusServiceUnavailable {
		t.Errorf("status before first turn = %d, want %d", got, http.StatusServiceUnavailable)
	}

	if _, err := a.Submit(context.Background(), "hi"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := readyStatus(); got != http.StatusOK {
		t.Errorf("status after first turn = %d, want %d", got, http.StatusOK)
	}

	a.Teardown(context.Background())
	if got := readyStatus(); got != http.StatusServiceUnavailable {
		t.Errorf("status after teardown = %d, want %d", got, http.StatusServiceUnavailable)
	}
}

func TestRegister_RoutesWork(t *testing.T) {
	h := New(
		Checker{Name: "test", Check: func(_ context.Context) error { return nil }},
	)

	mux := http.NewServeMux()
	h.Register(mux)

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/healthz", http.StatusOK},
		{"/readyz", http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			req := httptest.NewRequest("GET", tc.path, nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
		})
	}
}
