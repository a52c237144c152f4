// Package health exposes liveness and readiness probes for the assistant.
//
//   - /healthz: liveness; a process that can serve HTTP answers 200 OK with
//     its uptime.
//   - /readyz: readiness; evaluates the registered checkers and answers 200
//     only when all of them pass.
//
// The assistant-specific checkers probe live state: [ModelProvider] verifies
// a model backend is wired, and [ToolCatalogue] follows the lazily-built tool
// catalogue, so /readyz flips to ok once the first conversation turn brings
// the tool connections up and back to fail after teardown.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/KhushalM/MTA-Routing/internal/mcp"
	"github.com/KhushalM/MTA-Routing/pkg/provider/llm"
)

// checkTimeout bounds the evaluation of all readiness checkers per request.
const checkTimeout = 5 * time.Second

// Checker is a named readiness probe. Check returns nil when the dependency
// is healthy and a non-nil error describing the failure otherwise. It must
// respect context cancellation.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

// ToolCatalogue returns a checker over the assistant's live tool catalogue,
// typically wired to Assistant.Catalogue. It fails while the catalogue is
// empty: before the first turn builds the session, after teardown, and when
// no tool connection survived initialization.
func ToolCatalogue(catalogue func() []mcp.Descriptor) Checker {
	return Checker{
		Name: "tools",
		Check: func(_ context.Context) error {
			tools := catalogue()
			if tools == nil {
				return errors.New("session not built yet")
			}
			if len(tools) == 0 {
				return errors.New("tool catalogue is empty, no live connections")
			}
			return nil
		},
	}
}

// ModelProvider returns a checker that fails when no model backend is wired.
func ModelProvider(p llm.Provider) Checker {
	return Checker{
		Name: "model",
		Check: func(_ context.Context) error {
			if p == nil {
				return errors.New("no model provider configured")
			}
			return nil
		},
	}
}

// CheckResult is the JSON-rendered outcome of one checker.
type CheckResult struct {
	Status     string `json:"status"` // "ok" or "fail"
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// liveness is the /healthz response body.
type liveness struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// readiness is the /readyz response body.
type readiness struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// Handler serves the /healthz and /readyz endpoints. Safe for concurrent
// use; the checker list is fixed at construction time.
type Handler struct {
	started  time.Time
	checkers []Checker
}

// New creates a [Handler] that evaluates the given checkers on each /readyz
// request.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{started: time.Now(), checkers: c}
}

// Healthz answers the liveness probe: always 200 OK with the process uptime.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, liveness{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	})
}

// Readyz answers the readiness probe. All checkers are evaluated
// concurrently under a shared [checkTimeout] deadline; the response is 200
// only when every one passes, 503 otherwise, with per-check outcome and
// latency in the body.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	results := make([]CheckResult, len(h.checkers))
	var wg sync.WaitGroup
	for i, c := range h.checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			err := c.Check(ctx)
			res := CheckResult{Status: "ok", DurationMs: time.Since(start).Milliseconds()}
			if err != nil {
				res.Status = "fail"
				res.Error = err.Error()
			}
			results[i] = res
		}()
	}
	wg.Wait()

	body := readiness{Status: "ok", Checks: make(map[string]CheckResult, len(h.checkers))}
	status := http.StatusOK
	for i, c := range h.checkers {
		body.Checks[c.Name] = results[i]
		if results[i].Status != "ok" {
			body.Status = "fail"
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, body)
}

// Register adds the /healthz and /readyz routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// writeJSON encodes v as JSON and writes it with the given status code. On
// encoding failure it falls back to a plain-text 500 response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
