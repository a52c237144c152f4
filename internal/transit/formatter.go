// Package transit provides domain-specific rendering of transit tool
// results for the conversation engine.
//
// Subway trip planners return structured payloads that read poorly when
// dumped into the conversation raw; [TripFormatter] summarizes them into a
// sentence the model can relay naturally.
package transit

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/KhushalM/MTA-Routing/internal/mcp"
)

// ToolName is the trip-planning tool [TripFormatter] is meant to be
// registered for.
const ToolName = "plan_subway_trip"

// trip is the loose shape of a trip-planner payload. Planners disagree on
// field names, so both destination spellings are accepted.
type trip struct {
	Origin            string   `json:"origin"`
	Destination       string   `json:"destination"`
	Dest              string   `json:"dest"`
	TravelTimeMinutes *float64 `json:"travel_time_minutes"`
	DepartureTime     string   `json:"departure_time"`
	ArrivalTime       string   `json:"arrival_time"`
	Route             string   `json:"route"`
	Note              string   `json:"note"`
}

// TripFormatter summarizes a trip-planner result into conversational text.
// Payloads that cannot be parsed fall back to the engine's default
// stringification so nothing is ever lost.
func TripFormatter(result *mcp.CallResult) string {
	t, ok := parseTrip(result.Content)
	if !ok {
		return "Tool execution result: " + result.Content
	}

	dest := t.Destination
	if dest == "" {
		dest = t.Dest
	}

	var b strings.Builder
	b.WriteString("Subway trip planned")
	if t.Origin != "" && dest != "" {
		fmt.Fprintf(&b, " from %s to %s", t.Origin, dest)
	} else if dest != "" {
		fmt.Fprintf(&b, " to %s", dest)
	}
	b.WriteString(".")

	if t.Route != "" {
		fmt.Fprintf(&b, " Route: %s.", t.Route)
	}
	if t.TravelTimeMinutes != nil {
		fmt.Fprintf(&b, " Estimated travel time: %.0f minutes.", *t.TravelTimeMinutes)
	}
	if t.DepartureTime != "" {
		fmt.Fprintf(&b, " Departs %s.", t.DepartureTime)
	}
	if t.ArrivalTime != "" {
		fmt.Fprintf(&b, " Arrives %s.", t.ArrivalTime)
	}
	if t.Note != "" {
		fmt.Fprintf(&b, " Note: %s", t.Note)
	}

	return b.String()
}

// parseTrip decodes content as a trip payload, retrying once with Python
// literal fixups (single quotes, None/True/False) since some planner
// processes stringify dicts instead of emitting JSON.
func parseTrip(content string) (trip, bool) {
	var t trip
	if err := json.Unmarshal([]byte(content), &t); err == nil {
		return t, hasTripFields(t)
	}

	fixed := strings.NewReplacer(
		"'", `"`,
		"None", "null",
		"True", "true",
		"False", "false",
	).Replace(content)
	if err := json.Unmarshal([]byte(fixed), &t); err == nil {
		return t, hasTripFields(t)
	}

	return trip{}, false
}

// hasTripFields reports whether the decoded payload carries at least one
// trip-shaped field, guarding against summarizing unrelated JSON objects.
func hasTripFields(t trip) bool {
	return t.Origin != "" || t.Destination != "" || t.Dest != "" ||
		t.TravelTimeMinutes != nil || t.Route != ""
}
