// Package tools implements the MCP tools exposed by the RCA server.
package tools

import "time"

// ApplyDefaultLimit clamps a requested limit into (0, max], using def when
// the request left it unset.
func ApplyDefaultLimit(requested, def, max int) int {
	if requested <= 0 {
		return def
	}
	if requested > max {
		return max
	}
	return requested
}

// FormatTimestamp renders a time as RFC3339 UTC, empty for the zero time.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
