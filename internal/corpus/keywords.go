package corpus

import "strings"

// importantKeywords flags entries that typically carry incident evidence.
// Matching is case-insensitive against the raw message text, so phrases that
// tokenize apart ("Connection lost") are still caught.
var importantKeywords = []string{
	"ERROR",
	"CRITICAL",
	"FAILED",
	"EXCEPTION",
	"TIMEOUT",
	"CONNECTION_LOST",
	"CONNECTION LOST",
	"UNAVAILABLE",
	"DENIED",
	"REJECTED",
	"SPAWNING",
	"TERMINATING",
	"DESTROYED",
	"CLAIM",
	"RESOURCE",
}

// HasImportantKeyword reports whether the message contains any of the
// incident-evidence keywords.
func HasImportantKeyword(message string) bool {
	upper := strings.ToUpper(message)
	for _, kw := range importantKeywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

// ImportantKeywords returns a copy of the keyword list for reporting.
func ImportantKeywords() []string {
	out := make([]string, len(importantKeywords))
	copy(out, importantKeywords)
	return out
}
