package models

import (
	"fmt"
	"time"
)

// Severity represents an OpenStack log level.
type Severity string

const (
	// SeverityTrace is the most verbose level, rare in service logs
	SeverityTrace Severity = "TRACE"
	// SeverityDebug is detailed debugging output
	SeverityDebug Severity = "DEBUG"
	// SeverityInfo is routine operational messages
	SeverityInfo Severity = "INFO"
	// SeverityAudit is OpenStack request audit lines
	SeverityAudit Severity = "AUDIT"
	// SeverityWarning is potentially problematic conditions
	SeverityWarning Severity = "WARNING"
	// SeverityError is failures that do not stop the service
	SeverityError Severity = "ERROR"
	// SeverityCritical is failures that likely stop the service
	SeverityCritical Severity = "CRITICAL"
)

// ParseSeverity maps a log-level token to a Severity. Unknown tokens map to
// SeverityInfo so a malformed level never drops a line.
func ParseSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityTrace, SeverityDebug, SeverityInfo, SeverityAudit,
		SeverityWarning, SeverityError, SeverityCritical:
		return Severity(s)
	default:
		return SeverityInfo
	}
}

// AtLeast reports whether s is at or above the given severity, using the
// conventional TRACE < DEBUG < INFO < AUDIT < WARNING < ERROR < CRITICAL order.
func (s Severity) AtLeast(min Severity) bool {
	return severityRank(s) >= severityRank(min)
}

func severityRank(s Severity) int {
	switch s {
	case SeverityTrace:
		return 0
	case SeverityDebug:
		return 1
	case SeverityInfo:
		return 2
	case SeverityAudit:
		return 3
	case SeverityWarning:
		return 4
	case SeverityError:
		return 5
	case SeverityCritical:
		return 6
	default:
		return 2
	}
}

// LogEntry is one normalized log line from an OpenStack service. Entries are
// immutable once parsed; all derived state (tokens, scores, embeddings) is
// keyed by the entry identity.
type LogEntry struct {
	// Timestamp is the parsed log timestamp
	Timestamp time.Time `json:"timestamp"`

	// Service is the emitting service ("nova-compute", "neutron-dhcp-agent")
	Service string `json:"service"`

	// Level is the parsed severity
	Level Severity `json:"level"`

	// Message is the log message with header fields stripped
	Message string `json:"message"`

	// RawText is the unmodified source line, including continuation lines
	RawText string `json:"raw_text"`

	// Tokens is the lower-cased token sequence derived from Message
	Tokens []string `json:"tokens,omitempty"`

	// SourceFile is the log file the entry came from
	SourceFile string `json:"source_file"`

	// LineOffset is the 1-based line number of the entry within SourceFile
	LineOffset int `json:"line_offset"`
}

// ID returns the stable entry identity: source file plus line offset. The
// identity survives repeated parses of unchanged input, which is what the
// embedding cache and index staleness checks key on.
func (e *LogEntry) ID() string {
	return fmt.Sprintf("%s:%d", e.SourceFile, e.LineOffset)
}

// Validate checks the entry is well-formed.
func (e *LogEntry) Validate() error {
	if e.Timestamp.IsZero() {
		return NewValidationError("entry %s:%d has no timestamp", e.SourceFile, e.LineOffset)
	}
	if e.SourceFile == "" {
		return NewValidationError("entry missing source file")
	}
	if e.LineOffset <= 0 {
		return NewValidationError("entry %s has non-positive line offset %d", e.SourceFile, e.LineOffset)
	}
	if e.Message == "" && e.RawText == "" {
		return NewValidationError("entry %s:%d has no content", e.SourceFile, e.LineOffset)
	}
	return nil
}
