package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

// Output streams. Overridable in tests to capture log lines.
var (
	stdoutWriter io.Writer = os.Stdout
	stderrWriter io.Writer = os.Stderr
)

// writeLog formats one line and routes it by severity: ERROR and FATAL go to
// stderr, everything else to stdout. Fields are rendered sorted by key so
// output is stable for tests and for diffing captured logs.
func (l *Logger) writeLog(level, msg string, fields map[string]interface{}) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] %s: %s", timestamp(), level, l.name, msg)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString(" |")
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, fields[k])
		}
	}

	if level == "ERROR" || level == "FATAL" {
		fmt.Fprintln(stderrWriter, b.String())
	} else {
		fmt.Fprintln(stdoutWriter, b.String())
	}
}

// logf renders a printf-style message, merging context fields with the
// logger's persistent fields (persistent fields win on collision).
func (l *Logger) logf(level, msg string, args ...interface{}) {
	formatted := fmt.Sprintf(msg, args...)

	contextFields := extractContextFields(l.ctx)
	var merged map[string]interface{}
	if contextFields != nil || len(l.fields) > 0 {
		merged = make(map[string]interface{})
		for k, v := range contextFields {
			merged[k] = v
		}
		for k, v := range l.fields {
			merged[k] = v
		}
	}

	l.writeLog(level, formatted, merged)
}

// timestamp returns an RFC3339 timestamp. The LOG_TIMESTAMP env var overrides
// it for deterministic test output.
func timestamp() string {
	if override := os.Getenv("LOG_TIMESTAMP"); override != "" {
		return override
	}
	return time.Now().Format(time.RFC3339)
}
