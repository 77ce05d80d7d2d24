package corpus

import (
	"bufio"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Chandanbam/openstack-rca-system/internal/models"
)

// openstackLinePattern matches the standard OpenStack log line layout:
//
//	2017-05-16 00:00:04.500 2931 INFO nova.compute.manager [req-... admin admin] message
//
// The request context block is optional; DEBUG lines from some agents omit it.
var openstackLinePattern = regexp.MustCompile(
	`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})(\.\d+)? (\d+) ([A-Z]+) (\S+)(?: \[(.*?)\])? ?(.*)$`)

// serviceProjects are OpenStack projects whose loggers name a sub-service
// ("nova.compute.manager" belongs to nova-compute, not nova).
var serviceProjects = map[string]bool{
	"nova":    true,
	"neutron": true,
	"cinder":  true,
	"glance":  true,
}

// ParseResult summarizes one parse run.
type ParseResult struct {
	// Entries are the parsed entries in file order
	Entries []models.LogEntry

	// ContinuationLines counts lines folded into a preceding entry
	ContinuationLines int

	// SkippedLines counts lines with no preceding entry to fold into
	SkippedLines int
}

// ParseReader parses one OpenStack log stream into ordered entries. Line
// offsets are 1-based raw line numbers, so entry identity survives repeated
// parses of unchanged input. Lines that do not match the header layout are
// treated as continuations of the previous entry (tracebacks, wrapped
// messages); leading unmatched lines are skipped.
func ParseReader(r io.Reader, sourceFile string) (*ParseResult, error) {
	result := &ParseResult{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		entry, ok := parseLine(line, sourceFile, lineNo)
		if !ok {
			if n := len(result.Entries); n > 0 {
				prev := &result.Entries[n-1]
				prev.RawText += "\n" + line
				result.ContinuationLines++
			} else {
				result.SkippedLines++
			}
			continue
		}
		result.Entries = append(result.Entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// parseLine parses a single header line. Returns ok=false for continuation
// lines.
func parseLine(line, sourceFile string, lineNo int) (models.LogEntry, bool) {
	m := openstackLinePattern.FindStringSubmatch(line)
	if m == nil {
		return models.LogEntry{}, false
	}

	ts, err := parseTimestamp(m[1], m[2])
	if err != nil {
		return models.LogEntry{}, false
	}

	logger := m[5]
	message := strings.TrimSpace(m[7])
	entry := models.LogEntry{
		Timestamp:  ts,
		Service:    serviceName(sourceFile, logger),
		Level:      models.ParseSeverity(m[4]),
		Message:    message,
		RawText:    line,
		Tokens:     Tokenize(message),
		SourceFile: sourceFile,
		LineOffset: lineNo,
	}
	return entry, true
}

func parseTimestamp(base, frac string) (time.Time, error) {
	// time.Parse accepts a fractional second after the seconds field even
	// when the layout omits it
	return time.Parse("2006-01-02 15:04:05", base+frac)
}

// serviceName derives the emitting service. The source filename wins when it
// names a service ("nova-api.log.1.2017-05-16" -> "nova-api"); otherwise the
// logger path is used ("nova.compute.manager" -> "nova-compute").
func serviceName(sourceFile, logger string) string {
	base := filepath.Base(sourceFile)
	if idx := strings.Index(base, ".log"); idx > 0 {
		return base[:idx]
	}

	parts := strings.Split(logger, ".")
	if len(parts) >= 2 && serviceProjects[parts[0]] {
		return parts[0] + "-" + parts[1]
	}
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
