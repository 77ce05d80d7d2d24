package logging

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// LogLevel represents the logging level.
type LogLevel int

const (
	// DEBUG level for detailed debugging information
	DEBUG LogLevel = iota
	// INFO level for informational messages
	INFO
	// WARN level for warning messages
	WARN
	// ERROR level for error messages
	ERROR
	// FATAL level for fatal messages
	FATAL
)

// componentLogLevels holds per-component overrides. Keys are component names
// as passed to GetLogger, or prefix patterns like "scoring.*".
var (
	componentLogLevels = make(map[string]LogLevel)
	componentLogMutex  sync.RWMutex
)

// ParseLevel converts a level name to its LogLevel value.
func ParseLevel(levelStr string) (LogLevel, error) {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	case "FATAL":
		return FATAL, nil
	default:
		return -1, fmt.Errorf("invalid level: %s (must be DEBUG, INFO, WARN, ERROR, or FATAL)", levelStr)
	}
}

// SetComponentLogLevels replaces the component override table. Values are
// level names; keys may end in ".*" to match a component subtree.
func SetComponentLogLevels(levels map[string]string) error {
	if levels == nil {
		return nil
	}

	componentLogMutex.Lock()
	defer componentLogMutex.Unlock()

	componentLogLevels = make(map[string]LogLevel, len(levels))
	for name, levelStr := range levels {
		level, err := ParseLevel(levelStr)
		if err != nil {
			return fmt.Errorf("invalid log level for component %q: %w", name, err)
		}
		componentLogLevels[name] = level
	}
	return nil
}

// GetComponentLogLevel returns the override for a component, preferring an
// exact match, then the longest matching wildcard pattern. Returns -1 when no
// override applies.
func GetComponentLogLevel(name string) LogLevel {
	componentLogMutex.RLock()
	defer componentLogMutex.RUnlock()

	if level, ok := componentLogLevels[name]; ok {
		return level
	}

	var matches []string
	for pattern := range componentLogLevels {
		if matchesPattern(name, pattern) {
			matches = append(matches, pattern)
		}
	}
	if len(matches) == 0 {
		return LogLevel(-1)
	}

	// Longest pattern wins: "scoring.lexical.*" beats "scoring.*".
	sort.Slice(matches, func(i, j int) bool { return len(matches[i]) > len(matches[j]) })
	return componentLogLevels[matches[0]]
}

func matchesPattern(name, pattern string) bool {
	if name == pattern {
		return true
	}
	if strings.HasSuffix(pattern, ".*") {
		prefix := strings.TrimSuffix(pattern, ".*")
		return strings.HasPrefix(name, prefix+".")
	}
	return false
}
