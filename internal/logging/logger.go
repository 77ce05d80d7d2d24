// Package logging provides structured logging for the RCA system.
//
// The logger favors plain, explicit Go over clever abstractions. It supports
// five levels (DEBUG, INFO, WARN, ERROR, FATAL), printf-style messages, and
// structured key-value fields for searchability.
//
// Initialize once at startup, then obtain named component loggers:
//
//	logging.Initialize("info")
//	logger := logging.GetLogger("engine")
//	logger.Info("listening on port %d", 8080)
//
// Structured fields are preferred for anything an operator may grep for:
//
//	logger.InfoWithFields("analysis complete",
//	    logging.Field("mode", report.ModeUsed),
//	    logging.Field("candidates", len(report.Candidates)),
//	    logging.Field("duration_ms", elapsed.Milliseconds()),
//	)
//
// Loggers are immutable: WithField, WithFields, and WithContext return copies,
// so a request-scoped logger can be passed across goroutines without
// coordination. WithContext extracts trace_id and span_id from the context and
// attaches them to every message.
//
// Component-level overrides allow targeted debugging without drowning in
// output from the rest of the system:
//
//	logging.Initialize("info", map[string]string{
//	    "semindex":  "debug",
//	    "scoring.*": "debug",
//	})
//
// Fatal terminates the process with exit code 1; the exit call is indirected
// through a package variable so tests can intercept it.
package logging

import (
	"context"
	"os"
	"sync"
)

var (
	globalLogger *Logger
	initOnce     sync.Once
	// exitFunc is called by Fatal. Overridable in tests.
	exitFunc = os.Exit
)

// Logger emits leveled, optionally structured log lines for one component.
type Logger struct {
	level  LogLevel
	name   string
	fields map[string]interface{}
	ctx    context.Context
}

// Initialize sets up the global logger with the given default level and
// optional per-component overrides (see SetComponentLogLevels).
func Initialize(levelStr string, componentLevels ...map[string]string) error {
	level, err := ParseLevel(levelStr)
	if err != nil {
		level = INFO
	}

	globalLogger = &Logger{
		level: level,
		name:  "rca",
	}

	if len(componentLevels) > 0 && componentLevels[0] != nil {
		if err := SetComponentLogLevels(componentLevels[0]); err != nil {
			return err
		}
	}
	return nil
}

// GetLogger returns a logger named after a component ("engine", "fusion",
// "api", ...). Initializes the global logger at INFO on first use.
func GetLogger(name string) *Logger {
	initOnce.Do(func() {
		if globalLogger == nil {
			_ = Initialize("info")
		}
	})
	return &Logger{
		level:  globalLogger.level,
		name:   name,
		fields: make(map[string]interface{}),
	}
}

// shouldLog applies component overrides before the logger's own level.
func (l *Logger) shouldLog(level LogLevel) bool {
	if override := GetComponentLogLevel(l.name); override >= 0 {
		return level >= override
	}
	return level >= l.level
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.shouldLog(DEBUG) {
		l.logf("DEBUG", msg, args...)
	}
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...interface{}) {
	if l.shouldLog(INFO) {
		l.logf("INFO", msg, args...)
	}
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.shouldLog(WARN) {
		l.logf("WARN", msg, args...)
	}
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...interface{}) {
	if l.shouldLog(ERROR) {
		l.logf("ERROR", msg, args...)
	}
}

// ErrorWithErr logs an error message with the error appended.
func (l *Logger) ErrorWithErr(msg string, err error, args ...interface{}) {
	if l.shouldLog(ERROR) {
		args = append(args, err)
		l.logf("ERROR", msg+" - %v", args...)
	}
}

// Fatal logs a fatal message and exits with code 1.
func (l *Logger) Fatal(msg string, args ...interface{}) {
	if l.shouldLog(FATAL) {
		l.logf("FATAL", msg, args...)
		exitFunc(1)
	}
}

// DebugWithFields logs a debug message with structured fields.
func (l *Logger) DebugWithFields(msg string, fields ...LogField) {
	if l.shouldLog(DEBUG) {
		l.logWithFields("DEBUG", msg, fields...)
	}
}

// InfoWithFields logs an info message with structured fields.
func (l *Logger) InfoWithFields(msg string, fields ...LogField) {
	if l.shouldLog(INFO) {
		l.logWithFields("INFO", msg, fields...)
	}
}

// WarnWithFields logs a warning message with structured fields.
func (l *Logger) WarnWithFields(msg string, fields ...LogField) {
	if l.shouldLog(WARN) {
		l.logWithFields("WARN", msg, fields...)
	}
}

// ErrorWithFields logs an error message with structured fields.
func (l *Logger) ErrorWithFields(msg string, fields ...LogField) {
	if l.shouldLog(ERROR) {
		l.logWithFields("ERROR", msg, fields...)
	}
}

// FatalWithFields logs a fatal message with structured fields and exits.
func (l *Logger) FatalWithFields(msg string, fields ...LogField) {
	if l.shouldLog(FATAL) {
		l.logWithFields("FATAL", msg, fields...)
		exitFunc(1)
	}
}

// WithName returns a copy of the logger under a different component name.
func (l *Logger) WithName(name string) *Logger {
	return &Logger{
		level:  l.level,
		name:   name,
		fields: make(map[string]interface{}),
		ctx:    l.ctx,
	}
}

// WithField returns a copy of the logger with one persistent field added.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	next := &Logger{
		level:  l.level,
		name:   l.name,
		fields: cloneFields(l.fields),
		ctx:    l.ctx,
	}
	next.fields[key] = value
	return next
}

// WithFields returns a copy of the logger with persistent fields added.
func (l *Logger) WithFields(fields ...LogField) *Logger {
	next := &Logger{
		level:  l.level,
		name:   l.name,
		fields: cloneFields(l.fields),
		ctx:    l.ctx,
	}
	for _, f := range fields {
		next.fields[f.Key] = f.Value
	}
	return next
}

// WithContext returns a copy of the logger carrying ctx. trace_id and span_id
// values present in the context are included in every message.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	return &Logger{
		level:  l.level,
		name:   l.name,
		fields: cloneFields(l.fields),
		ctx:    ctx,
	}
}

// logWithFields merges context fields, persistent fields, and call fields.
// Priority on key collision: context < persistent < call.
func (l *Logger) logWithFields(level, msg string, fields ...LogField) {
	contextFields := extractContextFields(l.ctx)

	var merged map[string]interface{}
	if contextFields != nil || len(l.fields) > 0 || len(fields) > 0 {
		merged = make(map[string]interface{})
		for k, v := range contextFields {
			merged[k] = v
		}
		for k, v := range l.fields {
			merged[k] = v
		}
		for _, f := range fields {
			merged[f.Key] = f.Value
		}
	}

	l.writeLog(level, msg, merged)
}
