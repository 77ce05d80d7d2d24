package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogEntryID(t *testing.T) {
	entry := LogEntry{SourceFile: "nova-compute.log", LineOffset: 42}
	assert.Equal(t, "nova-compute.log:42", entry.ID())
}

func TestLogEntryValidate(t *testing.T) {
	valid := LogEntry{
		Timestamp:  time.Date(2017, 5, 16, 0, 0, 4, 0, time.UTC),
		Service:    "nova-compute",
		Level:      SeverityError,
		Message:    "instance spawn failed",
		SourceFile: "nova-compute.log",
		LineOffset: 7,
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*LogEntry)
	}{
		{"zero timestamp", func(e *LogEntry) { e.Timestamp = time.Time{} }},
		{"missing source file", func(e *LogEntry) { e.SourceFile = "" }},
		{"bad line offset", func(e *LogEntry) { e.LineOffset = 0 }},
		{"no content", func(e *LogEntry) { e.Message = ""; e.RawText = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := valid
			tt.mutate(&entry)
			err := entry.Validate()
			assert.Error(t, err)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestSeverityOrdering(t *testing.T) {
	assert.True(t, SeverityError.AtLeast(SeverityWarning))
	assert.True(t, SeverityCritical.AtLeast(SeverityError))
	assert.False(t, SeverityInfo.AtLeast(SeverityError))
	// Unknown severities rank as INFO.
	assert.Equal(t, SeverityInfo, ParseSeverity("NOTICE"))
}

func TestSignalBreakdownPresent(t *testing.T) {
	full := SignalBreakdown{
		Importance: Float64Ptr(0.9),
		Semantic:   Float64Ptr(0.5),
		Lexical:    Float64Ptr(0.2),
	}
	assert.Equal(t, 3, full.Present())

	partial := SignalBreakdown{Lexical: Float64Ptr(0.2)}
	assert.Equal(t, 1, partial.Present())
	assert.Equal(t, 0, SignalBreakdown{}.Present())
}

func TestErrorClassification(t *testing.T) {
	signalErrs := []error{
		ErrModelUnavailable,
		ErrIndexUnavailable,
		ErrEmbeddingService,
		fmt.Errorf("embedding corpus: %w", ErrEmbeddingService),
	}
	for _, err := range signalErrs {
		assert.True(t, IsSignalError(err), "%v", err)
		assert.False(t, IsCallerError(err), "%v", err)
	}

	callerErrs := []error{
		ErrInvalidQuery,
		fmt.Errorf("reject: %w", ErrEmptyCorpus),
	}
	for _, err := range callerErrs {
		assert.True(t, IsCallerError(err), "%v", err)
		assert.False(t, IsSignalError(err), "%v", err)
	}

	assert.False(t, IsSignalError(ErrLLMTimeout))
	assert.False(t, IsCallerError(ErrLLMError))
}

func TestParseAnalysisMode(t *testing.T) {
	assert.Equal(t, ModeFast, ParseAnalysisMode("fast"))
	assert.Equal(t, ModeHybrid, ParseAnalysisMode("hybrid"))
	assert.Equal(t, ModeHybrid, ParseAnalysisMode(""))
	assert.Equal(t, ModeHybrid, ParseAnalysisMode("turbo"))
}
