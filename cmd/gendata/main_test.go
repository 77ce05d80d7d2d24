package main

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chandanbam/openstack-rca-system/internal/corpus"
	"github.com/Chandanbam/openstack-rca-system/internal/models"
)

func TestGeneratedLogsParse(t *testing.T) {
	dir := t.TempDir()
	g := newGenerator(rand.New(rand.NewSource(42)), 0.05)
	start := time.Date(2017, 5, 16, 0, 0, 0, 0, time.UTC)

	for _, svc := range services {
		path := filepath.Join(dir, svc.file)
		written, err := writeServiceLog(g, svc, path, start, 10*time.Minute, 200, "none", time.Time{}, time.Time{})
		require.NoError(t, err)
		require.GreaterOrEqual(t, written, 200)

		f, err := os.Open(path)
		require.NoError(t, err)
		result, err := corpus.ParseReader(f, svc.file)
		f.Close()
		require.NoError(t, err)

		assert.Len(t, result.Entries, 200, "every generated entry should parse: %s", svc.file)
		assert.Zero(t, result.SkippedLines, "no orphan continuation lines: %s", svc.file)

		wantService := strings.TrimSuffix(svc.file, ".log")
		for i, entry := range result.Entries {
			assert.Equal(t, wantService, entry.Service)
			if i > 0 {
				assert.False(t, entry.Timestamp.Before(result.Entries[i-1].Timestamp),
					"timestamps must not go backwards in %s", svc.file)
			}
		}
	}
}

func TestIncidentProducesCorrelatedErrors(t *testing.T) {
	dir := t.TempDir()
	g := newGenerator(rand.New(rand.NewSource(7)), 0.0)
	start := time.Date(2017, 5, 16, 0, 0, 0, 0, time.UTC)
	span := 10 * time.Minute

	var compute serviceProfile
	for _, svc := range services {
		if svc.file == "nova-compute.log" {
			compute = svc
		}
	}
	require.NotNil(t, compute.lines)

	// Window covers the whole span so every entry rolls the incident dice.
	path := filepath.Join(dir, compute.file)
	_, err := writeServiceLog(g, compute, path, start, span, 300, "hypervisor", start, start.Add(span))
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	result, err := corpus.ParseReader(f, compute.file)
	f.Close()
	require.NoError(t, err)

	errorsSeen := 0
	victimSeen := false
	for _, entry := range result.Entries {
		if entry.Level == models.SeverityError {
			errorsSeen++
			if strings.Contains(entry.Message, g.victimID()) {
				victimSeen = true
			}
		}
	}
	assert.Greater(t, errorsSeen, 10, "incident window should produce an error burst")
	assert.True(t, victimSeen, "incident errors should name the victim instance")
	assert.Greater(t, result.ContinuationLines, 0, "tracebacks should fold into their error entry")
}

func TestIncidentWindowInsideSpan(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	start := time.Date(2017, 5, 16, 0, 0, 0, 0, time.UTC)
	span := time.Hour

	for i := 0; i < 50; i++ {
		ws, we := incidentWindow(start, span, rng)
		assert.False(t, ws.Before(start))
		assert.True(t, we.After(ws))
		assert.False(t, ws.After(start.Add(span)))
	}
}

func TestValidIncident(t *testing.T) {
	assert.True(t, validIncident("none"))
	assert.True(t, validIncident("hypervisor"))
	assert.True(t, validIncident("network"))
	assert.True(t, validIncident("storage"))
	assert.False(t, validIncident("dns"))
}
