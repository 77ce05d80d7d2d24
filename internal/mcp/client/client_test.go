package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chandanbam/openstack-rca-system/internal/models"
)

func TestAnalyze(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/analyze", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body analyzeRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			return
		}
		assert.Equal(t, "database timeout", body.Query)
		assert.Equal(t, "hybrid", body.Mode)
		if assert.NotNil(t, body.Window) {
			assert.Equal(t, "1494892800", body.Window.From)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.RCAReport{
			Query:           "database timeout",
			Narrative:       "The database tier stopped answering.",
			ConfidenceLabel: models.ConfidenceHigh,
			ModeUsed:        models.ModeUsedHybrid,
			IndexUsed:       true,
		})
	}))
	defer ts.Close()

	report, err := New(ts.URL).Analyze(context.Background(), AnalyzeParams{
		Query: "database timeout",
		Mode:  "hybrid",
		From:  "1494892800",
		To:    "1494894600",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ModeUsedHybrid, report.ModeUsed)
	assert.True(t, report.IndexUsed)
}

func TestAnalyzeOmitsEmptyWindow(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]json.RawMessage
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			return
		}
		_, hasWindow := body["window"]
		assert.False(t, hasWindow)
		_ = json.NewEncoder(w).Encode(models.RCAReport{})
	}))
	defer ts.Close()

	_, err := New(ts.URL).Analyze(context.Background(), AnalyzeParams{Query: "q"})
	require.NoError(t, err)
}

func TestAPIErrorDecoding(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(errorPayload{Error: "empty_corpus", Message: "no log entries loaded"})
	}))
	defer ts.Close()

	_, err := New(ts.URL).Analyze(context.Background(), AnalyzeParams{Query: "q"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "empty_corpus", apiErr.Code)
	assert.Contains(t, apiErr.Error(), "no log entries loaded")
}

func TestAPIErrorNonJSONBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer ts.Close()

	err := New(ts.URL).Ping(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Empty(t, apiErr.Code)
	assert.Equal(t, "upstream exploded", apiErr.Message)
}

func TestRefreshIndex(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/index/refresh", r.URL.Path)
		_ = json.NewEncoder(w).Encode(RefreshResult{IndexedEntries: 1893, Fingerprint: "abc123"})
	}))
	defer ts.Close()

	result, err := New(ts.URL).RefreshIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1893, result.IndexedEntries)
	assert.Equal(t, "abc123", result.Fingerprint)
}

func TestPingWithRetryGivesUpOnCanceledContext(t *testing.T) {
	// nothing listens here, every attempt fails fast
	c := New("http://127.0.0.1:1")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := c.PingWithRetry(ctx, nil)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second, "should stop at context deadline, not full backoff")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPingWithRetrySucceedsAfterFailures(t *testing.T) {
	var attempts atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	err := New(ts.URL).PingWithRetry(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), attempts.Load())
}
