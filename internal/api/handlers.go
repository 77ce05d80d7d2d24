package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Chandanbam/openstack-rca-system/internal/corpus"
	"github.com/Chandanbam/openstack-rca-system/internal/logging"
	"github.com/Chandanbam/openstack-rca-system/internal/models"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// AnalyzeRequest is the analyze endpoint body.
type AnalyzeRequest struct {
	// Query is the operator-supplied issue description
	Query string `json:"query"`

	// Mode selects "hybrid" or "fast"; anything else defaults to hybrid
	Mode string `json:"mode,omitempty"`

	// Window restricts analysis to a time slice of the corpus
	Window *WindowRequest `json:"window,omitempty"`
}

// WindowRequest bounds the corpus to a time window. Bounds accept Unix
// seconds or human-readable phrases ("10 minutes ago", "2017-05-16 00:03").
// A missing bound falls back to the configured default window.
type WindowRequest struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// RefreshResponse reports the outcome of an index refresh.
type RefreshResponse struct {
	IndexedEntries int    `json:"indexed_entries"`
	Fingerprint    string `json:"fingerprint"`
}

// handleAnalyze runs one analysis request end to end.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	default:
		writeError(w, http.StatusTooManyRequests, ErrorCodeTooManyRequests,
			"concurrent analysis limit reached, retry later")
		return
	}

	var req AnalyzeRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid JSON body: "+err.Error())
		return
	}

	c, ok := s.resolveCorpus(w, req.Window)
	if !ok {
		return
	}

	report, err := s.engine.Analyze(r.Context(), req.Query, c, models.ParseAnalysisMode(req.Mode))
	if err != nil {
		s.respondAnalyzeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = writeJSON(w, report)
}

// resolveCorpus applies the optional request window to the current snapshot.
// A nil snapshot passes through so the engine can reject it uniformly.
func (s *Server) resolveCorpus(w http.ResponseWriter, window *WindowRequest) (*corpus.Corpus, bool) {
	c := s.source.Snapshot()
	if c == nil || window == nil {
		return c, true
	}

	from, to, err := corpus.ResolveWindow(window.From, window.To, s.windowMinutes, time.Now)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, err.Error())
		return nil, false
	}
	windowed, err := c.Window(from, to)
	if err != nil {
		s.logger.ErrorWithErr("windowing corpus failed", err)
		writeError(w, http.StatusInternalServerError, ErrorCodeInternal, "windowing corpus failed")
		return nil, false
	}
	return windowed, true
}

// respondAnalyzeError maps engine errors to API error payloads.
func (s *Server) respondAnalyzeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, ErrorCodeInvalidQuery, err.Error())
	case errors.Is(err, models.ErrEmptyCorpus):
		writeError(w, http.StatusUnprocessableEntity, ErrorCodeEmptyCorpus, err.Error())
	case errors.Is(err, context.Canceled):
		// client went away, nothing useful to write
		s.logger.DebugWithFields("analysis request canceled",
			logging.Field("request_id", RequestID(r.Context())))
	default:
		s.logger.ErrorWithFields("analysis failed",
			logging.Field("error", err),
			logging.Field("request_id", RequestID(r.Context())))
		writeError(w, http.StatusInternalServerError, ErrorCodeInternal, "analysis failed")
	}
}

// handleRefresh reloads the corpus from its source and rebuilds the semantic
// index against it.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	c, err := s.source.Reload(r.Context())
	if err != nil {
		s.logger.ErrorWithErr("corpus reload failed", err)
		writeError(w, http.StatusInternalServerError, ErrorCodeInternal, "corpus reload failed: "+err.Error())
		return
	}

	if err := s.engine.RefreshIndex(r.Context(), c); err != nil {
		switch {
		case errors.Is(err, models.ErrEmptyCorpus):
			writeError(w, http.StatusUnprocessableEntity, ErrorCodeEmptyCorpus, err.Error())
		case errors.Is(err, models.ErrIndexUnavailable):
			writeError(w, http.StatusServiceUnavailable, ErrorCodeIndexUnavailable, err.Error())
		default:
			s.logger.ErrorWithErr("index refresh failed", err)
			writeError(w, http.StatusInternalServerError, ErrorCodeInternal, "index refresh failed")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = writeJSON(w, RefreshResponse{IndexedEntries: c.Len(), Fingerprint: c.Fingerprint()})
}

// handleStats reports corpus composition.
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	c := s.source.Snapshot()
	if c == nil {
		writeError(w, http.StatusServiceUnavailable, ErrorCodeEmptyCorpus, "no corpus loaded")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = writeJSON(w, c.Stats())
}
