package client

import "fmt"

// AnalyzeParams are the caller-facing analysis options.
type AnalyzeParams struct {
	Query string
	Mode  string
	From  string
	To    string
}

// analyzeRequest is the analyze endpoint wire shape.
type analyzeRequest struct {
	Query  string         `json:"query"`
	Mode   string         `json:"mode,omitempty"`
	Window *windowRequest `json:"window,omitempty"`
}

type windowRequest struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// RefreshResult is the index refresh response.
type RefreshResult struct {
	IndexedEntries int    `json:"indexed_entries"`
	Fingerprint    string `json:"fingerprint"`
}

// errorPayload is the API's error body.
type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// APIError is a non-200 response from the RCA API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("rca api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("rca api error %d: %s", e.StatusCode, e.Message)
}
