package api

// Machine-readable error codes returned in API error payloads. Clients
// switch on these, not on messages.
const (
	// ErrorCodeInvalidRequest marks malformed request bodies or parameters
	ErrorCodeInvalidRequest = "invalid_request"

	// ErrorCodeInvalidQuery marks queries the engine rejected
	ErrorCodeInvalidQuery = "invalid_query"

	// ErrorCodeEmptyCorpus marks requests against no log entries
	ErrorCodeEmptyCorpus = "empty_corpus"

	// ErrorCodeIndexUnavailable marks refresh calls without a semantic index
	ErrorCodeIndexUnavailable = "index_unavailable"

	// ErrorCodeMethodNotAllowed marks requests with the wrong HTTP method
	ErrorCodeMethodNotAllowed = "method_not_allowed"

	// ErrorCodeTooManyRequests marks requests over the concurrency limit
	ErrorCodeTooManyRequests = "too_many_requests"

	// ErrorCodeInternal marks unexpected server-side failures
	ErrorCodeInternal = "internal"
)

// ErrorResponse is the error payload shape for every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
