package api

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/Chandanbam/openstack-rca-system/internal/logging"
)

// requestIDHeader carries the per-request id on requests and responses.
const requestIDHeader = "X-Request-ID"

type contextKey int

const requestIDKey contextKey = iota

// RequestID returns the request id assigned by the middleware, empty when
// called outside a request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// withRequestID assigns each request an id, honoring one the client sent.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRequestLog emits one structured line per request.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.InfoWithFields("request handled",
			logging.Field("method", r.Method),
			logging.Field("path", r.URL.Path),
			logging.Field("status", rec.status),
			logging.Field("duration_ms", time.Since(start).Milliseconds()),
			logging.Field("request_id", RequestID(r.Context())))
	})
}

// withRecovery converts handler panics into 500 responses instead of killing
// the connection.
func (s *Server) withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				buf := make([]byte, 4096)
				n := runtime.Stack(buf, false)
				s.logger.ErrorWithFields("panic in request handler",
					logging.Field("panic", rec),
					logging.Field("path", r.URL.Path),
					logging.Field("request_id", RequestID(r.Context())),
					logging.Field("stack", string(buf[:n])))
				writeError(w, http.StatusInternalServerError, ErrorCodeInternal, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// withMethod wraps a handler to enforce the HTTP method.
func (s *Server) withMethod(method string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			writeError(w, http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed,
				"method "+r.Method+" not allowed for "+r.URL.Path)
			return
		}
		handler(w, r)
	}
}
