package middleware

import (
	"net/http"

	"github.com/Merchously/iRun/internal"
	"github.com/Merchously/iRun/pkg/logger"

	"github.com/google/uuid"
)

const TraceIDHeader = "X-Trace-ID"

// RequestID tags the request logger with a trace id, taken from the caller when present.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		ctx := logger.With(r.Context(), "trace_id", traceID)
		w.Header().Set(TraceIDHeader, traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PeerAddress stores the connection address. It must run before chi's RealIP rewrites RemoteAddr.
func PeerAddress(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := internal.ContextWithPeerAddress(r.Context(), internal.PeerAddress(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SourceAddress stores the client address for the audit trail.
func SourceAddress(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := internal.ContextWithSourceAddress(r.Context(), internal.SourceAddress(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
