package web

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ctxKey is an unexported context key type to avoid collisions.
type ctxKey string

const requestIDKey ctxKey = "request_id"

// RequestID ensures every request carries an X-Request-Id header, generating
// a UUID when the client sent none, and mirrors it onto the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFrom returns the request's ID, or "" when RequestID did not run.
func RequestIDFrom(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey).(string); ok {
		return id
	}
	return r.Header.Get("X-Request-Id")
}

// RequestLogger returns middleware that logs every request with method,
// path, status code, and duration, at a level keyed to the status code.
func RequestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)

			evt := statusEvent(log, sw.status).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sw.status).
				Int64("duration_ms", time.Since(start).Milliseconds())
			if id := RequestIDFrom(r); id != "" {
				evt = evt.Str("request_id", id)
			}
			evt.Msg("request completed")
		})
	}
}

// statusEvent picks the log level for a response status.
func statusEvent(log zerolog.Logger, status int) *zerolog.Event {
	switch {
	case status >= 500:
		return log.Error()
	case status >= 400:
		return log.Warn()
	default:
		return log.Debug()
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
// It delegates Flush and Unwrap so streaming responses keep working.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func newStatusWriter(w http.ResponseWriter) *statusWriter {
	return &statusWriter{ResponseWriter: w, status: http.StatusOK}
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.status = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if !sw.wroteHeader {
		sw.wroteHeader = true
	}
	return sw.ResponseWriter.Write(b)
}

// Flush implements http.Flusher, required for streaming and SSE responses.
func (sw *statusWriter) Flush() {
	if f, ok := sw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter so http.ResponseController
// can discover optional interfaces on the original writer.
func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}
