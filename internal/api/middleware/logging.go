package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func wrap(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler, logger *logrus.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := wrap(w)

		// Call next handler
		next.ServeHTTP(wrapped, r)

		fields := logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      wrapped.statusCode,
			"duration_ms": time.Since(start).Milliseconds(),
			"remote_addr": r.RemoteAddr,
		}
		if id := RequestIDFromContext(r.Context()); id != "" {
			fields["request_id"] = id
		}
		if sc := trace.SpanContextFromContext(r.Context()); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
		}
		if err := r.Context().Err(); err != nil {
			fields["canceled"] = true
		}

		// Log request
		logger.WithFields(fields).Info("HTTP request")
	})
}
