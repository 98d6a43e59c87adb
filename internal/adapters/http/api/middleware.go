package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/morywal/CalendarApp/pkg/logger"
	"github.com/morywal/CalendarApp/pkg/metrics"
)

// instrument records request count and latency for endpoint, and counts
// failed responses under the same code the error body carries.
func (s *Server) instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(rec, r)

		took := time.Since(start)
		status := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, float64(took.Microseconds())/1000)

		if rec.status >= http.StatusBadRequest {
			metrics.RecordErrorByComponent("http", statusCode(rec.status))
			s.logger.Debug(r.Context(), "request rejected",
				logger.String("endpoint", endpoint),
				logger.String("user", r.PathValue("user")),
				logger.Int("status", rec.status),
				logger.Duration("took", took),
			)
		}
	}
}

// statusCode maps a response status onto the error body code fail writes.
func statusCode(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return "backpressure"
	case status == http.StatusServiceUnavailable:
		return "unavailable"
	case status >= http.StatusInternalServerError:
		return "internal"
	case status == http.StatusNotFound:
		return "not_found"
	default:
		return "bad_request"
	}
}

// statusRecorder remembers the first status written through it.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}
