package response

import (
	"net/http"
	"time"

	"github.com/nicolastakashi/query-profiler-panel/internal/capture"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	bodySize    int
	wroteHeader bool
}

func NewResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

// WriteHeader to capture status code
func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.wroteHeader {
		rw.statusCode = statusCode
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Write to count the body size
func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bodySize += n
	return n, err
}

// Flush lets streaming upstream responses through the recorder.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func (rw *responseWriter) GetStatusCode() int {
	return rw.statusCode
}

func (rw *responseWriter) GetBodySize() int {
	return rw.bodySize
}

// Exchange snapshots the recorded response as a finished exchange for req.
func (rw *responseWriter) Exchange(req *http.Request, elapsed time.Duration) capture.Exchange {
	return capture.Exchange{
		URL:        requestURL(req),
		Method:     req.Method,
		StatusCode: rw.statusCode,
		Elapsed:    elapsed,
		Headers:    capture.HeadersFrom(rw.ResponseWriter.Header()),
	}
}

// requestURL rebuilds the absolute URL the client asked for.
func requestURL(req *http.Request) string {
	u := *req.URL
	if u.Host == "" {
		u.Host = req.Host
	}
	if u.Scheme == "" {
		u.Scheme = "http"
		if req.TLS != nil {
			u.Scheme = "https"
		}
	}
	return u.String()
}
