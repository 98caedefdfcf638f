package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the per-call correlation id.
const RequestIDHeader = "X-Request-ID"

// loggingTransport stamps each outgoing request with a request id and logs
// its outcome.
type loggingTransport struct {
	next   http.RoundTripper
	logger *slog.Logger
}

func newLoggingTransport(next http.RoundTripper, logger *slog.Logger) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &loggingTransport{next: next, logger: logger}
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	id := req.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
		req = req.Clone(req.Context())
		req.Header.Set(RequestIDHeader, id)
	}

	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		t.logger.Warn("API request failed",
			"method", req.Method, "path", req.URL.Path, "request_id", id,
			"duration", time.Since(start), "err", err)
		return nil, err
	}
	t.logger.Debug("API request",
		"method", req.Method, "path", req.URL.Path, "status", resp.StatusCode,
		"request_id", id, "duration", time.Since(start))
	return resp, nil
}
