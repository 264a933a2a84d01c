package transport

import (
	"log/slog"
	"net/http"
	"time"

	"finsync/internal/log"
)

// HeaderRequestID carries the per-call id used to correlate client and
// server logs.
const HeaderRequestID = "X-Request-ID"

// loggingTransport records every outbound round trip.
type loggingTransport struct {
	base   http.RoundTripper
	logger *log.Logger
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	duration := time.Since(start)

	fields := log.NewFields().
		WithRequestID(req.Header.Get(HeaderRequestID)).
		WithHTTPRequest(req.Method, req.URL.Path, req.URL.RawQuery)

	if err != nil {
		t.logger.WarnContext(req.Context(), "Outbound request failed",
			append(fields.WithError(err).ToSlice(), log.FieldDuration, duration.Milliseconds())...)
		return nil, err
	}

	level := slog.LevelDebug
	if resp.StatusCode >= 500 {
		level = slog.LevelWarn
	}
	t.logger.LogContext(req.Context(), level, "Outbound request completed",
		fields.WithHTTPResponse(resp.StatusCode, duration.Milliseconds(), resp.StatusCode < 400).ToSlice()...)
	return resp, nil
}
