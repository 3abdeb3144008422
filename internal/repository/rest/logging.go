package rest

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

type loggingTransport struct {
	next http.RoundTripper
	log  *zap.Logger
}

// LoggingTransport returns a RoundTripper that logs request metadata.
// Bodies and headers are never logged.
func LoggingTransport(next http.RoundTripper, log *zap.Logger) http.RoundTripper {
	return &loggingTransport{next: next, log: log}
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Duration("dur", time.Since(start)),
	}
	if err != nil {
		t.log.Warn("http", append(fields, zap.Error(err))...)
		return resp, err
	}
	t.log.Debug("http", append(fields, zap.Int("status", resp.StatusCode))...)
	return resp, nil
}
