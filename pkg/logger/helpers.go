package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs one finished HTTP exchange at a level chosen by status
func LogRequest(l Logger, method, url string, statusCode int, duration time.Duration, extra map[string]interface{}) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}
	for k, v := range extra {
		fields[k] = v
	}

	switch {
	case statusCode >= 200 && statusCode < 400:
		l.DebugWithFields("HTTP request completed", fields)
	case statusCode >= 400 && statusCode < 500:
		l.WarnWithFields("HTTP request client error", fields)
	case statusCode >= 500:
		l.ErrorWithFields("HTTP request server error", fields)
	default:
		l.ErrorWithFields("HTTP request failed", fields)
	}
}

// LogRateLimit logs a wait imposed by the client side limiter
func LogRateLimit(l Logger, endpoint string, waited time.Duration) {
	l.WithFields(map[string]interface{}{
		"endpoint": endpoint,
		"waited":   waited,
		"action":   "rate_limited",
	}).Debug("Waited for rate limiter")
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
