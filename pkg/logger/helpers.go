package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs a served HTTP request at a level derived from its status.
func LogRequest(l Logger, method, path string, statusCode int, duration time.Duration, requestID string) {
	fields := map[string]interface{}{
		"method":      method,
		"path":        path,
		"status_code": statusCode,
		"duration":    duration,
		"request_id":  requestID,
	}

	switch {
	case statusCode >= 500:
		l.ErrorWithFields("HTTP request server error", fields)
	case statusCode >= 400:
		l.WarnWithFields("HTTP request client error", fields)
	default:
		l.InfoWithFields("HTTP request completed", fields)
	}
}

// LogPage logs one fetched upstream page.
func LogPage(l Logger, username string, page int, cursor int64, posts, noise int) {
	l.DebugWithFields("Page fetched", map[string]interface{}{
		"username": username,
		"page":     page,
		"cursor":   cursor,
		"posts":    posts,
		"noise":    noise,
	})
}

// LogExport logs the outcome of a completed export.
func LogExport(l Logger, username string, pages, records int, duration time.Duration, err error) {
	fields := map[string]interface{}{
		"username": username,
		"pages":    pages,
		"records":  records,
		"duration": duration,
	}

	if err != nil {
		l.WithError(err).ErrorWithFields("Export failed", fields)
		return
	}
	l.InfoWithFields("Export completed", fields)
}

// NewNopLogger creates a no-operation logger for testing
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
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
