// Package obslog is the structured event sink every component logs
// through. It replaces the ad-hoc metadata recorder with a proper
// zerolog-backed logger: the same Record*-shaped methods
// (RecordFetch, RecordRetry, RecordError, RecordArtifact, RecordEvent)
// pipeline packages call, now backed by real structured output, field
// redaction, truncation, and an optional remote sink.
package obslog

import (
	"context"
	"io"
	"os"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const maxFieldValueLen = 4096

var redactedKeyPattern = regexp.MustCompile(`(?i)(token|secret|password|authorization|api_key)`)

// base64OrHexOrJWT matches long opaque-looking values worth masking even
// when the key name itself doesn't look sensitive.
var base64OrHexOrJWT = regexp.MustCompile(`^[A-Za-z0-9_\-\.+/=]{32,}$`)

const redactedPlaceholder = "[REDACTED]"

// RemoteSink is the pluggable transport for shipping events off-box.
// Implementations must be non-blocking or bound their own buffering;
// the Logger treats any error from Send as sink failure.
type RemoteSink interface {
	Send(event map[string]any) error
}

// Logger is the event sink every component records through.
type Logger struct {
	zl     zerolog.Logger
	remote RemoteSink
	mu     sync.Mutex
	// degraded is set once the remote sink has failed, so the logger
	// only emits logging_sink_degraded the first time, not every call.
	degraded bool
}

// New builds a Logger writing structured JSON to w (typically os.Stdout).
func New(w io.Writer, serviceName string) *Logger {
	zl := zerolog.New(w).With().Timestamp().Str("service", serviceName).Logger()
	return &Logger{zl: zl}
}

// NewForTest builds a Logger writing to os.Stderr, convenient for tests
// that don't assert on log output.
func NewForTest() *Logger {
	return New(os.Stderr, "corefetch-test")
}

// WithRemoteSink attaches a remote transport. Nil disables it.
func (l *Logger) WithRemoteSink(sink RemoteSink) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.remote = sink
	return l
}

func redactValue(key, value string) string {
	if redactedKeyPattern.MatchString(key) {
		return redactedPlaceholder
	}
	if len(value) >= 32 && base64OrHexOrJWT.MatchString(value) {
		return redactedPlaceholder
	}
	if len(value) > maxFieldValueLen {
		return value[:maxFieldValueLen] + "...[truncated]"
	}
	return value
}

// RecordEvent emits a free-form structured event. level is one of
// "debug", "info", "warn", "error".
func (l *Logger) RecordEvent(ctx context.Context, level, event string, fields map[string]string) {
	f := FromContext(ctx)
	ev := l.zl.WithLevel(zerolog.InfoLevel)
	switch level {
	case "debug":
		ev = l.zl.Debug()
	case "warn":
		ev = l.zl.Warn()
	case "error":
		ev = l.zl.Error()
	}
	ev = ev.Str("event", event)
	if f.RequestID != "" {
		ev = ev.Str("request_id", f.RequestID)
	}
	if f.SessionID != "" {
		ev = ev.Str("session_id", f.SessionID)
	}
	if f.Group != "" {
		ev = ev.Str("group", f.Group)
	}
	payload := map[string]any{"event": event}
	for k, v := range fields {
		rv := redactValue(k, v)
		ev = ev.Str(k, rv)
		payload[k] = rv
	}
	ev.Msg(event)
	l.sendRemote(payload)
}

// RecordFetch logs the outcome of a single HTTP fetch attempt.
func (l *Logger) RecordFetch(ctx context.Context, targetURL string, httpStatus int, duration time.Duration, contentType string, retryCount, crawlDepth int) {
	l.RecordEvent(ctx, "info", "fetch_completed", map[string]string{
		"url":          targetURL,
		"http_status":  strconv.Itoa(httpStatus),
		"duration_ms":  strconv.Itoa(int(duration.Milliseconds())),
		"content_type": contentType,
		"retry_count":  strconv.Itoa(retryCount),
		"crawl_depth":  strconv.Itoa(crawlDepth),
	})
}

// RecordRetry logs a single retry attempt.
func (l *Logger) RecordRetry(ctx context.Context, urlHost string, attempt int, delay time.Duration, causeType string) {
	l.RecordEvent(ctx, "warn", "fetch_retry", map[string]string{
		"dependency": "target_site",
		"url_host":   urlHost,
		"attempt":    strconv.Itoa(attempt),
		"delay_ms":   strconv.Itoa(int(delay.Milliseconds())),
		"cause_type": causeType,
	})
}

// RecordError logs a structured error event at a component boundary, with
// operation/stage/dependency/cause_type/remediation as its standard fields.
func (l *Logger) RecordError(ctx context.Context, component, operation, stage, dependency, causeType, remediation, message string) {
	l.RecordEvent(ctx, "error", "error", map[string]string{
		"component":   component,
		"operation":   operation,
		"stage":       stage,
		"dependency":  dependency,
		"cause_type":  causeType,
		"remediation": remediation,
		"message":     message,
	})
}

// RecordArtifact logs the creation of a durable artifact (a session blob,
// a pruned file, ...).
func (l *Logger) RecordArtifact(ctx context.Context, kind, path string) {
	l.RecordEvent(ctx, "info", "artifact_recorded", map[string]string{
		"kind": kind,
		"path": path,
	})
}

func (l *Logger) sendRemote(payload map[string]any) {
	l.mu.Lock()
	sink := l.remote
	l.mu.Unlock()
	if sink == nil {
		return
	}
	if err := sink.Send(payload); err != nil {
		l.mu.Lock()
		alreadyDegraded := l.degraded
		l.degraded = true
		l.mu.Unlock()
		if !alreadyDegraded {
			l.zl.Warn().Str("event", "logging_sink_degraded").Str("cause", err.Error()).Msg("logging_sink_degraded")
		}
	}
}

