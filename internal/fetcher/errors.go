package fetcher

import (
	"fmt"

	"github.com/scraptool/corefetch/internal/toolerr"
	"github.com/scraptool/corefetch/pkg/failure"
)

type FetchErrorCause string

const (
	ErrCauseInvalidURL     FetchErrorCause = "invalid url"
	ErrCauseRobotsBlocked  FetchErrorCause = "blocked by robots.txt"
	ErrCauseTimeout        FetchErrorCause = "timeout"
	ErrCauseConnection     FetchErrorCause = "connection failure"
	ErrCauseNotFound       FetchErrorCause = "not found"
	ErrCauseAccessDenied   FetchErrorCause = "access denied"
	ErrCauseRateLimited    FetchErrorCause = "rate limited"
	ErrCauseServerError    FetchErrorCause = "server error"
	ErrCauseReadBodyFailed FetchErrorCause = "failed to read response body"
)

// FetchError is the typed internal error raised by the fetch pipeline. Its
// Cause maps 1:1 onto a toolerr.Code via ToolCode so every caller-facing
// surface reports the same taxonomy.
type FetchError struct {
	Message   string
	Retryable bool
	Cause     FetchErrorCause
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch error: %s: %s", e.Cause, e.Message)
}

func (e *FetchError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *FetchError) IsRetryable() bool {
	return e.Retryable
}

// ToolCode maps the fetcher's internal error taxonomy to the wire-level
// codes callers (dispatcher, REST surface) report.
func (e *FetchError) ToolCode() toolerr.Code {
	switch e.Cause {
	case ErrCauseInvalidURL:
		return toolerr.CodeInvalidURL
	case ErrCauseRobotsBlocked:
		return toolerr.CodeRobotsBlocked
	case ErrCauseTimeout:
		return toolerr.CodeTimeoutError
	case ErrCauseConnection:
		return toolerr.CodeConnectionError
	case ErrCauseNotFound:
		return toolerr.CodeURLNotFound
	case ErrCauseAccessDenied:
		return toolerr.CodeAccessDenied
	case ErrCauseRateLimited:
		return toolerr.CodeRateLimited
	default:
		return toolerr.CodeFetchError
	}
}
