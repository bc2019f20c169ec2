package robots

import (
	"fmt"

	"github.com/scraptool/corefetch/pkg/failure"
)

type RobotsErrorCause string

const (
	ErrCauseInvalidURL   RobotsErrorCause = "invalid robots.txt URL"
	ErrCauseFetchFailure RobotsErrorCause = "failed to fetch robots.txt"
	ErrCauseParseFailure RobotsErrorCause = "failed to parse robots.txt"
)

// RobotsError is raised only for conditions the caller must react to
// (none currently terminal — fetch/parse failures degrade to fail-open
// and are reported through the logger instead). It is kept as a typed
// error for symmetry with the other components and for future callers
// that want to distinguish cache corruption from a clean miss.
type RobotsError struct {
	Message   string
	Retryable bool
	Cause     RobotsErrorCause
}

func (e *RobotsError) Error() string {
	return fmt.Sprintf("robots error: %s: %s", e.Cause, e.Message)
}

func (e *RobotsError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *RobotsError) IsRetryable() bool {
	return e.Retryable
}
