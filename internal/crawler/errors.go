package crawler

import (
	"fmt"

	"github.com/scraptool/corefetch/internal/toolerr"
	"github.com/scraptool/corefetch/pkg/failure"
)

type CrawlErrorCause string

const (
	ErrCauseInvalidStartURL CrawlErrorCause = "invalid_start_url"
)

// CrawlError is raised only for malformed input; per-page fetch failures
// never reach this type, they are recorded in CrawlResult.Failed instead.
type CrawlError struct {
	Message string
	Cause   CrawlErrorCause
}

func (e *CrawlError) Error() string {
	return fmt.Sprintf("crawl error (%s): %s", e.Cause, e.Message)
}

func (e *CrawlError) Severity() failure.Severity {
	return failure.SeverityFatal
}

func (e *CrawlError) ToolCode() toolerr.Code {
	return toolerr.CodeInvalidURL
}
