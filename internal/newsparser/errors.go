package newsparser

import (
	"github.com/scraptool/corefetch/internal/toolerr"
	"github.com/scraptool/corefetch/pkg/failure"
)

// ParseErrorCause distinguishes the fatal, whole-call failures from the
// per-story degradations the parser absorbs internally.
type ParseErrorCause string

const (
	ErrCauseCrawlInput     ParseErrorCause = "crawl_input"
	ErrCauseSourceProfile  ParseErrorCause = "source_profile"
	ErrCauseDateParse      ParseErrorCause = "date_parse"
	ErrCauseDeduplication  ParseErrorCause = "deduplication"
)

// ParseError is returned only for whole-call failures: CrawlInputError and
// SourceProfileError. DateParseError and DeduplicationError are caught
// per-story and degrade that story instead of failing the call.
type ParseError struct {
	Message string
	Cause   ParseErrorCause
}

func (e *ParseError) Error() string {
	return string(e.Cause) + ": " + e.Message
}

func (e *ParseError) Severity() failure.Severity {
	return failure.SeverityFatal
}

func (e *ParseError) ToolCode() toolerr.Code {
	return toolerr.CodeParseError
}
