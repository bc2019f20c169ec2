package structure

import (
	"fmt"

	"github.com/scraptool/corefetch/internal/toolerr"
	"github.com/scraptool/corefetch/pkg/failure"
)

type AnalysisErrorCause string

const (
	ErrCauseSelectorNotFound AnalysisErrorCause = "selector_not_found"
	ErrCauseInvalidSelector  AnalysisErrorCause = "invalid_selector"
	ErrCauseEncoding         AnalysisErrorCause = "encoding_error"
)

// AnalysisError is the typed error raised by the structure analyzer. Its
// causes mirror the extractor's: the two components share an input
// contract (HTML + base URL + optional selector).
type AnalysisError struct {
	Message string
	Cause   AnalysisErrorCause
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("structure analysis error (%s): %s", e.Cause, e.Message)
}

func (e *AnalysisError) Severity() failure.Severity {
	return failure.SeverityFatal
}

func (e *AnalysisError) ToolCode() toolerr.Code {
	switch e.Cause {
	case ErrCauseSelectorNotFound:
		return toolerr.CodeSelectorNotFound
	case ErrCauseInvalidSelector:
		return toolerr.CodeInvalidSelector
	case ErrCauseEncoding:
		return toolerr.CodeEncodingError
	default:
		return toolerr.CodeExtractionError
	}
}
