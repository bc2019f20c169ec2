package extractor

import (
	"fmt"

	"github.com/scraptool/corefetch/internal/toolerr"
	"github.com/scraptool/corefetch/pkg/failure"
)

// ExtractionErrorCause classifies why extraction failed.
type ExtractionErrorCause string

const (
	ErrCauseSelectorNotFound ExtractionErrorCause = "selector_not_found"
	ErrCauseInvalidSelector  ExtractionErrorCause = "invalid_selector"
	ErrCauseEncoding         ExtractionErrorCause = "encoding_error"
	ErrCauseNoContent        ExtractionErrorCause = "no_content"
)

// ExtractionError is the typed error raised by the extractor. It is never
// retried; extraction failures are always terminal for the call that
// triggered them.
type ExtractionError struct {
	Message string
	Cause   ExtractionErrorCause
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction error (%s): %s", e.Cause, e.Message)
}

func (e *ExtractionError) Severity() failure.Severity {
	return failure.SeverityFatal
}

// ToolCode maps the extractor's internal cause to the wire-level taxonomy.
func (e *ExtractionError) ToolCode() toolerr.Code {
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
