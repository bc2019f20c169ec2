package session

import (
	"fmt"

	"github.com/scraptool/corefetch/internal/toolerr"
	"github.com/scraptool/corefetch/pkg/failure"
)

type SessionErrorCause string

const (
	ErrCauseNotFound       SessionErrorCause = "session_not_found"
	ErrCausePermission     SessionErrorCause = "permission_denied"
	ErrCauseInvalidChunk   SessionErrorCause = "invalid_chunk_index"
	ErrCauseContentTooBig  SessionErrorCause = "content_too_large"
	ErrCauseInvalidArg     SessionErrorCause = "invalid_argument"
	ErrCauseStorageFailure SessionErrorCause = "storage_failure"
)

// SessionError is the typed error raised by the session store.
type SessionError struct {
	Message string
	Cause   SessionErrorCause
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session error (%s): %s", e.Cause, e.Message)
}

func (e *SessionError) Severity() failure.Severity {
	return failure.SeverityFatal
}

func (e *SessionError) ToolCode() toolerr.Code {
	switch e.Cause {
	case ErrCauseNotFound:
		return toolerr.CodeSessionNotFound
	case ErrCausePermission:
		return toolerr.CodePermissionDenied
	case ErrCauseInvalidChunk:
		return toolerr.CodeInvalidChunkIndex
	case ErrCauseContentTooBig:
		return toolerr.CodeContentTooLarge
	case ErrCauseInvalidArg:
		return toolerr.CodeInvalidArgument
	default:
		return toolerr.CodeInternalError
	}
}
