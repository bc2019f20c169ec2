package obslog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/scraptool/corefetch/pkg/failure"
	"github.com/scraptool/corefetch/pkg/retry"
	"github.com/scraptool/corefetch/pkg/timeutil"
)

const (
	sinkMaxAttempts = 3
	sinkBaseDelay   = 200 * time.Millisecond
	sinkJitter      = 100 * time.Millisecond
	sinkBackoffCap  = 2 * time.Second
)

// HTTPSink posts each event as a JSON body to a configured collector URL
// with an optional bearer API key. Transient failures (network errors,
// 5xx, 429) are retried with exponential backoff; a 4xx response is
// treated as non-retryable, since the sink rejected the request shape
// rather than a transient condition.
type HTTPSink struct {
	client *http.Client
	url    string
	apiKey string
}

func NewHTTPSink(url, apiKey string) *HTTPSink {
	return &HTTPSink{
		client: &http.Client{Timeout: 5 * time.Second},
		url:    url,
		apiKey: apiKey,
	}
}

// sinkError wraps a single-attempt failure with whether it's worth retrying.
type sinkError struct {
	err       error
	retryable bool
}

func (e *sinkError) Error() string { return e.err.Error() }

func (e *sinkError) Severity() failure.Severity {
	if e.retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *sinkError) IsRetryable() bool { return e.retryable }

func (s *HTTPSink) Send(event map[string]any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("obslog: marshaling event: %w", err)
	}

	params := retry.NewRetryParam(
		sinkBaseDelay,
		sinkJitter,
		time.Now().UnixNano(),
		sinkMaxAttempts,
		timeutil.NewBackoffParam(sinkBaseDelay, 2.0, sinkBackoffCap),
	)

	result := retry.Retry(params, func() (struct{}, failure.ClassifiedError) {
		if err := s.post(body); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if result.IsFailure() {
		return fmt.Errorf("obslog: sending event: %w", result.Err())
	}
	return nil
}

// post performs a single delivery attempt, classifying the failure so the
// retry loop knows whether it's worth another attempt.
func (s *HTTPSink) post(body []byte) failure.ClassifiedError {
	req, err := http.NewRequest(http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return &sinkError{err: err, retryable: false}
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return &sinkError{err: err, retryable: true}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &sinkError{err: fmt.Errorf("sink returned status %d", resp.StatusCode), retryable: true}
	default:
		return &sinkError{err: fmt.Errorf("sink returned status %d", resp.StatusCode), retryable: false}
	}
}
