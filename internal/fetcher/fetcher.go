// Package fetcher implements the HTTP fetch pipeline: URL validation,
// robots.txt consultation, per-host rate limiting, anti-detection profile
// headers, retry with exponential backoff honoring Retry-After, and status
// classification into the shared error taxonomy.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/scraptool/corefetch/internal/antidetect"
	"github.com/scraptool/corefetch/internal/obslog"
	"github.com/scraptool/corefetch/internal/robots"
	"github.com/scraptool/corefetch/pkg/limiter"
	"github.com/scraptool/corefetch/pkg/timeutil"
)

const (
	maxRetries        = 3
	backoffBase       = 1 * time.Second
	backoffCap        = 30 * time.Second
	backoffMultiplier = 2.0
	backoffJitter     = 250 * time.Millisecond
)

var retryableStatuses = map[int]bool{
	http.StatusTooManyRequests:    true,
	http.StatusBadGateway:         true,
	http.StatusServiceUnavailable: true,
	http.StatusGatewayTimeout:     true,
}

// Fetcher performs a single fetch: validate, check robots.txt, wait on the
// rate limiter, apply the current anti-detection profile, and retry
// transient failures with backoff.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (FetchResult, *FetchError)
}

// HTTPFetcher is the default Fetcher, wiring together the robots checker,
// the rate limiter, and the current anti-detection profile.
type HTTPFetcher struct {
	client        *http.Client
	rateLimiter   limiter.RateLimiter
	robotsChecker *robots.Checker
	profiles      *antidetect.Current
	logger        *obslog.Logger
	rng           *rand.Rand
	backoffBase   time.Duration
	backoffCap    time.Duration
}

// NewHTTPFetcher builds a fetcher backed by a plain net/http client. A
// TLS-fingerprinting client is an external collaborator, out of scope
// here, and would be supplied here instead in a production wiring.
func NewHTTPFetcher(rl limiter.RateLimiter, rc *robots.Checker, profiles *antidetect.Current, logger *obslog.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		client:        &http.Client{},
		rateLimiter:   rl,
		robotsChecker: rc,
		profiles:      profiles,
		logger:        logger,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		backoffBase:   backoffBase,
		backoffCap:    backoffCap,
	}
}

// WithBackoff overrides the retry backoff base/cap, for deterministic tests
// that exercise the retry loop without waiting out real delays.
func (f *HTTPFetcher) WithBackoff(base, cap time.Duration) *HTTPFetcher {
	f.backoffBase = base
	f.backoffCap = cap
	return f
}

func (f *HTTPFetcher) Fetch(ctx context.Context, req FetchRequest) (FetchResult, *FetchError) {
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return FetchResult{}, &FetchError{Message: "scheme must be http or https", Cause: ErrCauseInvalidURL}
	}
	if req.URL.Host == "" {
		return FetchResult{}, &FetchError{Message: "url has no host", Cause: ErrCauseInvalidURL}
	}

	if req.RespectRobots {
		decision := f.robotsChecker.Allowed(ctx, req.URL, true)
		if decision.CrawlDelay > 0 {
			f.rateLimiter.SetCrawlDelay(req.URL.Host, decision.CrawlDelay)
		}
		if !decision.Allowed {
			return FetchResult{}, &FetchError{Message: "disallowed by robots.txt", Cause: ErrCauseRobotsBlocked}
		}
	}

	f.rateLimiter.Await(ctx, req.URL.Host)

	snapshot := f.profiles.Snapshot()
	timeout := req.ResolvedTimeout()
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result, fetchErr, retryCount := f.fetchWithRetry(fetchCtx, req.URL, snapshot)
	elapsed := time.Since(start)

	var statusCode int
	var contentType string
	if fetchErr == nil {
		statusCode = result.HTTPStatus
		contentType = result.ContentType
		result.ElapsedMs = elapsed.Milliseconds()
	}
	if f.logger != nil {
		f.logger.RecordFetch(ctx, req.URL.String(), statusCode, elapsed, contentType, retryCount, 0)
	}

	if fetchErr != nil {
		if f.logger != nil {
			f.logger.RecordError(ctx, "fetcher", "Fetch", "execute", "target_site", string(fetchErr.Cause), "see recovery hint", fetchErr.Message)
		}
		return FetchResult{}, fetchErr
	}
	return result, nil
}

// fetchWithRetry executes the request, retrying retryable outcomes up to
// maxRetries times with exponential backoff, honoring Retry-After when the
// server supplies one.
func (f *HTTPFetcher) fetchWithRetry(ctx context.Context, target url.URL, snapshot antidetect.Snapshot) (FetchResult, *FetchError, int) {
	var lastErr *FetchError

	for attempt := 0; attempt <= maxRetries; attempt++ {
		result, fetchErr, retryAfter := f.performFetch(ctx, target, snapshot)
		if fetchErr == nil {
			return result, nil, attempt
		}
		lastErr = fetchErr

		if !fetchErr.Retryable || attempt == maxRetries {
			return FetchResult{}, fetchErr, attempt
		}

		delay := f.backoffDelay(attempt + 1)
		if retryAfter > 0 && retryAfter < f.backoffCap {
			delay = retryAfter
		} else if retryAfter >= f.backoffCap {
			delay = f.backoffCap
		}

		if f.logger != nil {
			f.logger.RecordRetry(ctx, target.Host, attempt+1, delay, string(fetchErr.Cause))
		}

		select {
		case <-ctx.Done():
			return FetchResult{}, &FetchError{Message: "context canceled during retry backoff", Retryable: false, Cause: ErrCauseTimeout}, attempt
		case <-time.After(delay):
		}
	}
	return FetchResult{}, lastErr, maxRetries
}

func (f *HTTPFetcher) backoffDelay(attempt int) time.Duration {
	param := timeutil.NewBackoffParam(f.backoffBase, backoffMultiplier, f.backoffCap)
	return timeutil.ExponentialBackoffDelay(attempt, backoffJitter, *f.rng, param)
}

// performFetch executes exactly one HTTP attempt and classifies the outcome.
// It returns a Retry-After duration (0 if absent) so the caller can honor it.
func (f *HTTPFetcher) performFetch(ctx context.Context, target url.URL, snapshot antidetect.Snapshot) (FetchResult, *FetchError, time.Duration) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return FetchResult{}, &FetchError{Message: err.Error(), Retryable: false, Cause: ErrCauseInvalidURL}, 0
	}
	applyProfileHeaders(req, snapshot.Profile)

	resp, err := f.client.Do(req)
	if err != nil {
		return FetchResult{}, classifyTransportError(err), 0
	}
	defer resp.Body.Close()

	retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))

	if retryableStatuses[resp.StatusCode] {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("retryable status %d", resp.StatusCode),
			Retryable: true,
			Cause:     classifyRetryableCause(resp.StatusCode),
		}, retryAfter
	}

	if resp.StatusCode == http.StatusNotFound {
		return FetchResult{}, &FetchError{Message: "404 not found", Retryable: false, Cause: ErrCauseNotFound}, 0
	}
	if resp.StatusCode == http.StatusForbidden {
		return FetchResult{}, &FetchError{Message: "403 forbidden", Retryable: false, Cause: ErrCauseAccessDenied}, 0
	}
	if resp.StatusCode >= 500 {
		return FetchResult{}, &FetchError{Message: fmt.Sprintf("server error %d", resp.StatusCode), Retryable: false, Cause: ErrCauseServerError}, 0
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FetchResult{}, &FetchError{Message: err.Error(), Retryable: true, Cause: ErrCauseReadBodyFailed}, 0
	}

	contentType := resp.Header.Get("Content-Type")
	decoded, charsetUsed := decodeBody(body, contentType)

	headers := make(map[string]string, len(resp.Header))
	for key, values := range resp.Header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}

	finalURL := target
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = *resp.Request.URL
	}

	return FetchResult{
		URL:          target,
		FinalURL:     finalURL,
		HTTPStatus:   resp.StatusCode,
		ContentBytes: decoded,
		ContentType:  contentType,
		Charset:      charsetUsed,
		Headers:      headers,
	}, nil, 0
}

func classifyRetryableCause(status int) FetchErrorCause {
	if status == http.StatusTooManyRequests {
		return ErrCauseRateLimited
	}
	return ErrCauseServerError
}

func classifyTransportError(err error) *FetchError {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{Message: err.Error(), Retryable: true, Cause: ErrCauseTimeout}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &FetchError{Message: err.Error(), Retryable: false, Cause: ErrCauseConnection}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Message: err.Error(), Retryable: true, Cause: ErrCauseTimeout}
	}
	return &FetchError{Message: err.Error(), Retryable: true, Cause: ErrCauseConnection}
}

func applyProfileHeaders(req *http.Request, profile antidetect.Profile) {
	for key, value := range profile.Headers {
		req.Header.Set(key, value)
	}
	if profile.UserAgent != "" {
		req.Header.Set("User-Agent", profile.UserAgent)
	}
}

// parseRetryAfter accepts either a delay-seconds or an HTTP-date form,
// capping the result at backoffCap.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		d := time.Duration(seconds) * time.Second
		if d > backoffCap {
			return backoffCap
		}
		return d
	}
	if when, err := http.ParseTime(value); err == nil {
		d := time.Until(when)
		if d < 0 {
			return 0
		}
		if d > backoffCap {
			return backoffCap
		}
		return d
	}
	return 0
}
