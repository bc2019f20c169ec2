package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/temoto/robotstxt"
)

const maxRobotsBodyBytes = 500 * 1024

// fetchRobotsTxt retrieves and parses {scheme}://{host}/robots.txt. Any
// 4xx response, 429 included, is treated as "no restrictions", matching
// robotstxt.FromStatusAndBytes semantics.
func fetchRobotsTxt(ctx context.Context, client *http.Client, userAgent, scheme, host string) (*robotstxt.RobotsData, error) {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", scheme, host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, &RobotsError{Message: err.Error(), Retryable: false, Cause: ErrCauseInvalidURL}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/plain,text/html,*/*")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &RobotsError{Message: err.Error(), Retryable: true, Cause: ErrCauseFetchFailure}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBodyBytes+1))
	if err != nil {
		return nil, &RobotsError{Message: err.Error(), Retryable: true, Cause: ErrCauseFetchFailure}
	}
	if len(body) > maxRobotsBodyBytes {
		body = body[:maxRobotsBodyBytes]
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, &RobotsError{Message: err.Error(), Retryable: false, Cause: ErrCauseParseFailure}
	}
	return data, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
