package endpoint

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"ctn_registry/internal/urlcheck"
)

const testTimeout = 10 * time.Second

// Connectivity test statuses
const (
	TestStatusSuccess = "success"
	TestStatusWarning = "warning"
	TestStatusFailed  = "failed"
)

// TestOutcome is the stored result of one connectivity test
type TestOutcome struct {
	Success        bool   `json:"success"`
	Status         string `json:"status"`
	ResponseTimeMs int64  `json:"response_time_ms"`
	StatusCode     int    `json:"status_code,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
	TestedAt       string `json:"tested_at"`
}

// Tester probes endpoint reachability with a HEAD request. Redirects are
// not followed; a 3xx counts as a qualified success with a warning naming
// the redirect target.
type Tester struct {
	client *http.Client

	// allowPrivate disables the URL safety filter so tests can target
	// loopback listeners
	allowPrivate bool
}

// NewTester creates a connectivity tester
func NewTester() *Tester {
	return &Tester{
		client: &http.Client{
			Timeout: testTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Test issues the probe. Network failures are recorded outcomes, never errors.
func (t *Tester) Test(ctx context.Context, endpointURL string) TestOutcome {
	outcome := TestOutcome{TestedAt: time.Now().UTC().Format(time.RFC3339)}

	if !t.allowPrivate {
		if result := urlcheck.Classify(endpointURL); !result.Safe {
			outcome.Status = TestStatusFailed
			outcome.ErrorMessage = fmt.Sprintf("URL rejected by safety filter: %s", result.Reason)
			return outcome
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, endpointURL, nil)
	if err != nil {
		outcome.Status = TestStatusFailed
		outcome.ErrorMessage = fmt.Sprintf("failed to build request: %v", err)
		return outcome
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	outcome.ResponseTimeMs = time.Since(start).Milliseconds()
	if err != nil {
		outcome.Status = TestStatusFailed
		outcome.ErrorMessage = fmt.Sprintf("connection failed: %v", err)
		return outcome
	}
	defer resp.Body.Close()

	outcome.StatusCode = resp.StatusCode
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		outcome.Success = true
		outcome.Status = TestStatusSuccess
	case resp.StatusCode >= 300 && resp.StatusCode <= 399:
		outcome.Success = true
		outcome.Status = TestStatusWarning
		outcome.ErrorMessage = fmt.Sprintf("endpoint redirects to %s (redirect not followed)", resp.Header.Get("Location"))
	default:
		outcome.Status = TestStatusFailed
		outcome.ErrorMessage = fmt.Sprintf("endpoint answered with HTTP %d", resp.StatusCode)
	}
	return outcome
}
