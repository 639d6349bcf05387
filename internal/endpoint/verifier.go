package endpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ctn_registry/internal/urlcheck"
)

const (
	challengeTimeout = 15 * time.Second
	verificationType = "ctn_endpoint_verification"
)

// VerifyResult is the outcome of one challenge/response round trip
type VerifyResult struct {
	Verified bool   `json:"verified"`
	Detail   string `json:"detail"`
}

// challengePayload is the body POSTed to the remote endpoint
type challengePayload struct {
	Type       string `json:"type"`
	Challenge  string `json:"challenge"`
	EndpointID string `json:"endpoint_id"`
	Timestamp  string `json:"timestamp"`
	Message    string `json:"message"`
}

// challengeEcho is the expected remote response body
type challengeEcho struct {
	Challenge string `json:"challenge"`
}

// Verifier proves endpoint ownership by POSTing a challenge and requiring
// the remote endpoint to echo it back. Redirects are never followed.
type Verifier struct {
	client *http.Client

	// allowPrivate disables the URL safety filter so tests can target
	// loopback listeners
	allowPrivate bool
}

// NewVerifier creates a verifier with the protocol timeout
func NewVerifier() *Verifier {
	return &Verifier{
		client: &http.Client{
			Timeout: challengeTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Verify runs the challenge/response protocol against endpointURL.
// The URL is re-classified immediately before the POST so a URL changed
// between token generation and delivery cannot reach an internal target.
// Failures carry a distinguishing human-readable detail for operators.
func (v *Verifier) Verify(ctx context.Context, endpointURL, endpointID, challenge string) VerifyResult {
	if !v.allowPrivate {
		if result := urlcheck.Classify(endpointURL); !result.Safe {
			return VerifyResult{Detail: fmt.Sprintf("URL rejected by safety filter: %s", result.Reason)}
		}
	}

	payload := challengePayload{
		Type:       verificationType,
		Challenge:  challenge,
		EndpointID: endpointID,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Message:    "Echo the challenge value back as JSON to verify control of this endpoint",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return VerifyResult{Detail: fmt.Sprintf("failed to encode challenge payload: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewReader(body))
	if err != nil {
		return VerifyResult{Detail: fmt.Sprintf("failed to build challenge request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CTN-Verification", "true")
	req.Header.Set("X-CTN-Challenge", challenge)

	resp, err := v.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return VerifyResult{Detail: "challenge request timed out"}
		}
		return VerifyResult{Detail: fmt.Sprintf("challenge request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return VerifyResult{Detail: fmt.Sprintf("endpoint answered with HTTP %d", resp.StatusCode)}
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return VerifyResult{Detail: fmt.Sprintf("failed to read challenge response: %v", err)}
	}

	var echo challengeEcho
	if err := json.Unmarshal(respBody, &echo); err != nil {
		return VerifyResult{Detail: "endpoint response is not valid JSON"}
	}

	if echo.Challenge != challenge {
		return VerifyResult{Detail: "challenge mismatch: endpoint echoed a different value"}
	}

	return VerifyResult{Verified: true, Detail: "endpoint echoed the challenge"}
}
