package endpoint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestVerifier_Success(t *testing.T) {
	challenge := "aabbccdd"
	var gotHeader, gotChallengeHeader string
	var gotBody challengePayload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-CTN-Verification")
		gotChallengeHeader = r.Header.Get("X-CTN-Challenge")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"challenge": challenge})
	}))
	defer srv.Close()

	v := NewVerifier()
	v.allowPrivate = true
	result := v.Verify(context.Background(), srv.URL, "ep-1", challenge)

	if !result.Verified {
		t.Fatalf("Verify() failed: %s", result.Detail)
	}

	if gotHeader != "true" {
		t.Errorf("Expected X-CTN-Verification header 'true', got %q", gotHeader)
	}
	if gotChallengeHeader != challenge {
		t.Errorf("Expected X-CTN-Challenge header %q, got %q", challenge, gotChallengeHeader)
	}
	if gotBody.Type != "ctn_endpoint_verification" {
		t.Errorf("Expected payload type ctn_endpoint_verification, got %q", gotBody.Type)
	}
	if gotBody.Challenge != challenge {
		t.Errorf("Expected payload challenge %q, got %q", challenge, gotBody.Challenge)
	}
	if gotBody.EndpointID != "ep-1" {
		t.Errorf("Expected payload endpoint_id ep-1, got %q", gotBody.EndpointID)
	}
	if gotBody.Timestamp == "" {
		t.Error("Expected payload timestamp to be set")
	}
}

func TestVerifier_ChallengeMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"challenge": "wrong"})
	}))
	defer srv.Close()

	v := NewVerifier()
	v.allowPrivate = true
	result := v.Verify(context.Background(), srv.URL, "ep-1", "right")

	if result.Verified {
		t.Fatal("Verify() should fail on challenge mismatch")
	}
	if !strings.Contains(result.Detail, "mismatch") {
		t.Errorf("Detail should name the mismatch, got %q", result.Detail)
	}
}

func TestVerifier_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	v := NewVerifier()
	v.allowPrivate = true
	result := v.Verify(context.Background(), srv.URL, "ep-1", "abc")

	if result.Verified {
		t.Fatal("Verify() should fail on non-2xx")
	}
	if !strings.Contains(result.Detail, "HTTP 500") {
		t.Errorf("Detail should name the status, got %q", result.Detail)
	}
}

func TestVerifier_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not json"))
	}))
	defer srv.Close()

	v := NewVerifier()
	v.allowPrivate = true
	result := v.Verify(context.Background(), srv.URL, "ep-1", "abc")

	if result.Verified {
		t.Fatal("Verify() should fail on malformed JSON")
	}
	if !strings.Contains(result.Detail, "not valid JSON") {
		t.Errorf("Detail should name the JSON problem, got %q", result.Detail)
	}
}

func TestVerifier_RedirectNotFollowed(t *testing.T) {
	// The redirect target would echo correctly; the verifier must not get there
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"challenge": "abc"})
	}))
	defer target.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL, http.StatusFound)
	}))
	defer srv.Close()

	v := NewVerifier()
	v.allowPrivate = true
	result := v.Verify(context.Background(), srv.URL, "ep-1", "abc")

	if result.Verified {
		t.Fatal("Verify() must not follow redirects")
	}
	if !strings.Contains(result.Detail, "HTTP 302") {
		t.Errorf("Detail should carry the redirect status, got %q", result.Detail)
	}
}

func TestVerifier_UnsafeURLBlockedBeforeFetch(t *testing.T) {
	v := NewVerifier()
	result := v.Verify(context.Background(), "http://169.254.169.254/latest/meta-data/", "ep-1", "abc")

	if result.Verified {
		t.Fatal("Verify() must refuse unsafe targets")
	}
	if !strings.Contains(result.Detail, "safety filter") {
		t.Errorf("Detail should name the safety filter, got %q", result.Detail)
	}
}

func TestVerifier_ConnectionRefused(t *testing.T) {
	// Grab a port that is closed by the time we dial it
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	v := NewVerifier()
	v.allowPrivate = true
	result := v.Verify(context.Background(), url, "ep-1", "abc")

	if result.Verified {
		t.Fatal("Verify() should fail when the endpoint is unreachable")
	}
	if !strings.Contains(result.Detail, "challenge request failed") {
		t.Errorf("Detail should name the network failure, got %q", result.Detail)
	}
}
