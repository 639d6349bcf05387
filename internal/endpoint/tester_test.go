package endpoint

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTester_Success(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
	}))
	defer srv.Close()

	tester := NewTester()
	tester.allowPrivate = true
	outcome := tester.Test(context.Background(), srv.URL)

	if gotMethod != http.MethodHead {
		t.Errorf("Expected a HEAD probe, got %s", gotMethod)
	}
	if !outcome.Success || outcome.Status != TestStatusSuccess {
		t.Errorf("Expected success outcome, got %+v", outcome)
	}
	if outcome.StatusCode != http.StatusOK {
		t.Errorf("Expected status code 200, got %d", outcome.StatusCode)
	}
	if outcome.TestedAt == "" {
		t.Error("Expected tested_at to be set")
	}
}

func TestTester_RedirectIsWarning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "https://moved.example.com/api")
		w.WriteHeader(http.StatusMovedPermanently)
	}))
	defer srv.Close()

	tester := NewTester()
	tester.allowPrivate = true
	outcome := tester.Test(context.Background(), srv.URL)

	if !outcome.Success {
		t.Fatalf("Redirect should count as a qualified success, got %+v", outcome)
	}
	if outcome.Status != TestStatusWarning {
		t.Errorf("Expected warning status, got %q", outcome.Status)
	}
	if !strings.Contains(outcome.ErrorMessage, "https://moved.example.com/api") {
		t.Errorf("Warning should name the redirect target, got %q", outcome.ErrorMessage)
	}
}

func TestTester_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tester := NewTester()
	tester.allowPrivate = true
	outcome := tester.Test(context.Background(), srv.URL)

	if outcome.Success {
		t.Fatal("5xx should not count as success")
	}
	if outcome.Status != TestStatusFailed {
		t.Errorf("Expected failed status, got %q", outcome.Status)
	}
	if !strings.Contains(outcome.ErrorMessage, "HTTP 503") {
		t.Errorf("Expected the status code in the message, got %q", outcome.ErrorMessage)
	}
}

func TestTester_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	tester := NewTester()
	tester.allowPrivate = true
	outcome := tester.Test(context.Background(), url)

	if outcome.Success || outcome.Status != TestStatusFailed {
		t.Fatalf("Expected failed outcome for closed port, got %+v", outcome)
	}
	if !strings.Contains(outcome.ErrorMessage, "connection failed") {
		t.Errorf("Expected connection failure message, got %q", outcome.ErrorMessage)
	}
}

func TestTester_UnsafeURL(t *testing.T) {
	tester := NewTester()
	outcome := tester.Test(context.Background(), "http://127.0.0.1:8080/internal")

	if outcome.Success {
		t.Fatal("Safety filter must block loopback targets")
	}
	if !strings.Contains(outcome.ErrorMessage, "safety filter") {
		t.Errorf("Expected safety filter message, got %q", outcome.ErrorMessage)
	}
}
