package urlcheck

import "testing"

func TestClassify_SafeURLs(t *testing.T) {
	safe := []string{
		"https://example.com",
		"https://example.com:8443/callback",
		"http://api.partner.example/v2/receive",
		"https://8.8.8.8/ping",
	}

	for _, u := range safe {
		result := Classify(u)
		if !result.Safe {
			t.Errorf("Classify(%q) = unsafe (%s), want safe", u, result.Reason)
		}
	}
}

func TestClassify_InvalidURL(t *testing.T) {
	result := Classify("not a url")
	if result.Safe {
		t.Fatal("Classify should reject unparseable URL")
	}
	if result.Reason != "Invalid URL format" {
		t.Errorf("Expected reason 'Invalid URL format', got %q", result.Reason)
	}
}

func TestClassify_Scheme(t *testing.T) {
	for _, u := range []string{"ftp://example.com/file", "gopher://example.com", "file:///etc/passwd"} {
		result := Classify(u)
		if result.Safe {
			t.Errorf("Classify(%q) should reject non-http(s) scheme", u)
		}
	}
}

func TestClassify_Loopback(t *testing.T) {
	for _, u := range []string{"http://localhost:8080/", "https://127.0.0.1/", "http://[::1]/"} {
		result := Classify(u)
		if result.Safe {
			t.Errorf("Classify(%q) should reject loopback", u)
		}
	}
}

func TestClassify_MetadataHosts(t *testing.T) {
	cases := []string{
		"http://169.254.169.254/",
		"http://169.254.169.254/latest/meta-data/",
		"https://metadata.google.internal/computeMetadata/v1/",
		"http://metadata.goog/",
		"http://169.254.170.2/v2/credentials",
	}

	for _, u := range cases {
		result := Classify(u)
		if result.Safe {
			t.Errorf("Classify(%q) should reject metadata address", u)
		}
	}
}

func TestClassify_PrivateRanges(t *testing.T) {
	cases := []struct {
		url  string
		safe bool
	}{
		{"https://10.0.0.5", false},
		{"https://10.255.255.255/x", false},
		{"http://172.16.0.1/", false},
		{"http://172.31.255.254/", false},
		{"http://172.32.0.1/", true}, // just outside 172.16.0.0/12
		{"http://192.168.1.10/", false},
		{"http://169.254.1.1/", false},
		{"http://0.0.0.1/", false},
		{"https://11.0.0.1/", true},
	}

	for _, c := range cases {
		result := Classify(c.url)
		if result.Safe != c.safe {
			t.Errorf("Classify(%q) safe=%v, want %v (reason=%s)", c.url, result.Safe, c.safe, result.Reason)
		}
	}
}

func TestClassify_CaseInsensitiveHost(t *testing.T) {
	if Classify("http://LOCALHOST/").Safe {
		t.Error("Classify should reject uppercase loopback hostname")
	}
	if Classify("HTTPS://example.com").Safe == false {
		t.Error("Classify should accept uppercase scheme")
	}
}
