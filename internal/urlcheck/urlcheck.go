package urlcheck

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Result is the outcome of classifying an outbound-fetch target
type Result struct {
	Safe   bool   `json:"safe"`
	Reason string `json:"reason,omitempty"`
}

// Hostnames that resolve to cloud metadata services
var metadataHosts = map[string]bool{
	"169.254.169.254":          true,
	"metadata.google.internal": true,
	"metadata.goog":            true,
	"169.254.170.2":            true,
}

// Loopback hostnames rejected outright
var loopbackHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"::1":       true,
}

// Private and special-use IPv4 ranges checked when the host is a literal address
var privateCIDRs = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"169.254.0.0/16",
	"0.0.0.0/8",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(fmt.Sprintf("urlcheck: bad CIDR %q: %v", c, err))
		}
		nets = append(nets, n)
	}
	return nets
}

// Classify decides whether a URL is a safe target for an outbound fetch.
// Rules are applied in order, first match wins. Only literal IPs and
// well-known hostnames are checked; no DNS resolution is performed here,
// so callers must re-classify immediately before each fetch (DNS rebinding
// between validation and fetch is not covered by a single call).
func Classify(rawURL string) Result {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return Result{Safe: false, Reason: "Invalid URL format"}
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return Result{Safe: false, Reason: fmt.Sprintf("Unsupported URL scheme: %s", u.Scheme)}
	}

	host := strings.ToLower(u.Hostname())
	if loopbackHosts[host] {
		return Result{Safe: false, Reason: "Loopback address not allowed"}
	}
	if metadataHosts[host] {
		return Result{Safe: false, Reason: "Cloud metadata address not allowed"}
	}

	if ip := net.ParseIP(host); ip != nil && ip.To4() != nil {
		for _, n := range privateCIDRs {
			if n.Contains(ip) {
				return Result{Safe: false, Reason: fmt.Sprintf("Private IP range not allowed: %s", host)}
			}
		}
	}

	return Result{Safe: true}
}
