package pipeline

import (
	"net"
	"net/http"
	"strings"
)

// ValidateHost reports whether the request carries a usable host.
// A request constructed without any host metadata, or with an empty
// host header, fails validation. Pure and synchronous; no I/O.
func ValidateHost(r *http.Request) bool {
	if r == nil {
		return false
	}
	host := r.Host
	if host == "" {
		host = r.Header.Get("Host")
	}
	return strings.TrimSpace(host) != ""
}

// HostChecker optionally restricts requests to an allowlist of hosts
// on top of the mandatory non-empty-host rule. Entries are exact
// hostnames or "*.suffix" wildcards, matched case-insensitively with
// any port stripped. An empty allowlist admits every non-empty host.
type HostChecker struct {
	exact    map[string]bool
	suffixes []string
}

// NewHostChecker compiles the allowlist once at startup.
func NewHostChecker(hosts []string) *HostChecker {
	hc := &HostChecker{exact: make(map[string]bool)}
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if strings.HasPrefix(h, "*.") {
			hc.suffixes = append(hc.suffixes, h[1:])
		} else {
			hc.exact[h] = true
		}
	}
	return hc
}

// Check reports whether the request host passes validation and, when
// an allowlist is configured, is on it.
func (hc *HostChecker) Check(r *http.Request) bool {
	if !ValidateHost(r) {
		return false
	}
	if len(hc.exact) == 0 && len(hc.suffixes) == 0 {
		return true
	}

	host := strings.ToLower(r.Host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	if hc.exact[host] {
		return true
	}
	for _, suffix := range hc.suffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}
