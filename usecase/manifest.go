package usecase

import (
	"net/url"
	"strings"
)

// RewriteManifest rewrites every absolute media URL in an HLS playlist into a
// same-origin URL under proxyBase, carrying the original URL in the `url`
// query parameter. Comment lines, blank lines and relative paths pass through
// unchanged. The rewrite is line-oriented so metadata tags survive verbatim.
func RewriteManifest(playlist, proxyBase string) string {
	lines := strings.Split(playlist, "\n")
	for i, line := range lines {
		candidate := strings.TrimRight(line, "\r")
		if candidate == "" || strings.HasPrefix(candidate, "#") {
			continue
		}
		if !strings.HasPrefix(candidate, "http://") && !strings.HasPrefix(candidate, "https://") {
			continue
		}
		lines[i] = proxyBase + "?url=" + url.QueryEscape(candidate)
	}
	return strings.Join(lines, "\n")
}

// HostAllowed reports whether host matches one of the allowed domains, either
// exactly or as a subdomain. The check runs before any outbound request is
// made; it is the relay's SSRF guard.
func HostAllowed(host string, allowed []string) bool {
	host = strings.ToLower(host)
	for _, domain := range allowed {
		domain = strings.ToLower(domain)
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
