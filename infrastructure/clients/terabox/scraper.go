package terabox

import (
	"net/url"
	"strings"
)

// The share page embeds the API token inside a percent-encoded function call:
//
//	... fn%28%22<token>%22%29 ...
//
// The token sits between the two delimiters and is itself percent-encoded.
const (
	tokenStartDelim = "fn%28%22"
	tokenEndDelim   = "%22%29"
)

// ExtractToken implements the scraper side of the upstream interface.
func (c *Client) ExtractToken(html string) string {
	return ExtractToken(html)
}

// ExtractToken pulls the jsToken out of share page HTML. Returns "" when the
// page carries no token; that is a terminal condition, not a transient one.
func ExtractToken(html string) string {
	start := strings.Index(html, tokenStartDelim)
	if start == -1 {
		return ""
	}
	rest := html[start+len(tokenStartDelim):]
	end := strings.Index(rest, tokenEndDelim)
	if end == -1 {
		return ""
	}
	raw := rest[:end]
	if raw == "" {
		return ""
	}
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}
