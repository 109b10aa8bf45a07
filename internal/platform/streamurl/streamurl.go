// Package streamurl builds and parses proxied stream URLs of the form
// <base>?url=<target>[&referer=<referer>].
//
// The stream proxy uses it to rewrite playlist entries and the player uses it
// to hand a source to the proxy, so both sides produce identical URLs.
package streamurl

import (
	"errors"
	"net/url"
	"strings"
)

// DefaultRoute is the path the stream proxy serves on.
const DefaultRoute = "/api/stream"

var ErrInvalidURL = errors.New("invalid or missing url parameter")

// Request is one inbound proxy call.
type Request struct {
	URL     string
	Referer string
	Range   string
}

// Escape escapes s as a single query component. Spaces become %20.
func Escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Build wraps target into a proxied URL rooted at base. base may be a bare
// path ("/api/stream") or an absolute URL.
func Build(base, target, referer string) string {
	var b strings.Builder
	b.Grow(len(base) + len(target) + len(referer) + 16)
	b.WriteString(base)
	if strings.Contains(base, "?") {
		b.WriteString("&url=")
	} else {
		b.WriteString("?url=")
	}
	b.WriteString(Escape(target))
	if referer != "" {
		b.WriteString("&referer=")
		b.WriteString(Escape(referer))
	}
	return b.String()
}

// Parse extracts a Request from the query string and the inbound Range
// header. Only the http and https schemes are accepted.
func Parse(query url.Values, rangeHeader string) (Request, error) {
	raw := query.Get("url")
	if !IsHTTPURL(raw) {
		return Request{}, ErrInvalidURL
	}
	return Request{
		URL:     raw,
		Referer: query.Get("referer"),
		Range:   rangeHeader,
	}, nil
}

// IsHTTPURL reports whether u literally starts with http:// or https://.
func IsHTTPURL(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

// IsManifestURL classifies u as an HLS manifest request by the presence of
// ".m3u8" anywhere in it, ignoring case.
func IsManifestURL(u string) bool {
	return strings.Contains(strings.ToLower(u), ".m3u8")
}
