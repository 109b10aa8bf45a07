// Package manifest validates and rewrites HLS playlists served through the
// stream proxy.
package manifest

import (
	"bytes"
	"errors"
	"strings"

	"github.com/grafana/regexp"
)

// SniffLen is how much of the body is inspected for the header line and for
// HTML markup.
const SniffLen = 4096

// ContentType is the type every rewritten playlist is served with.
const ContentType = "application/vnd.apple.mpegurl"

var (
	ErrNotPlaylist = errors.New("first line is not #EXTM3U")
	ErrHTMLBody    = errors.New("body contains html markup")
)

var htmlSignature = regexp.MustCompile(`(?i)<\s*(html|head|body|script|title|meta)[\s>]`)

var utf8BOM = []byte("\xef\xbb\xbf")

// playlistTypes are the content types treated as HLS playlists.
var playlistTypes = []string{
	"application/vnd.apple.mpegurl",
	"application/x-mpegurl",
	"audio/mpegurl",
	"audio/x-mpegurl",
}

// IsPlaylistContentType reports whether ct names an HLS playlist type.
func IsPlaylistContentType(ct string) bool {
	ct = strings.ToLower(ct)
	for _, t := range playlistTypes {
		if strings.Contains(ct, t) {
			return true
		}
	}
	return false
}

// IsHTMLContentType reports whether ct is text/html.
func IsHTMLContentType(ct string) bool {
	return strings.Contains(strings.ToLower(ct), "text/html")
}

// Validate checks that body looks like a real playlist: the first non-blank
// line is exactly #EXTM3U and the first SniffLen bytes carry no HTML tags.
func Validate(body []byte) error {
	head := body
	if len(head) > SniffLen {
		head = head[:SniffLen]
	}
	head = bytes.TrimPrefix(head, utf8BOM)
	text := string(head)

	if firstLine(text) != "#EXTM3U" {
		return ErrNotPlaylist
	}
	if htmlSignature.MatchString(text) {
		return ErrHTMLBody
	}
	return nil
}

// firstLine returns the first non-blank line of text, trimmed.
func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}
