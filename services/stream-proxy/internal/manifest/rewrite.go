package manifest

import (
	"net/url"
	"strings"

	"github.com/example/anime-relay/internal/platform/streamurl"
)

// Rewriter points every URI in a playlist back at the proxy.
type Rewriter struct {
	// ProxyBase is the proxy route, either a bare path or an absolute URL.
	ProxyBase string
	// RewriteTagURIs also rewrites URI="..." attributes inside tag lines
	// (EXT-X-KEY, EXT-X-MEDIA, EXT-X-MAP). Off by default: tag lines are
	// then passed through untouched.
	RewriteTagURIs bool
}

// Rewrite returns body with each URI line resolved against sourceURL and
// wrapped into a proxied URL carrying referer. Lines are trimmed; comment and
// blank lines are otherwise kept as they are. The output depends only on the
// inputs.
func (rw Rewriter) Rewrite(body, sourceURL, referer string) string {
	base := baseDir(sourceURL)
	lines := strings.Split(body, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trim := strings.TrimSpace(line)
		if trim == "" || strings.HasPrefix(trim, "#") {
			if rw.RewriteTagURIs && strings.Contains(trim, `URI="`) {
				trim = rw.rewriteURITag(trim, base, referer)
			}
			out = append(out, trim)
			continue
		}
		out = append(out, streamurl.Build(rw.ProxyBase, resolve(base, trim), referer))
	}
	return strings.Join(out, "\n")
}

func (rw Rewriter) rewriteURITag(line, base, referer string) string {
	start := strings.Index(line, `URI="`)
	if start == -1 {
		return line
	}
	start += len(`URI="`)
	end := strings.Index(line[start:], `"`)
	if end == -1 || end == 0 {
		return line
	}
	uri := line[start : start+end]
	if strings.HasPrefix(uri, "data:") {
		return line
	}
	proxied := streamurl.Build(rw.ProxyBase, resolve(base, uri), referer)
	return line[:start] + proxied + line[start+end:]
}

// baseDir returns sourceURL up to and including the last "/" of its path.
// Query and fragment are dropped first so a "/" inside them is never used.
func baseDir(sourceURL string) string {
	s := sourceURL
	if u, err := url.Parse(sourceURL); err == nil {
		u.RawQuery = ""
		u.ForceQuery = false
		u.Fragment = ""
		if u.Path == "" {
			u.Path = "/"
		}
		s = u.String()
	}
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[:i+1]
	}
	return s
}

// resolve turns ref into an absolute URL relative to base.
func resolve(base, ref string) string {
	if streamurl.IsHTTPURL(ref) {
		return ref
	}
	if strings.HasPrefix(ref, "//") || strings.HasPrefix(ref, "/") {
		if b, err := url.Parse(base); err == nil {
			if r, err := url.Parse(ref); err == nil {
				return b.ResolveReference(r).String()
			}
		}
	}
	return base + ref
}
