// Package player holds the Player implementations the CLI can drive: a
// headless Probe that checks a stream is actually fetchable, and Exec, which
// hands the stream to an external media player.
package player

import (
	"fmt"
	"net/url"
)

// Error kinds reported through the fatal callback.
const (
	KindNetwork       = "networkError"
	KindManifestParse = "manifestParsingError"
	KindMedia         = "mediaError"
)

// absolute resolves ref against base. Proxied URLs are usually relative to
// the stream proxy's origin.
func absolute(base, ref string) (string, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", ref, err)
	}
	if r.IsAbs() || base == "" {
		return r.String(), nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base %q: %w", base, err)
	}
	return b.ResolveReference(r).String(), nil
}
