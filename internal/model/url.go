package model

import (
	"net"
	"net/url"
	"strings"
)

// DedupeKey computes the cross-replica identity of a bookmark: the canonical
// URL if present, otherwise the raw URL, lowercased with the fragment and any
// trailing slash stripped. Fragment-only URL differences map to the same key.
func DedupeKey(b *Bookmark) string {
	raw := b.CanonicalURL
	if raw == "" {
		raw = b.URL
	}
	return NormalizeURLKey(raw)
}

// NormalizeURLKey normalizes a URL string into a dedupe key.
func NormalizeURLKey(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		// Not parseable as an absolute URL; fall back to a plain
		// case/fragment-insensitive form.
		s := strings.ToLower(raw)
		if i := strings.IndexByte(s, '#'); i >= 0 {
			s = s[:i]
		}
		return strings.TrimSuffix(s, "/")
	}
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	// The whole key is lowercased, not just scheme and host: case-only URL
	// variants saved on different replicas must map to the same identity.
	return strings.ToLower(u.String())
}

// Domain extracts the lowercased host from a URL, or "" if unparseable.
func Domain(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// PrivacyExcluded reports whether a URL must never be sent to an external
// embedding provider: non-http(s) schemes and loopback/private hosts.
func PrivacyExcluded(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return true
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return true
	}
	host := strings.ToLower(u.Hostname())
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
	}
	return false
}
