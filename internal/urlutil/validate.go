// Package urlutil validates target URLs before any network traffic happens.
package urlutil

import (
	"errors"
	"net"
	"net/url"
	"strings"
)

var (
	// ErrInvalidURL marks input that does not parse as an absolute URL.
	ErrInvalidURL = errors.New("invalid url")
	// ErrSchemeNotAllowed marks non-HTTP(S) schemes.
	ErrSchemeNotAllowed = errors.New("scheme not allowed")
	// ErrPrivateHost marks loopback, private and link-local hosts.
	ErrPrivateHost = errors.New("private or local host not allowed")
)

// Validate parses raw and enforces the outbound-request policy: absolute
// http/https URLs only, and never toward loopback, RFC 1918 or link-local
// addresses. It runs before any fetch so a rejected URL causes zero traffic.
func Validate(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, ErrInvalidURL
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, ErrInvalidURL
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return nil, ErrSchemeNotAllowed
	}
	if isPrivateHost(u.Hostname()) {
		return nil, ErrPrivateHost
	}
	return u, nil
}

func isPrivateHost(host string) bool {
	h := strings.ToLower(host)
	if h == "localhost" || strings.HasSuffix(h, ".localhost") || strings.HasSuffix(h, ".local") {
		return true
	}
	ip := net.ParseIP(h)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}
