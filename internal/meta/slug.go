package meta

import (
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode"
)

var idTokenRe = regexp.MustCompile(`^[A-Za-z0-9]{8,}$`)

// SlugTitle synthesizes a human-readable title from the last path segment
// of a product URL: "/blue-wireless-headphones-B0C12345X.html" becomes
// "Blue Wireless Headphones". Returns empty when the URL carries no usable
// words (a bare numeric ID, for instance).
func SlugTitle(u *url.URL) string {
	segment := lastPathSegment(u)
	if segment == "" {
		return ""
	}
	segment = strings.TrimSuffix(segment, path.Ext(segment))
	segment = strings.NewReplacer("-", " ", "_", " ", "+", " ").Replace(segment)

	words := strings.Fields(segment)
	// Trailing product-ID tokens are noise, not words.
	for len(words) > 0 && looksLikeIDToken(words[len(words)-1]) {
		words = words[:len(words)-1]
	}
	if len(words) == 0 {
		return ""
	}
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

// SlugDescription is the synthesized description for a page nothing else
// could describe.
func SlugDescription(u *url.URL) string {
	if u == nil || u.Hostname() == "" {
		return ""
	}
	return "Enlace de " + u.Hostname()
}

func lastPathSegment(u *url.URL) string {
	if u == nil {
		return ""
	}
	for _, seg := range reverse(strings.Split(u.Path, "/")) {
		if s := strings.TrimSpace(seg); s != "" {
			return s
		}
	}
	return ""
}

func looksLikeIDToken(w string) bool {
	if !idTokenRe.MatchString(w) {
		return false
	}
	for _, r := range w {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func capitalize(w string) string {
	runes := []rune(w)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func reverse(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[len(ss)-1-i] = s
	}
	return out
}
