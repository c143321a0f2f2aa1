package meta

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Hints that an image is primary product content.
var imageKeywords = []string{
	"product", "main", "hero", "featured", "gallery", "carousel", "slide",
}

// Substrings that disqualify a src outright.
var bannedSrcParts = []string{
	"placeholder", "logo", "icon", "blank.", "loading",
}

var imageExtRe = regexp.MustCompile(`(?i)\.(jpe?g|png|webp)(\?|#|$)`)

// Images appearing among the first few in document order get a prominence
// bonus; primary product shots sit high in the markup.
const earlyImageCount = 5

type imageCandidate struct {
	src    string
	score  int
	width  int
	height int
	order  int
}

// BestImage scans every <img> in the document, scores each candidate by
// size, naming hints and document position, and returns the best one as an
// absolute URL. Returns empty when no candidate is convincing enough.
func BestImage(doc *goquery.Document, pageURL *url.URL) string {
	candidates := collectImageCandidates(doc, pageURL)
	if len(candidates) == 0 {
		return ""
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.score > best.score {
			best = c
		}
	}
	if best.score >= 20 {
		return best.src
	}

	// No convincing winner: settle for the first reasonably sized image.
	for _, c := range candidates {
		if c.width >= 200 || c.height >= 200 {
			return c.src
		}
	}
	return ""
}

func collectImageCandidates(doc *goquery.Document, pageURL *url.URL) []imageCandidate {
	var candidates []imageCandidate

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		src := imageSrc(s)
		if src == "" {
			return
		}
		abs := resolveAgainst(pageURL, src)
		if abs == "" || !acceptableImageURL(abs) {
			return
		}

		c := imageCandidate{src: abs, order: i}
		c.width = dimension(s, "width")
		c.height = dimension(s, "height")

		if c.width > 300 || c.height > 300 {
			c.score += 20
		}
		if c.width > 500 || c.height > 500 {
			c.score += 20
		}

		class, _ := s.Attr("class")
		id, _ := s.Attr("id")
		alt, _ := s.Attr("alt")
		parentClass, _ := s.Parent().Attr("class")
		parentID, _ := s.Parent().Attr("id")
		locations := []string{class, id, alt, parentClass, parentID}

		for _, kw := range imageKeywords {
			for _, loc := range locations {
				if strings.Contains(strings.ToLower(loc), kw) {
					c.score += 15
				}
			}
		}

		if i < earlyImageCount {
			c.score += 15
		}

		for _, hint := range []string{"avatar", "thumb"} {
			if strings.Contains(strings.ToLower(class), hint) || strings.Contains(strings.ToLower(id), hint) {
				c.score -= 20
				break
			}
		}

		candidates = append(candidates, c)
	})

	return candidates
}

// imageSrc prefers src but falls back to the usual lazy-loading attributes.
func imageSrc(s *goquery.Selection) string {
	for _, attr := range []string{"src", "data-src", "data-original", "data-lazy-src"} {
		if v, ok := s.Attr(attr); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	if srcset, ok := s.Attr("srcset"); ok {
		parts := strings.Fields(strings.SplitN(srcset, ",", 2)[0])
		if len(parts) > 0 {
			return parts[0]
		}
	}
	return ""
}

func acceptableImageURL(src string) bool {
	lower := strings.ToLower(src)
	for _, banned := range bannedSrcParts {
		if strings.Contains(lower, banned) {
			return false
		}
	}
	return imageExtRe.MatchString(lower)
}

func dimension(s *goquery.Selection, attr string) int {
	v, ok := s.Attr(attr)
	if !ok {
		return 0
	}
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
