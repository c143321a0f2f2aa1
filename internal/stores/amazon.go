package stores

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// Amazon covers every marketplace TLD (amazon.es, amazon.com, amazon.de...).
type Amazon struct {
	log *logrus.Logger
}

func NewAmazon(log *logrus.Logger) *Amazon {
	return &Amazon{log: log}
}

var amazonIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/dp/([A-Z0-9]{10})`),
	regexp.MustCompile(`/gp/product/([A-Z0-9]{10})`),
	regexp.MustCompile(`/product/([A-Z0-9]{10})`),
	regexp.MustCompile(`\b(B[0-9A-Z]{9})\b`),
}

func (a *Amazon) Name() string { return "amazon" }

func (a *Amazon) DisplayName() string { return "Amazon" }

func (a *Amazon) Matches(host string) bool {
	return strings.Contains(host, "amazon.")
}

func (a *Amazon) ProductID(u *url.URL) string {
	if id := firstMatch(u.Path, amazonIDPatterns); id != "" {
		return id
	}
	return firstMatch(u.String(), amazonIDPatterns)
}

func (a *Amazon) ExtractFromDocument(doc *goquery.Document) DOMResult {
	title := firstText(doc, "#productTitle", "#title")
	if title == "" {
		// meta[name=title] on Amazon often carries the page title with
		// marketplace branding; skip it when it is just the site name.
		if t, ok := doc.Find(`meta[name="title"]`).First().Attr("content"); ok {
			t = strings.TrimSpace(t)
			if t != "" && !strings.Contains(strings.ToLower(t), "amazon.") {
				title = t
			}
		}
	}
	if title == "" {
		title = firstText(doc, `[itemprop="name"]`)
	}

	image := firstAttr(doc, "#landingImage", "data-old-hires", "src")
	if image == "" {
		image = firstAttr(doc, "#imgBlkFront", "src")
	}
	if image == "" {
		image = firstAttr(doc, "#main-image-container img", "src", "data-src")
	}
	return DOMResult{Title: title, ImageURL: image}
}

func (a *Amazon) FallbackImage(ctx context.Context, id string) (string, bool) {
	return "", false
}
