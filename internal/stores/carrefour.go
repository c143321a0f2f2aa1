package stores

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// Carrefour product pages end in /p, with the reference as the preceding
// path segment.
type Carrefour struct {
	log *logrus.Logger
}

var carrefourIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/(\d{6,})/p\b`),
	regexp.MustCompile(`[?&]pid=(\d+)`),
}

func NewCarrefour(log *logrus.Logger) *Carrefour {
	return &Carrefour{log: log}
}

func (c *Carrefour) Name() string { return "carrefour" }

func (c *Carrefour) DisplayName() string { return "Carrefour" }

func (c *Carrefour) Matches(host string) bool {
	return host == "carrefour.es" || strings.HasSuffix(host, ".carrefour.es") ||
		host == "carrefour.com" || strings.HasSuffix(host, ".carrefour.com")
}

func (c *Carrefour) ProductID(u *url.URL) string {
	return firstMatch(u.String(), carrefourIDPatterns)
}

func (c *Carrefour) ExtractFromDocument(doc *goquery.Document) DOMResult {
	title := firstText(doc,
		"h1.product-header__name",
		`h1[class*="product-title"]`,
		".pdp-title h1",
	)
	image := firstAttr(doc, ".product-image img", "src", "data-src")
	if image == "" {
		image = firstAttr(doc, `img[class*="product-media"]`, "src", "data-src")
	}
	return DOMResult{Title: title, ImageURL: image}
}

func (c *Carrefour) FallbackImage(ctx context.Context, id string) (string, bool) {
	return "", false
}
