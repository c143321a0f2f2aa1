package stores

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// Decathlon URLs carry the model code in an /_/R-p-{id} suffix.
type Decathlon struct {
	log *logrus.Logger
}

var decathlonIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`R-p-(\d+)`),
	regexp.MustCompile(`[?&]mc=(\d+)`),
}

func NewDecathlon(log *logrus.Logger) *Decathlon {
	return &Decathlon{log: log}
}

func (d *Decathlon) Name() string { return "decathlon" }

func (d *Decathlon) DisplayName() string { return "Decathlon" }

func (d *Decathlon) Matches(host string) bool {
	return host == "decathlon.es" || strings.HasSuffix(host, ".decathlon.es") ||
		host == "decathlon.com" || strings.HasSuffix(host, ".decathlon.com")
}

func (d *Decathlon) ProductID(u *url.URL) string {
	return firstMatch(u.String(), decathlonIDPatterns)
}

func (d *Decathlon) ExtractFromDocument(doc *goquery.Document) DOMResult {
	title := firstText(doc,
		"h1.product-name",
		`h1[class*="ProductTitle"]`,
		".vtmn-typo_title-3",
	)
	image := firstAttr(doc, ".product-images img", "src", "data-src")
	if image == "" {
		image = firstAttr(doc, `img[class*="vtmn-product"]`, "src", "data-src")
	}
	return DOMResult{Title: title, ImageURL: image}
}

func (d *Decathlon) FallbackImage(ctx context.Context, id string) (string, bool) {
	return "", false
}
