package stores

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// Zara product URLs end in a p-code segment like /camiseta-basica-p01234567.html.
type Zara struct {
	log *logrus.Logger
}

var zaraIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`-p(\d{8,})\.html`),
	regexp.MustCompile(`[?&]v1=(\d+)`),
}

func NewZara(log *logrus.Logger) *Zara {
	return &Zara{log: log}
}

func (z *Zara) Name() string { return "zara" }

func (z *Zara) DisplayName() string { return "Zara" }

func (z *Zara) Matches(host string) bool {
	return host == "zara.com" || strings.HasSuffix(host, ".zara.com")
}

func (z *Zara) ProductID(u *url.URL) string {
	return firstMatch(u.String(), zaraIDPatterns)
}

func (z *Zara) ExtractFromDocument(doc *goquery.Document) DOMResult {
	title := firstText(doc,
		"h1.product-detail-info__header-name",
		`h1[class*="product-detail"]`,
		`[data-qa-qualifier="product-name"]`,
	)
	image := firstAttr(doc, ".media-image img", "src", "data-src")
	if image == "" {
		image = firstAttr(doc, `picture[class*="media-image"] img`, "src", "data-src")
	}
	return DOMResult{Title: title, ImageURL: image}
}

func (z *Zara) FallbackImage(ctx context.Context, id string) (string, bool) {
	return "", false
}
