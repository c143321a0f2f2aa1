// Package stores holds the per-merchant extraction strategies. Each store
// knows its URL shapes, its DOM quirks, and how to build a fallback image
// URL from a product ID when scraping comes up empty.
package stores

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/wishr/metaext/internal/config"
	"github.com/wishr/metaext/internal/fetcher"
)

// Fetcher is the slice of the HTTP client stores need for secondary
// requests (JSON product APIs, image-existence HEAD checks).
type Fetcher interface {
	Page(ctx context.Context, rawURL string, opts fetcher.Options) (*fetcher.Page, error)
	Head(ctx context.Context, rawURL string, opts fetcher.Options) (int, error)
}

// DOMResult is what a store's selectors pulled out of the fetched page.
type DOMResult struct {
	Title    string
	ImageURL string
}

// Store is one merchant profile. Extraction strategies within a store run
// in declaration order; the first non-empty result wins.
type Store interface {
	Name() string
	// DisplayName is the merchant name as shown to users, e.g. in
	// synthesized placeholder titles.
	DisplayName() string
	Matches(host string) bool
	// ProductID pulls the merchant's product identifier out of the URL,
	// or returns empty.
	ProductID(u *url.URL) string
	ExtractFromDocument(doc *goquery.Document) DOMResult
	// FallbackImage constructs a CDN image URL from the product ID.
	// verified reports whether the URL was confirmed to exist. Stores
	// without a known template return empty.
	FallbackImage(ctx context.Context, id string) (imageURL string, verified bool)
}

// ProductAPI is implemented by stores with a JSON product-detail endpoint
// used when DOM scraping yields no title or image.
type ProductAPI interface {
	FetchProduct(ctx context.Context, id string) (title, imageURL string, err error)
}

// CookieProvider is implemented by stores whose pages require a
// locale/currency cookie to render usefully.
type CookieProvider interface {
	Cookie() string
}

// Registry is the static list of known merchants. Lookup order is fixed;
// the first match wins.
type Registry struct {
	stores []Store
}

func NewRegistry(f Fetcher, cfg *config.Config, log *logrus.Logger) *Registry {
	return &Registry{
		stores: []Store{
			NewAmazon(log),
			NewAliExpress(f, cfg, log),
			NewHM(f, log),
			NewZara(log),
			NewDecathlon(log),
			NewCarrefour(log),
		},
	}
}

// Match returns the store whose domain patterns cover u, or nil.
func (r *Registry) Match(u *url.URL) Store {
	host := strings.ToLower(u.Hostname())
	for _, s := range r.stores {
		if s.Matches(host) {
			return s
		}
	}
	return nil
}

// Names lists the registered merchants.
func (r *Registry) Names() []string {
	names := make([]string, len(r.stores))
	for i, s := range r.stores {
		names[i] = s.Name()
	}
	return names
}

// firstText returns the trimmed text of the first selector that matches a
// non-empty element.
func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if t := strings.TrimSpace(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

// firstAttr returns the first non-empty attribute value among the given
// selector/attribute pairs, tried in order.
func firstAttr(doc *goquery.Document, sel string, attrs ...string) string {
	node := doc.Find(sel).First()
	if node.Length() == 0 {
		return ""
	}
	for _, attr := range attrs {
		if v, ok := node.Attr(attr); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// firstMatch applies regexes in priority order and returns the first
// capture group that hits.
func firstMatch(s string, patterns []*regexp.Regexp) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(s); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}
