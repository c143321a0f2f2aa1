package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/wishr/metaext/internal/fetcher"
)

// HM covers hm.com and its www2 storefront. Product pages are frequently
// rendered client-side, so when the DOM yields nothing the store falls
// back to H&M's JSON product-detail endpoint keyed by the article number.
type HM struct {
	fetch   Fetcher
	apiBase string
	log     *logrus.Logger
}

const hmAPIBase = "https://www2.hm.com/hmwebservices/service/product/es/detail"

var hmProductPageRe = regexp.MustCompile(`productpage\.(\d+)\.html`)

func NewHM(f Fetcher, log *logrus.Logger) *HM {
	return &HM{fetch: f, apiBase: hmAPIBase, log: log}
}

func (h *HM) Name() string { return "hm" }

func (h *HM) DisplayName() string { return "H&M" }

func (h *HM) Matches(host string) bool {
	return host == "hm.com" || strings.HasSuffix(host, ".hm.com")
}

func (h *HM) ProductID(u *url.URL) string {
	if m := hmProductPageRe.FindStringSubmatch(u.Path); len(m) > 1 {
		return m[1]
	}
	// Some share links carry the article number as a bare path segment.
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if seg := segments[i]; seg != "" && isAllDigits(seg) {
			return seg
		}
	}
	return ""
}

func (h *HM) ExtractFromDocument(doc *goquery.Document) DOMResult {
	title := firstText(doc,
		"h1.product-item-headline",
		`h1[class*="ProductName"]`,
		".product-name-price h1",
	)
	image := firstAttr(doc, ".product-detail-main-image-container img", "src", "data-src")
	if image == "" {
		image = firstAttr(doc, "img.product-detail-images", "src", "data-src")
	}
	return DOMResult{Title: title, ImageURL: image}
}

// hmProduct is the slice of the product-detail payload we read. Unknown
// fields are ignored.
type hmProduct struct {
	Product struct {
		Name   string `json:"name"`
		Images []struct {
			URL   string `json:"url"`
			Width int    `json:"width"`
		} `json:"images"`
	} `json:"product"`
}

// FetchProduct queries the JSON product-detail endpoint and returns the
// product name and the image with the largest declared width.
func (h *HM) FetchProduct(ctx context.Context, id string) (string, string, error) {
	endpoint := fmt.Sprintf("%s/%s.json", h.apiBase, id)
	page, err := h.fetch.Page(ctx, endpoint, fetcher.Options{})
	if err != nil {
		return "", "", fmt.Errorf("hm product api: %w", err)
	}
	var payload hmProduct
	if err := json.Unmarshal([]byte(page.HTML), &payload); err != nil {
		return "", "", fmt.Errorf("hm product api: decode: %w", err)
	}
	title := strings.TrimSpace(payload.Product.Name)
	var image string
	best := -1
	for _, img := range payload.Product.Images {
		if img.URL == "" {
			continue
		}
		if img.Width > best {
			best = img.Width
			image = img.URL
		}
	}
	if strings.HasPrefix(image, "//") {
		image = "https:" + image
	}
	return title, image, nil
}

// FallbackImage builds the product-still template URL. H&M's image CDN
// does not tolerate unauthenticated HEAD probes, so the URL is returned
// unverified.
func (h *HM) FallbackImage(ctx context.Context, id string) (string, bool) {
	if id == "" {
		return "", false
	}
	u := fmt.Sprintf("https://lp2.hm.com/hmgoepprod?set=source[/item/images/%s.jpg],origin[dam],type[DESCRIPTIVESTILLLIFE],res[m]&call=url[file:/product/main]", id)
	return u, false
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
