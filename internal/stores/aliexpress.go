package stores

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/wishr/metaext/internal/config"
	"github.com/wishr/metaext/internal/fetcher"
)

// AliExpress handles aliexpress.* product pages and alicdn image hosts.
// When the page yields nothing it constructs candidate CDN image URLs from
// the product ID and, when verification is enabled, confirms them with
// HEAD requests before returning one.
type AliExpress struct {
	fetch         Fetcher
	verify        bool
	verifyTimeout time.Duration
	cdnBase       string
	log           *logrus.Logger
}

const maxVerifyInFlight = 3

var aliexpressIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/item/(\d+)\.html`),
	regexp.MustCompile(`/(\d+)\.html`),
	regexp.MustCompile(`[?&]productId=(\d+)`),
	regexp.MustCompile(`[?&]product_id=(\d+)`),
	regexp.MustCompile(`[?&]i=(\d+)`),
	regexp.MustCompile(`(\d{8,20})`),
}

// cdnSizes in preference order. The first size is the best guess returned
// unverified when no candidate confirms.
var cdnSizes = []string{"640x640", "960x960", "350x350"}

var cdnPrefixes = []string{"S", "H"}

func NewAliExpress(f Fetcher, cfg *config.Config, log *logrus.Logger) *AliExpress {
	return &AliExpress{
		fetch:         f,
		verify:        cfg.Extraction.VerifyImages,
		verifyTimeout: time.Duration(cfg.Extraction.VerifyTimeout) * time.Second,
		cdnBase:       "https://ae01.alicdn.com/kf",
		log:           log,
	}
}

func (a *AliExpress) Name() string { return "aliexpress" }

func (a *AliExpress) DisplayName() string { return "AliExpress" }

func (a *AliExpress) Matches(host string) bool {
	return strings.Contains(host, "aliexpress.") || strings.Contains(host, "alicdn.")
}

func (a *AliExpress) ProductID(u *url.URL) string {
	return firstMatch(u.String(), aliexpressIDPatterns)
}

// Cookie sets the Spanish locale and EUR currency; without it AliExpress
// serves a region-detection interstitial instead of the product page.
func (a *AliExpress) Cookie() string {
	return "aep_usuc_f=site=esp&c_tp=EUR&region=ES&b_locale=es_ES; intl_locale=es_ES"
}

func (a *AliExpress) ExtractFromDocument(doc *goquery.Document) DOMResult {
	title := firstText(doc,
		`h1[data-pl="product-title"]`,
		"h1.product-title-text",
		".product-title h1",
	)
	image := firstAttr(doc, ".image-view--previewBox img", "src", "data-src")
	if image == "" {
		image = firstAttr(doc, `img[class*="magnifier"]`, "src", "data-src")
	}
	return DOMResult{Title: title, ImageURL: image}
}

// FallbackImage tries known alicdn URL templates for the product ID,
// largest size first. Candidates are checked with HEAD requests, at most
// maxVerifyInFlight at a time; the highest-priority candidate that returns
// 200 wins. If nothing verifies (or verification is disabled) the
// best-guess large URL is returned unverified.
func (a *AliExpress) FallbackImage(ctx context.Context, id string) (string, bool) {
	if id == "" {
		return "", false
	}
	cands := a.imageCandidates(id)
	if !a.verify {
		return cands[0], false
	}
	for start := 0; start < len(cands); start += maxVerifyInFlight {
		end := start + maxVerifyInFlight
		if end > len(cands) {
			end = len(cands)
		}
		wave := cands[start:end]
		ok := make([]bool, len(wave))
		var wg sync.WaitGroup
		for i, cand := range wave {
			wg.Add(1)
			go func(i int, cand string) {
				defer wg.Done()
				status, err := a.fetch.Head(ctx, cand, fetcher.Options{Timeout: a.verifyTimeout})
				ok[i] = err == nil && status == 200
			}(i, cand)
		}
		wg.Wait()
		for i, hit := range ok {
			if hit {
				return wave[i], true
			}
		}
	}
	if a.log != nil {
		a.log.WithField("product_id", id).Debug("no alicdn candidate verified, returning best guess")
	}
	return cands[0], false
}

func (a *AliExpress) imageCandidates(id string) []string {
	cands := make([]string, 0, len(cdnSizes)*len(cdnPrefixes))
	for _, size := range cdnSizes {
		for _, prefix := range cdnPrefixes {
			cands = append(cands, fmt.Sprintf("%s/%s%s_%s.jpg", a.cdnBase, prefix, id, size))
		}
	}
	return cands
}
