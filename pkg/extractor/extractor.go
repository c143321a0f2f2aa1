// Package extractor is the public entry point of the metadata pipeline.
// Extract classifies the URL by merchant, scrapes the page, fills gaps
// with the generic metadata cascade, and always returns a complete result.
package extractor

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/wishr/metaext/internal/config"
	"github.com/wishr/metaext/internal/fetcher"
	"github.com/wishr/metaext/internal/meta"
	"github.com/wishr/metaext/internal/stores"
	"github.com/wishr/metaext/internal/titleclean"
	"github.com/wishr/metaext/internal/urlutil"
)

// Result is the uniform extraction outcome. Every field is always present;
// empty string marks an unresolved field. Price is never scraped and is
// always empty. The validity flags communicate confidence, not presence:
// a synthesized title or an unverified constructed image URL is populated
// but flagged false so the caller can ask the user to confirm it.
type Result struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	ImageURL     string `json:"imageUrl"`
	Price        string `json:"price"`
	IsTitleValid bool   `json:"isTitleValid"`
	IsImageValid bool   `json:"isImageValid"`
}

// Options carries per-request knobs.
type Options struct {
	// ClientUserAgent, when set, is forwarded on the primary page fetch
	// instead of a pool-rotated agent.
	ClientUserAgent string
}

// Fetcher is the HTTP surface the pipeline needs. *fetcher.Client
// satisfies it; tests inject doubles.
type Fetcher interface {
	Page(ctx context.Context, rawURL string, opts fetcher.Options) (*fetcher.Page, error)
	Head(ctx context.Context, rawURL string, opts fetcher.Options) (int, error)
}

type Extractor struct {
	fetch  Fetcher
	stores *stores.Registry
	log    *logrus.Logger
}

func New(cfg *config.Config, log *logrus.Logger) *Extractor {
	return NewWithFetcher(fetcher.New(cfg, log), cfg, log)
}

// NewWithFetcher builds an Extractor around an externally supplied HTTP
// client.
func NewWithFetcher(f Fetcher, cfg *config.Config, log *logrus.Logger) *Extractor {
	return &Extractor{
		fetch:  f,
		stores: stores.NewRegistry(f, cfg, log),
		log:    log,
	}
}

// Extract resolves metadata for rawURL. It is total: every failure path
// degrades to a partial or placeholder Result, never an error. Disallowed
// URLs (non-HTTP schemes, private or loopback hosts) are rejected before
// any network request is made.
func (e *Extractor) Extract(ctx context.Context, rawURL string, opts Options) Result {
	res := Result{Price: ""}

	u, err := urlutil.Validate(rawURL)
	if err != nil {
		if e.log != nil {
			e.log.WithError(err).WithField("url", rawURL).Warn("rejected extraction input")
		}
		return res
	}

	store := e.stores.Match(u)
	var productID string
	if store != nil {
		productID = store.ProductID(u)
	}

	fopts := fetcher.Options{UserAgent: opts.ClientUserAgent}
	if store != nil {
		if cp, ok := store.(stores.CookieProvider); ok {
			fopts.Cookie = cp.Cookie()
		}
	}

	var storeRes stores.DOMResult
	var storeImageFromAPI bool
	var generic meta.Fields

	base := u
	page, err := e.fetch.Page(ctx, u.String(), fopts)
	if err != nil {
		if e.log != nil {
			e.log.WithError(err).WithField("url", u.String()).Debug("page fetch failed, continuing with fallbacks")
		}
	} else {
		if fu, perr := url.Parse(page.FinalURL); perr == nil && fu.Host != "" {
			base = fu
		}
		doc, perr := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
		if perr != nil {
			if e.log != nil {
				e.log.WithError(perr).Debug("unparseable document")
			}
		} else {
			if store != nil {
				storeRes = store.ExtractFromDocument(doc)
			}
			generic = meta.Extract(doc, base, page.HTML, e.log)
		}
	}

	// Merchant JSON API, when the store has one and the DOM came up short.
	if store != nil && productID != "" && (storeRes.Title == "" || storeRes.ImageURL == "") {
		if api, ok := store.(stores.ProductAPI); ok {
			title, image, aerr := api.FetchProduct(ctx, productID)
			if aerr != nil {
				if e.log != nil {
					e.log.WithError(aerr).WithField("store", store.Name()).Debug("product api fallback failed")
				}
			} else {
				if storeRes.Title == "" {
					storeRes.Title = title
				}
				if storeRes.ImageURL == "" && image != "" {
					storeRes.ImageURL = image
					storeImageFromAPI = true
				}
			}
		}
	}

	res.Title, res.IsTitleValid = e.chooseTitle(u, store, productID, storeRes.Title, generic.Title, rawURL)
	res.Description = e.chooseDescription(u, generic.Description)
	res.ImageURL, res.IsImageValid = e.chooseImage(ctx, base, store, productID, storeRes.ImageURL, storeImageFromAPI, generic)
	return res
}

// chooseTitle runs every candidate through the sanitizer in priority order
// (store result first, then the generic cascade) and falls back to
// URL-derived or store-placeholder synthesis. Only a surviving scraped
// title counts as valid.
func (e *Extractor) chooseTitle(u *url.URL, store stores.Store, productID, storeTitle, genericTitle, rawURL string) (string, bool) {
	for _, cand := range []string{storeTitle, genericTitle} {
		if cand == "" {
			continue
		}
		if cleaned := titleclean.Clean(cand, rawURL); cleaned != "" {
			return cleaned, true
		}
		if e.log != nil {
			e.log.WithField("title", cand).Debug("title rejected by sanitizer")
		}
	}
	if t := meta.SlugTitle(u); t != "" {
		return t, false
	}
	if store != nil {
		if productID != "" {
			return fmt.Sprintf("Producto %s (%s)", store.DisplayName(), productID), false
		}
		return "Producto " + store.DisplayName(), false
	}
	return "", false
}

func (e *Extractor) chooseDescription(u *url.URL, generic string) string {
	if generic != "" {
		return generic
	}
	return meta.SlugDescription(u)
}

// chooseImage prefers the store's scraped or API image, then the generic
// cascade, then a constructed CDN URL. Everything scraped off the page or
// an API is high confidence; constructed URLs are valid only when
// existence-verified.
func (e *Extractor) chooseImage(ctx context.Context, base *url.URL, store stores.Store, productID, storeImage string, fromAPI bool, generic meta.Fields) (string, bool) {
	if storeImage != "" {
		if fromAPI {
			return storeImage, true
		}
		return absolutize(base, storeImage), true
	}
	if generic.ImageURL != "" {
		return generic.ImageURL, true
	}
	if store != nil && productID != "" {
		if img, verified := store.FallbackImage(ctx, productID); img != "" {
			return img, verified
		}
	}
	return "", false
}

// absolutize resolves protocol-relative and path-relative image URLs
// against the fetched page.
func absolutize(base *url.URL, raw string) string {
	if base == nil {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return base.ResolveReference(ref).String()
}
