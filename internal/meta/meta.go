// Package meta extracts page metadata from arbitrary e-commerce pages using
// the standard conventions: Open Graph, Twitter Cards, plain meta tags,
// Schema.org JSON-LD and finally DOM heuristics.
package meta

import (
	"html"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/sirupsen/logrus"
)

// Fields is the partial result of generic extraction. Sources name the
// cascade step that produced each value so the orchestrator can set
// confidence flags by provenance.
type Fields struct {
	Title       string
	TitleSource string
	Description string
	ImageURL    string
	ImageSource string
}

// Extract runs the generic cascades over a parsed document. rawHTML is the
// unparsed page, needed for the readability fallback. Never fails; missing
// data leaves fields empty.
func Extract(doc *goquery.Document, pageURL *url.URL, rawHTML string, log *logrus.Logger) Fields {
	var f Fields

	f.Title, f.TitleSource = titleFromDocument(doc)
	f.Description = descriptionFromDocument(doc)
	f.ImageURL, f.ImageSource = imageFromDocument(doc, pageURL)

	if f.Description == "" || f.ImageURL == "" {
		excerpt, img := readabilityFallback(rawHTML, pageURL)
		if f.Description == "" && excerpt != "" {
			f.Description = excerpt
		}
		if f.ImageURL == "" && img != "" {
			f.ImageURL = resolveAgainst(pageURL, img)
			f.ImageSource = "readability"
		}
	}

	if f.ImageURL == "" {
		if img := BestImage(doc, pageURL); img != "" {
			f.ImageURL = img
			f.ImageSource = "img-scan"
		}
	}

	if log != nil && f.Title != "" {
		log.WithFields(logrus.Fields{"source": f.TitleSource, "url": pageURL.String()}).Debug("generic title extracted")
	}
	return f
}

// titleFromDocument walks the title cascade in fixed priority order; the
// first non-empty candidate wins.
func titleFromDocument(doc *goquery.Document) (string, string) {
	if t := metaContent(doc, `meta[property="og:title"]`); t != "" {
		return t, "og:title"
	}
	if t := metaContent(doc, `meta[name="twitter:title"], meta[property="twitter:title"]`); t != "" {
		return t, "twitter:title"
	}
	if t := metaContent(doc, `meta[name="title"]`); t != "" {
		return t, "meta:title"
	}
	if t := cleanText(doc.Find("title").First().Text()); t != "" {
		return t, "title-tag"
	}
	if t := jsonLDTitle(doc); t != "" {
		return t, "json-ld"
	}
	if t := cleanText(doc.Find("h1").First().Text()); t != "" {
		return t, "h1"
	}
	return "", ""
}

func descriptionFromDocument(doc *goquery.Document) string {
	if d := metaContent(doc, `meta[property="og:description"]`); d != "" {
		return d
	}
	if d := metaContent(doc, `meta[name="twitter:description"], meta[property="twitter:description"]`); d != "" {
		return d
	}
	return metaContent(doc, `meta[name="description"]`)
}

// imageFromDocument walks the metadata image cascade; the scored <img> scan
// belongs to the caller because it is a last resort, after merchant
// heuristics had their chance.
func imageFromDocument(doc *goquery.Document, pageURL *url.URL) (string, string) {
	if img := metaContent(doc, `meta[property="og:image"], meta[property="og:image:url"]`); img != "" {
		return resolveAgainst(pageURL, img), "og:image"
	}
	if img := metaContent(doc, `meta[name="twitter:image"], meta[property="twitter:image"]`); img != "" {
		return resolveAgainst(pageURL, img), "twitter:image"
	}
	if img := metaContent(doc, `meta[name="image"]`); img != "" {
		return resolveAgainst(pageURL, img), "meta:image"
	}
	if img := jsonLDImage(doc); img != "" {
		return resolveAgainst(pageURL, img), "json-ld"
	}
	return "", ""
}

func readabilityFallback(rawHTML string, pageURL *url.URL) (excerpt, image string) {
	if strings.TrimSpace(rawHTML) == "" {
		return "", ""
	}
	article, err := readability.FromReader(strings.NewReader(rawHTML), pageURL)
	if err != nil {
		return "", ""
	}
	return cleanText(article.Excerpt), article.Image
}

func metaContent(doc *goquery.Document, selector string) string {
	var content string
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if c, ok := s.Attr("content"); ok {
			content = cleanText(c)
			return content == ""
		}
		return true
	})
	return content
}

// cleanText trims and decodes entities that survived parsing (pages that
// double-escape their metadata are common enough to matter).
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	if strings.ContainsRune(s, '&') {
		s = html.UnescapeString(s)
	}
	s = strings.ReplaceAll(s, " ", " ")
	return strings.Join(strings.Fields(s), " ")
}

// resolveAgainst turns protocol-relative, root-relative and path-relative
// references into absolute URLs against the source page.
func resolveAgainst(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || base == nil {
		return ref
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(parsed).String()
}
