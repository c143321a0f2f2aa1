// Package titleclean strips store and domain noise out of scraped product
// titles and rejects titles that are really just URLs in disguise.
package titleclean

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Separator runes merchants use to glue their name onto product titles.
const seps = `\-|–—−:·`

// Merchant literals stripped from title edges. Longer names first so the
// alternation matches greedily ("el corte ingles" before "corte").
var merchantNames = []string{
	"el corte inglés", "el corte ingles", "leroy merlin", "pccomponentes",
	"mediamarkt", "aliexpress", "decathlon", "carrefour", "mercadona",
	"inditex", "miravia", "walmart", "amazon", "adidas", "nike", "ikea",
	"zara", "ebay", "h&m",
}

// Purchase-intent boilerplate appended by storefronts.
var purchasePhrases = []string{
	"comprar online", "compra online", "comprar ahora", "buy online",
	"buy now", "al mejor precio", "mejor precio", "precios bajos",
	"envío gratis", "envio gratis", "tienda online", "online shop",
	"free shipping", "ofertas",
}

const tlds = `(?:com|es|net|org|io|co|uk|fr|de|it|pt|mx|us|shop|store)`

var (
	noisePattern    = buildNoisePattern()
	phrasePattern   = buildPhrasePattern()
	trailingNoiseRe = regexp.MustCompile(`(?i)\s*[` + seps + `]\s*["'(]*(?:` + noisePattern + `)[)"'\s.!]*$`)
	// Purchase phrases are stripped from the tail even without a separator:
	// "Portátil gaming al mejor precio".
	trailingPhraseRe = regexp.MustCompile(`(?i)\s+(?:` + phrasePattern + `)[\s.!]*$`)
	leadingNoiseRe  = regexp.MustCompile(`(?i)^[\s.!]*["'(]*(?:` + noisePattern + `)["')]*\s*[` + seps + `]\s*`)
	parenNoiseRe    = regexp.MustCompile(`(?i)\s*\(\s*(?:` + noisePattern + `)\s*\)`)

	bareDomainRe = regexp.MustCompile(`(?i)^(?:[a-z0-9-]+\.)+` + tlds + `$`)
	endsInTLDRe  = regexp.MustCompile(`(?i)\.` + tlds + `$`)
	urlPrefixRe  = regexp.MustCompile(`(?i)^(?:https?://|www\.)`)
	alnumDotsRe  = regexp.MustCompile(`^[a-zA-Z0-9.]+$`)
)

func buildNoisePattern() string {
	var alts []string
	for _, p := range purchasePhrases {
		alts = append(alts, regexp.QuoteMeta(p))
	}
	for _, m := range merchantNames {
		// Optional subdomain prefix and TLD suffix: "ES.Aliexpress.com",
		// "amazon.es", plain "Zara".
		alts = append(alts, `(?:es\.|en\.|m\.|www\d?\.)?`+regexp.QuoteMeta(m)+`(?:\.`+tlds+`)?`)
	}
	// Any domain-shaped token.
	alts = append(alts, `(?:[a-z0-9-]+\.)+`+tlds)
	return strings.Join(alts, "|")
}

func buildPhrasePattern() string {
	alts := make([]string, len(purchasePhrases))
	for i, p := range purchasePhrases {
		alts[i] = regexp.QuoteMeta(p)
	}
	return strings.Join(alts, "|")
}

// Clean applies two-stage title sanitization: first strip merchant, domain
// and purchase-intent noise joined to the title edges by separators, then
// reject anything that still looks like a URL rather than a product name.
// An empty return means the caller should fall through to its next
// candidate. Clean is a projection: cleaning an already-clean title is a
// no-op.
func Clean(raw, sourceURL string) string {
	title := strings.TrimSpace(raw)
	if title == "" {
		return ""
	}

	// Short URL-like strings carry no salvageable product name.
	if utf8.RuneCountInString(title) < 10 && looksLikeURL(title) {
		return ""
	}

	title = stripNoise(title, sourceURL)

	if utf8.RuneCountInString(title) < 5 {
		return ""
	}
	if looksLikeURL(title) {
		return ""
	}
	// A residue of bare letters, digits and dots is a domain fragment.
	if strings.Contains(title, ".") && alnumDotsRe.MatchString(title) {
		return ""
	}
	return title
}

// stripNoise removes noise segments from both edges until a fixpoint, so
// stacked suffixes like "… - Comprar Online - Amazon.es" peel off fully.
func stripNoise(title, sourceURL string) string {
	hostRes := hostNoiseRegexps(sourceURL)
	for {
		prev := title
		title = trailingNoiseRe.ReplaceAllString(title, "")
		title = trailingPhraseRe.ReplaceAllString(title, "")
		title = leadingNoiseRe.ReplaceAllString(title, "")
		title = parenNoiseRe.ReplaceAllString(title, " ")
		for _, re := range hostRes {
			title = re.ReplaceAllString(title, "")
		}
		title = trimEdges(title)
		if title == prev {
			return title
		}
	}
}

// hostNoiseRegexps targets the source page's own registrable domain, which
// may not be in the static merchant list.
func hostNoiseRegexps(sourceURL string) []*regexp.Regexp {
	u, err := url.Parse(sourceURL)
	if err != nil || u.Hostname() == "" {
		return nil
	}
	host := strings.ToLower(u.Hostname())
	for _, prefix := range []string{"www2.", "www.", "es.", "en.", "m."} {
		host = strings.TrimPrefix(host, prefix)
	}
	if host == "" {
		return nil
	}
	base := host
	if i := strings.IndexByte(host, '.'); i > 0 {
		base = host[:i]
	}
	pat := `(?:es\.|en\.|m\.|www\d?\.)?(?:` + regexp.QuoteMeta(host) + `|` + regexp.QuoteMeta(base) + `(?:\.` + tlds + `)?)`
	return []*regexp.Regexp{
		regexp.MustCompile(`(?i)\s*[` + seps + `]\s*["'(]*` + pat + `[)"'\s.!]*$`),
		regexp.MustCompile(`(?i)^[\s.!]*["'(]*` + pat + `["')]*\s*[` + seps + `]\s*`),
	}
}

func trimEdges(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		switch r {
		case '-', '–', '—', '−', '|', ':', '·', '(', ')', '[', ']', '"', '\'', ',', ' ', '\t', '\n':
			return true
		}
		return false
	})
}

func looksLikeURL(s string) bool {
	return urlPrefixRe.MatchString(s) ||
		bareDomainRe.MatchString(s) ||
		endsInTLDRe.MatchString(s)
}
