package meta

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestTitleCascade_OpenGraphBeatsTitleTag(t *testing.T) {
	doc := parseDoc(t, `<html><head>
		<meta property="og:title" content="Blue Wireless Headphones">
		<title>Some Store - totally different</title>
	</head><body><h1>Also different</h1></body></html>`)

	title, source := titleFromDocument(doc)
	assert.Equal(t, "Blue Wireless Headphones", title)
	assert.Equal(t, "og:title", source)
}

func TestTitleCascade_FullPriorityOrder(t *testing.T) {
	cases := []struct {
		name, html, want, source string
	}{
		{"twitter beats meta title", `<head><meta name="twitter:title" content="From Twitter"><meta name="title" content="From Meta"></head>`, "From Twitter", "twitter:title"},
		{"meta title beats title tag", `<head><meta name="title" content="From Meta"><title>From Tag</title></head>`, "From Meta", "meta:title"},
		{"title tag beats json-ld", `<head><title>From Tag</title><script type="application/ld+json">{"name":"From LD"}</script></head>`, "From Tag", "title-tag"},
		{"json-ld beats h1", `<head><script type="application/ld+json">{"@type":"Product","name":"From LD"}</script></head><body><h1>From H1</h1></body>`, "From LD", "json-ld"},
		{"h1 last resort", `<body><h1>From H1</h1></body>`, "From H1", "h1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			title, source := titleFromDocument(parseDoc(t, tc.html))
			assert.Equal(t, tc.want, title)
			assert.Equal(t, tc.source, source)
		})
	}
}

func TestTitleCascade_DecodesEntities(t *testing.T) {
	doc := parseDoc(t, `<head><meta property="og:title" content="Ben &amp;amp; Jerry&amp;#39;s"></head>`)
	title, _ := titleFromDocument(doc)
	assert.Equal(t, "Ben & Jerry's", title)
}

func TestTitleCascade_SkipsEmptyCandidates(t *testing.T) {
	doc := parseDoc(t, `<head>
		<meta property="og:title" content="   ">
		<title>Real Title</title>
	</head>`)
	title, source := titleFromDocument(doc)
	assert.Equal(t, "Real Title", title)
	assert.Equal(t, "title-tag", source)
}

func TestDescriptionCascade(t *testing.T) {
	doc := parseDoc(t, `<head>
		<meta name="description" content="plain description">
		<meta property="og:description" content="og description">
	</head>`)
	assert.Equal(t, "og description", descriptionFromDocument(doc))

	doc = parseDoc(t, `<head><meta name="description" content="plain description"></head>`)
	assert.Equal(t, "plain description", descriptionFromDocument(doc))
}

func TestImageCascade_OpenGraphFirst(t *testing.T) {
	doc := parseDoc(t, `<head>
		<meta property="og:image" content="https://cdn.example.com/img.jpg">
		<meta name="twitter:image" content="https://cdn.example.com/tw.jpg">
	</head>`)
	img, source := imageFromDocument(doc, mustURL(t, "https://example.com/p/1"))
	assert.Equal(t, "https://cdn.example.com/img.jpg", img)
	assert.Equal(t, "og:image", source)
}

func TestImageCascade_ResolvesRelativeURLs(t *testing.T) {
	base := mustURL(t, "https://shop.example.com/products/item")
	cases := []struct{ ref, want string }{
		{"//cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"/images/a.jpg", "https://shop.example.com/images/a.jpg"},
		{"a.jpg", "https://shop.example.com/products/a.jpg"},
	}
	for _, tc := range cases {
		doc := parseDoc(t, `<head><meta property="og:image" content="`+tc.ref+`"></head>`)
		img, _ := imageFromDocument(doc, base)
		assert.Equal(t, tc.want, img)
	}
}

func TestJSONLD_ToleratesMalformedScripts(t *testing.T) {
	doc := parseDoc(t, `<head>
		<script type="application/ld+json">{not json at all</script>
		<script type="application/ld+json">{"@graph":[{"@type":"Product","name":"Graph Product","image":{"url":"https://cdn.example.com/ld.jpg"}}]}</script>
	</head>`)
	assert.Equal(t, "Graph Product", jsonLDTitle(doc))
	assert.Equal(t, "https://cdn.example.com/ld.jpg", jsonLDImage(doc))
}

func TestJSONLD_ImageList(t *testing.T) {
	doc := parseDoc(t, `<head><script type="application/ld+json">
		{"@type":"Product","image":["https://cdn.example.com/1.jpg","https://cdn.example.com/2.jpg"]}
	</script></head>`)
	assert.Equal(t, "https://cdn.example.com/1.jpg", jsonLDImage(doc))
}

func TestBestImage_KeywordBeatsEqualSize(t *testing.T) {
	doc := parseDoc(t, `<body>
		<img class="product-main" width="600" src="/main.jpg">
		<img class="icon-like" width="600" src="/other.jpg">
	</body>`)
	img := BestImage(doc, mustURL(t, "https://example.com/"))
	assert.Equal(t, "https://example.com/main.jpg", img)
}

func TestBestImage_RejectsBannedSources(t *testing.T) {
	doc := parseDoc(t, `<body>
		<img class="product" width="800" src="/placeholder.jpg">
		<img class="product" width="800" src="/logo.png">
		<img class="product" width="800" src="/spinner.gif">
		<img class="gallery" width="800" src="/real.jpg">
	</body>`)
	img := BestImage(doc, mustURL(t, "https://example.com/"))
	assert.Equal(t, "https://example.com/real.jpg", img)
}

func TestBestImage_AvatarPenalty(t *testing.T) {
	doc := parseDoc(t, `<body>
		<img class="avatar" width="600" src="/avatar.jpg">
		<img class="gallery" width="400" src="/shot.jpg">
	</body>`)
	img := BestImage(doc, mustURL(t, "https://example.com/"))
	assert.Equal(t, "https://example.com/shot.jpg", img)
}

func TestBestImage_FallbackToFirstLargeEnough(t *testing.T) {
	// No keyword hints and small bonus only: below the winning threshold,
	// so the first >=200px survivor is used.
	doc := parseDoc(t, `<body>
		<img width="150" src="/tiny.jpg">
		<img width="250" src="/a.jpg">
		<img width="260" src="/b.jpg">
	</body>`)
	// All three get the early-position bonus (+15) which is under 20.
	img := BestImage(doc, mustURL(t, "https://example.com/"))
	assert.Equal(t, "https://example.com/a.jpg", img)
}

func TestBestImage_LazyLoadedSources(t *testing.T) {
	doc := parseDoc(t, `<body><img class="product hero" width="640" data-src="/lazy.jpg"></body>`)
	img := BestImage(doc, mustURL(t, "https://example.com/"))
	assert.Equal(t, "https://example.com/lazy.jpg", img)
}

func TestSlugTitle(t *testing.T) {
	cases := []struct{ rawURL, want string }{
		{"https://shop.example.com/blue-wireless-headphones-B0C12345X.html", "Blue Wireless Headphones"},
		{"https://shop.example.com/products/funda_silicona_iphone", "Funda Silicona Iphone"},
		{"https://es.aliexpress.com/item/1005006342357549.html", ""},
		{"https://shop.example.com/", ""},
	}
	for _, tc := range cases {
		got := SlugTitle(mustURL(t, tc.rawURL))
		assert.Equal(t, tc.want, got, tc.rawURL)
	}
}

func TestSlugDescription(t *testing.T) {
	assert.Equal(t, "Enlace de shop.example.com", SlugDescription(mustURL(t, "https://shop.example.com/x")))
}

func TestExtract_EndToEndGenericPage(t *testing.T) {
	html := `<html><head>
		<meta property="og:title" content="Blue Wireless Headphones">
		<meta property="og:description" content="Great sound">
		<meta property="og:image" content="https://cdn.example.com/img.jpg">
	</head><body></body></html>`
	doc := parseDoc(t, html)

	f := Extract(doc, mustURL(t, "https://example.com/p/1"), html, nil)
	assert.Equal(t, "Blue Wireless Headphones", f.Title)
	assert.Equal(t, "Great sound", f.Description)
	assert.Equal(t, "https://cdn.example.com/img.jpg", f.ImageURL)
	assert.Equal(t, "og:image", f.ImageSource)
}
