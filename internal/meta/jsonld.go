package meta

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// jsonLDNodes collects every object found in ld+json scripts, flattening
// top-level arrays and @graph containers. Malformed scripts are skipped;
// one broken block must not hide its siblings.
func jsonLDNodes(doc *goquery.Document) []map[string]any {
	var nodes []map[string]any
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		var payload any
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return
		}
		nodes = append(nodes, flattenLD(payload)...)
	})
	return nodes
}

func flattenLD(payload any) []map[string]any {
	switch v := payload.(type) {
	case map[string]any:
		nodes := []map[string]any{v}
		if graph, ok := v["@graph"].([]any); ok {
			for _, g := range graph {
				nodes = append(nodes, flattenLD(g)...)
			}
		}
		return nodes
	case []any:
		var nodes []map[string]any
		for _, item := range v {
			nodes = append(nodes, flattenLD(item)...)
		}
		return nodes
	}
	return nil
}

// jsonLDTitle returns the first name or headline found in structured data.
func jsonLDTitle(doc *goquery.Document) string {
	for _, node := range jsonLDNodes(doc) {
		for _, key := range []string{"name", "headline"} {
			if s, ok := node[key].(string); ok {
				if t := cleanText(s); t != "" {
					return t
				}
			}
		}
	}
	return ""
}

// jsonLDImage returns the first image reference found in structured data.
// Schema.org allows a string, a list, or an ImageObject.
func jsonLDImage(doc *goquery.Document) string {
	for _, node := range jsonLDNodes(doc) {
		if img := ldImageValue(node["image"]); img != "" {
			return img
		}
	}
	return ""
}

func ldImageValue(v any) string {
	switch img := v.(type) {
	case string:
		return strings.TrimSpace(img)
	case []any:
		for _, item := range img {
			if s := ldImageValue(item); s != "" {
				return s
			}
		}
	case map[string]any:
		if s, ok := img["url"].(string); ok {
			return strings.TrimSpace(s)
		}
		if s, ok := img["contentUrl"].(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
