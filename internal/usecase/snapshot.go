package usecase

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/product-harvester/internal/entity"
	"github.com/user/product-harvester/pkg/utils"
)

// Attributes checked in order for an image's URL. srcset is handled last.
var imageSourceAttrs = []string{"src", "data-src", "data-lazy-src", "data-original"}

// BuildSnapshot parses rendered markup into a snapshot. Image and link lists
// keep document order, drop duplicates and are capped at maxImages and
// maxLinks.
func BuildSnapshot(pageURL, title, markup string, maxImages, maxLinks int) (entity.PageSnapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return entity.PageSnapshot{}, fmt.Errorf("parse markup: %w", err)
	}

	if maxImages <= 0 {
		maxImages = 50
	}
	if maxLinks <= 0 {
		maxLinks = 100
	}
	base, _ := url.Parse(pageURL)
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	return entity.PageSnapshot{
		URL:            pageURL,
		Title:          title,
		RawMarkup:      markup,
		StructuredData: structuredData(doc),
		ImageURLs:      imageURLs(doc, base, maxImages),
		Links:          links(doc, base, maxLinks),
	}, nil
}

// structuredData returns every JSON-LD block that parses. A broken block
// does not affect the others.
func structuredData(doc *goquery.Document) []json.RawMessage {
	var blocks []json.RawMessage
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" || !json.Valid([]byte(raw)) {
			return
		}
		blocks = append(blocks, json.RawMessage(raw))
	})
	return blocks
}

func imageURLs(doc *goquery.Document, base *url.URL, limit int) []string {
	seen := make(map[string]struct{})
	images := make([]string, 0)
	doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src := imageSource(s, base)
		if src == "" {
			return true
		}
		if _, dup := seen[src]; dup {
			return true
		}
		seen[src] = struct{}{}
		images = append(images, src)
		return len(images) < limit
	})
	return images
}

// imageSource walks the lazy-loading fallback chain and returns the first
// candidate that resolves against base to an absolute http(s) URL.
// Placeholders such as data: URIs in src fall through to the next attribute.
func imageSource(s *goquery.Selection, base *url.URL) string {
	for _, attr := range imageSourceAttrs {
		if abs := resolveImage(base, s.AttrOr(attr, "")); abs != "" {
			return abs
		}
	}
	// The first srcset candidate ends at whitespace. URLs may contain commas
	// (CDN transforms such as w_400,h_300), so the list is not split on them.
	if fields := strings.Fields(s.AttrOr("srcset", "")); len(fields) > 0 {
		return resolveImage(base, strings.TrimRight(fields[0], ","))
	}
	return ""
}

func resolveImage(base *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	abs, err := utils.ToAbsoluteURL(base, raw)
	if err != nil || !utils.IsAbsoluteHTTP(abs) {
		return ""
	}
	return abs
}

func links(doc *goquery.Document, base *url.URL, limit int) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") {
			return true
		}
		abs, err := utils.ToAbsoluteURL(base, href)
		if err != nil || !utils.IsAbsoluteHTTP(abs) {
			return true
		}
		if _, dup := seen[abs]; dup {
			return true
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
		return len(out) < limit
	})
	return out
}
