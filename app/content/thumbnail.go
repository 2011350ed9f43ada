package content

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/lysyi3m/blogroll/app/feed"
	"github.com/lysyi3m/blogroll/app/identity"
)

// ThumbnailStrategy inspects one item and returns an absolute http(s) image URL, or "".
type ThumbnailStrategy func(item feed.RawItem) string

// DefaultThumbnailStrategies are tried in order; the first non-empty result wins.
var DefaultThumbnailStrategies = []ThumbnailStrategy{
	EnclosureImage,
	MediaContentImage,
	MediaThumbnailImage,
	CDNImage,
	EmbeddedImage,
	SocialPreviewImage,
}

// Thumbnail runs strategies in order. An empty result means no thumbnail, not an error.
func Thumbnail(item feed.RawItem, strategies []ThumbnailStrategy) string {
	for _, strategy := range strategies {
		if u := strategy(item); u != "" {
			return u
		}
	}
	return ""
}

func EnclosureImage(item feed.RawItem) string {
	if item.Enclosure == nil || !strings.HasPrefix(item.Enclosure.Type, "image/") {
		return ""
	}
	return absoluteURL(item.Enclosure.URL)
}

// MediaContentImage accepts media:content declared as an image, or with no medium at all.
func MediaContentImage(item feed.RawItem) string {
	for _, m := range item.MediaContent {
		isImage := m.Medium == "image" || strings.HasPrefix(m.Type, "image/")
		if !isImage && (m.Medium != "" || m.Type != "") {
			continue
		}
		if u := absoluteURL(m.URL); u != "" {
			return u
		}
	}
	return ""
}

func MediaThumbnailImage(item feed.RawItem) string {
	for _, m := range item.MediaThumbnail {
		if u := absoluteURL(m.URL); u != "" {
			return u
		}
	}
	return ""
}

// CDNImage matches known hosting CDN URL shapes in the rendered content. Query and
// fragment are stripped and the path must end in a supported image extension.
func CDNImage(item feed.RawItem) string {
	markup := item.RenderedHTML()
	if markup == "" {
		return ""
	}

	for _, pattern := range cdnImagePatterns {
		for _, match := range pattern.FindAllString(markup, -1) {
			if u := cleanCDNURL(match); u != "" {
				return u
			}
		}
	}
	return ""
}

func cleanCDNURL(raw string) string {
	u, err := url.Parse(strings.ReplaceAll(raw, "&amp;", "&"))
	if err != nil {
		return ""
	}
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""

	if !imageExtensions[strings.ToLower(path.Ext(u.Path))] {
		return ""
	}
	return absoluteURL(u.String())
}

// lazyImageAttrs are checked before src, which is checked before srcset.
var lazyImageAttrs = []string{"data-src", "data-lazy-src", "data-original"}

// EmbeddedImage picks the first <img> in the rendered content. Relative sources
// resolve against the origin of the item link; inline data URIs and tracking
// pixels are skipped.
func EmbeddedImage(item feed.RawItem) string {
	doc := parseHTML(item.RenderedHTML())
	if doc == nil {
		return ""
	}

	base := identity.Origin(item.Link)

	var found string
	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		if isTrackingPixel(img) {
			return true
		}
		for _, src := range imageSources(img) {
			if u := resolveURL(base, src); u != "" {
				found = u
				return false
			}
		}
		return true
	})

	return found
}

func imageSources(img *goquery.Selection) []string {
	var sources []string
	for _, attr := range lazyImageAttrs {
		if v, ok := img.Attr(attr); ok {
			sources = append(sources, v)
		}
	}
	if v, ok := img.Attr("src"); ok {
		sources = append(sources, v)
	}
	if v, ok := img.Attr("srcset"); ok {
		sources = append(sources, firstSrcsetCandidate(v))
	}

	out := sources[:0]
	for _, src := range sources {
		src = strings.TrimSpace(src)
		if src == "" || strings.HasPrefix(strings.ToLower(src), "data:") {
			continue
		}
		out = append(out, src)
	}
	return out
}

func firstSrcsetCandidate(srcset string) string {
	first, _, _ := strings.Cut(srcset, ",")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func isTrackingPixel(img *goquery.Selection) bool {
	width, _ := img.Attr("width")
	height, _ := img.Attr("height")
	return strings.TrimSpace(width) == "1" || strings.TrimSpace(height) == "1"
}

// SocialPreviewImage reads an og:image style meta tag from the rendered content.
func SocialPreviewImage(item feed.RawItem) string {
	doc := parseHTML(item.RenderedHTML())
	if doc == nil {
		return ""
	}
	return OgImageURL(doc, identity.Origin(item.Link))
}

var ogImageSelectors = []string{
	`meta[property="og:image"]`,
	`meta[property="og:image:url"]`,
	`meta[name="og:image"]`,
	`meta[name="twitter:image"]`,
}

// OgImageURL returns the social preview image of a document, resolved against base.
func OgImageURL(doc *goquery.Document, base string) string {
	for _, selector := range ogImageSelectors {
		content, ok := doc.Find(selector).First().Attr("content")
		if !ok {
			continue
		}
		if u := resolveURL(base, content); u != "" {
			return u
		}
	}
	return ""
}

func parseHTML(markup string) *goquery.Document {
	if markup == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}
	return doc
}

// absoluteURL returns raw when it is an absolute http(s) URL, otherwise "".
func absoluteURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// resolveURL resolves ref against base and returns an absolute http(s) URL, or "".
func resolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(strings.ToLower(ref), "data:") {
		return ""
	}
	if u := absoluteURL(ref); u != "" {
		return u
	}
	if base == "" {
		return ""
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return absoluteURL(baseURL.ResolveReference(refURL).String())
}
