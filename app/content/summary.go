package content

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/lysyi3m/blogroll/app/feed"
	"github.com/microcosm-cc/bluemonday"
)

const (
	SummaryLength = 200
	Ellipsis      = "..."

	// Cleaned text of this many runes or fewer is not a usable summary.
	minSummaryRunes = 10
)

var textPolicy = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}()

// CleanText strips markup and entities and collapses whitespace runs.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	stripped := textPolicy.Sanitize(s)
	return strings.Join(strings.Fields(html.UnescapeString(stripped)), " ")
}

// Truncate cuts text to limit runes and appends Ellipsis when anything was cut.
func Truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + Ellipsis
}

func usableText(text string) bool {
	return utf8.RuneCountInString(text) > minSummaryRunes
}

// Summary derives a bounded plain-text summary. Platform-specific elements are
// preferred; otherwise content variants are tried in order. An empty result is
// a normal outcome.
func Summary(item feed.RawItem, platform feed.Platform) string {
	if selectors, ok := summarySelectors[platform]; ok {
		if text := selectText(item.RenderedHTML(), selectors); usableText(text) {
			return Truncate(text, SummaryLength)
		}
	}

	for _, variant := range item.ContentVariants() {
		if text := CleanText(variant); usableText(text) {
			return Truncate(text, SummaryLength)
		}
	}

	return ""
}

// selectText returns the first usable element text matched by selectors, in selector order.
func selectText(markup string, selectors []string) string {
	if markup == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ""
	}

	for _, selector := range selectors {
		var found string
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.Join(strings.Fields(s.Text()), " ")
			if usableText(text) {
				found = text
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}

	return ""
}
