package content

import (
	"regexp"

	"github.com/lysyi3m/blogroll/app/feed"
)

// summarySelectors name the element that carries a post's lede on hosts with predictable markup.
var summarySelectors = map[feed.Platform][]string{
	feed.PlatformMedium:  {"p.medium-feed-snippet", "h4", "p"},
	feed.PlatformVelog:   {"p"},
	feed.PlatformTistory: {"p"},
	feed.PlatformBrunch:  {"p"},
}

// cdnImagePatterns match image URLs of hosting CDNs as they appear inside rendered content.
var cdnImagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`https://miro\.medium\.com/[^\s"'<>()]+`),
	regexp.MustCompile(`https://cdn-images-\d+\.medium\.com/[^\s"'<>()]+`),
	regexp.MustCompile(`https://velog\.velcdn\.com/[^\s"'<>()]+`),
	regexp.MustCompile(`https?://blog\.kakaocdn\.net/[^\s"'<>()]+`),
	regexp.MustCompile(`https?://t1\.daumcdn\.net/brunch/[^\s"'<>()]+`),
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".avif": true,
}
