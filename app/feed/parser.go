package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses an RSS or Atom document into raw items.
func (p *Parser) Run(data []byte) ([]RawItem, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	atom := parsed.FeedType == "atom"

	items := make([]RawItem, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		items = append(items, p.normalizeItem(item, atom))
	}

	return items, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item, atom bool) RawItem {
	raw := RawItem{
		GUID:        cmp.Or(item.GUID, item.Link),
		Link:        strings.TrimSpace(item.Link),
		Title:       strings.TrimSpace(item.Title),
		Content:     item.Content,
		PublishedAt: item.PublishedParsed,
		UpdatedAt:   item.UpdatedParsed,
		Categories:  item.Categories,
	}

	// gofeed maps both Atom <summary> and RSS <description> onto Description.
	if atom {
		raw.Summary = item.Description
	} else {
		raw.Description = item.Description
	}

	if item.ITunesExt != nil {
		raw.Snippet = strings.TrimSpace(item.ITunesExt.Summary)
	}

	// RSS 2.0 allows one enclosure per item; Atom may carry several links with rel=enclosure.
	for _, enclosure := range item.Enclosures {
		if enclosure == nil || enclosure.URL == "" {
			continue
		}
		raw.Enclosure = &Enclosure{
			URL:  strings.TrimSpace(enclosure.URL),
			Type: strings.ToLower(strings.TrimSpace(enclosure.Type)),
		}
		if enclosure.Length != "" {
			if length, err := strconv.ParseInt(enclosure.Length, 10, 64); err == nil {
				raw.Enclosure.Length = length
			}
		}
		break
	}

	if media, ok := item.Extensions["media"]; ok {
		raw.MediaContent = collectMedia(media, "content")
		raw.MediaThumbnail = collectMedia(media, "thumbnail")

		if raw.Snippet == "" {
			raw.Snippet = mediaDescription(media)
		}

		// media:group wraps content/thumbnail elements on some hosts.
		for _, group := range media["group"] {
			raw.MediaContent = append(raw.MediaContent, collectMedia(group.Children, "content")...)
			raw.MediaThumbnail = append(raw.MediaThumbnail, collectMedia(group.Children, "thumbnail")...)
			if raw.Snippet == "" {
				raw.Snippet = mediaDescription(group.Children)
			}
		}
	}

	return raw
}

func collectMedia(elements map[string][]ext.Extension, name string) []Media {
	var out []Media
	for _, e := range elements[name] {
		u := strings.TrimSpace(e.Attrs["url"])
		if u == "" {
			continue
		}
		out = append(out, Media{
			URL:    u,
			Type:   strings.ToLower(e.Attrs["type"]),
			Medium: strings.ToLower(e.Attrs["medium"]),
		})
	}
	return out
}

func mediaDescription(elements map[string][]ext.Extension) string {
	for _, e := range elements["description"] {
		if v := strings.TrimSpace(e.Value); v != "" {
			return v
		}
	}
	return ""
}
