package feed

import (
	"fmt"
	"time"
)

type SourceType string

const (
	SourceCompany  SourceType = "company"
	SourcePersonal SourceType = "personal"
)

func (t SourceType) Valid() bool {
	return t == SourceCompany || t == SourcePersonal
}

func ParseSourceType(s string) (SourceType, error) {
	t := SourceType(s)
	if !t.Valid() {
		return "", fmt.Errorf("invalid source type %q (expected %q or %q)", s, SourceCompany, SourcePersonal)
	}
	return t, nil
}

// Platform identifies a blog hosting service whose markup follows a known shape.
type Platform string

const (
	PlatformGeneric Platform = ""
	PlatformMedium  Platform = "medium"
	PlatformVelog   Platform = "velog"
	PlatformTistory Platform = "tistory"
	PlatformBrunch  Platform = "brunch"
)

// Source is one registry entry. Name doubles as the author attribution of every article.
type Source struct {
	Name     string     `yaml:"name" json:"name"`
	URL      string     `yaml:"url" json:"url"`
	Type     SourceType `yaml:"type" json:"type"`
	Platform Platform   `yaml:"platform,omitempty" json:"platform,omitempty"`
}

type Enclosure struct {
	URL    string
	Type   string
	Length int64
}

// Media is one media RSS element (media:content or media:thumbnail).
type Media struct {
	URL    string
	Type   string
	Medium string
}

// RawItem is a feed entry as parsed, before any extraction.
type RawItem struct {
	GUID  string
	Link  string
	Title string

	// Content variants, highest preference first.
	Snippet     string // itunes:summary / media:description
	Content     string // content:encoded or Atom <content>
	Summary     string // Atom <summary>
	Description string // RSS <description>

	PublishedAt *time.Time
	UpdatedAt   *time.Time
	Categories  []string

	Enclosure      *Enclosure
	MediaContent   []Media
	MediaThumbnail []Media
}

// ContentVariants returns the non-empty content fields in preference order.
func (i RawItem) ContentVariants() []string {
	variants := make([]string, 0, 4)
	for _, v := range []string{i.Snippet, i.Content, i.Summary, i.Description} {
		if v != "" {
			variants = append(variants, v)
		}
	}
	return variants
}

// RenderedHTML returns the richest markup body of the item, used for image and element lookups.
func (i RawItem) RenderedHTML() string {
	for _, v := range []string{i.Content, i.Description, i.Summary} {
		if v != "" {
			return v
		}
	}
	return ""
}
