package feed

import (
	"testing"
)

func TestParseRSS2(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <description>Test Description</description>
    <item>
      <title>Test Item 1</title>
      <link>https://example.com/item1</link>
      <description>Test Item 1 Description</description>
      <content:encoded><![CDATA[<p>Full <b>content</b> of item 1</p>]]></content:encoded>
      <guid>item-1</guid>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
      <category>Technology</category>
      <category>Programming</category>
    </item>
    <item>
      <title>Test Item 2</title>
      <link>https://example.com/item2</link>
      <description>Test Item 2 Description</description>
    </item>
  </channel>
</rss>`

	parser := NewParser()
	items, err := parser.Run([]byte(rssData))

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got: %d", len(items))
	}

	item1 := items[0]
	if item1.Title != "Test Item 1" {
		t.Errorf("Expected title 'Test Item 1', got: %s", item1.Title)
	}
	if item1.Link != "https://example.com/item1" {
		t.Errorf("Expected link 'https://example.com/item1', got: %s", item1.Link)
	}
	if item1.GUID != "item-1" {
		t.Errorf("Expected GUID 'item-1', got: %s", item1.GUID)
	}
	if item1.Description != "Test Item 1 Description" {
		t.Errorf("Expected description 'Test Item 1 Description', got: %s", item1.Description)
	}
	if item1.Content != "<p>Full <b>content</b> of item 1</p>" {
		t.Errorf("Expected content:encoded body, got: %s", item1.Content)
	}
	if item1.Summary != "" {
		t.Errorf("Expected no Atom summary for RSS item, got: %s", item1.Summary)
	}
	if item1.PublishedAt == nil || item1.PublishedAt.Year() != 2023 {
		t.Errorf("Expected parsed publish date in 2023, got: %v", item1.PublishedAt)
	}
	if len(item1.Categories) != 2 {
		t.Errorf("Expected 2 categories, got: %d", len(item1.Categories))
	}

	item2 := items[1]
	if item2.PublishedAt != nil {
		t.Errorf("Expected nil publish date, got: %v", item2.PublishedAt)
	}
	if item2.GUID != "https://example.com/item2" {
		t.Errorf("Expected GUID to fall back to link, got: %s", item2.GUID)
	}
}

func TestParseAtom(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Test Atom Feed</title>
  <link href="https://example.com"/>
  <updated>2023-07-03T12:00:00Z</updated>
  <id>urn:uuid:1234567890</id>
  <entry>
    <title>Test Entry</title>
    <link href="https://example.com/entry1"/>
    <id>urn:uuid:entry-1</id>
    <updated>2023-07-03T10:00:00Z</updated>
    <summary>Short summary</summary>
    <content type="html">Test content</content>
  </entry>
</feed>`

	parser := NewParser()
	items, err := parser.Run([]byte(atomData))

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got: %d", len(items))
	}

	item := items[0]
	if item.Summary != "Short summary" {
		t.Errorf("Expected Atom summary 'Short summary', got: %s", item.Summary)
	}
	if item.Description != "" {
		t.Errorf("Expected empty RSS description for Atom entry, got: %s", item.Description)
	}
	if item.Content != "Test content" {
		t.Errorf("Expected content 'Test content', got: %s", item.Content)
	}
	if item.UpdatedAt == nil {
		t.Error("Expected updated date to be parsed")
	}

	variants := item.ContentVariants()
	if len(variants) != 2 || variants[0] != "Test content" || variants[1] != "Short summary" {
		t.Errorf("Expected variants [content, summary], got: %v", variants)
	}
}

func TestParseInvalidFeed(t *testing.T) {
	invalidData := `<html><body>This is not a feed</body></html>`

	parser := NewParser()
	_, err := parser.Run([]byte(invalidData))

	if err == nil {
		t.Error("Expected error for invalid feed data")
	}
}

func TestParseRSSWithEnclosure(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <description>Test Description</description>
    <item>
      <title>Item with enclosure</title>
      <link>https://example.com/item1</link>
      <enclosure url="https://example.com/cover.png" length="12345" type="Image/PNG"/>
    </item>
  </channel>
</rss>`

	parser := NewParser()
	items, err := parser.Run([]byte(rssData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	enclosure := items[0].Enclosure
	if enclosure == nil {
		t.Fatal("Expected enclosure to be parsed")
	}
	if enclosure.URL != "https://example.com/cover.png" {
		t.Errorf("Expected enclosure URL 'https://example.com/cover.png', got: %s", enclosure.URL)
	}
	if enclosure.Type != "image/png" {
		t.Errorf("Expected lowercased enclosure type 'image/png', got: %s", enclosure.Type)
	}
	if enclosure.Length != 12345 {
		t.Errorf("Expected enclosure length 12345, got: %d", enclosure.Length)
	}
}

func TestParseRSSWithMediaExtensions(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <description>Test Description</description>
    <item>
      <title>Item with media</title>
      <link>https://example.com/item1</link>
      <media:content url="https://cdn.example.com/full.jpg" medium="image" type="image/jpeg"/>
      <media:thumbnail url="https://cdn.example.com/thumb.jpg"/>
      <media:description>A short media description</media:description>
    </item>
    <item>
      <title>Item with media group</title>
      <link>https://example.com/item2</link>
      <media:group>
        <media:content url="https://cdn.example.com/grouped.jpg" medium="image"/>
        <media:thumbnail url="https://cdn.example.com/grouped-thumb.jpg"/>
      </media:group>
    </item>
  </channel>
</rss>`

	parser := NewParser()
	items, err := parser.Run([]byte(rssData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	item := items[0]
	if len(item.MediaContent) != 1 || item.MediaContent[0].URL != "https://cdn.example.com/full.jpg" {
		t.Fatalf("Expected media:content URL, got: %+v", item.MediaContent)
	}
	if item.MediaContent[0].Medium != "image" {
		t.Errorf("Expected medium 'image', got: %s", item.MediaContent[0].Medium)
	}
	if len(item.MediaThumbnail) != 1 || item.MediaThumbnail[0].URL != "https://cdn.example.com/thumb.jpg" {
		t.Errorf("Expected media:thumbnail URL, got: %+v", item.MediaThumbnail)
	}
	if item.Snippet != "A short media description" {
		t.Errorf("Expected snippet from media:description, got: %s", item.Snippet)
	}

	grouped := items[1]
	if len(grouped.MediaContent) != 1 || grouped.MediaContent[0].URL != "https://cdn.example.com/grouped.jpg" {
		t.Errorf("Expected media:content from media:group, got: %+v", grouped.MediaContent)
	}
	if len(grouped.MediaThumbnail) != 1 {
		t.Errorf("Expected media:thumbnail from media:group, got: %+v", grouped.MediaThumbnail)
	}
}

func TestParseRSSWithHTMLEntities(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <description>Test</description>
    <item>
      <title>Tom &amp; Jerry</title>
      <link>  https://example.com/tom-and-jerry  </link>
      <description>&lt;p&gt;Cats &amp;amp; mice&lt;/p&gt;</description>
    </item>
  </channel>
</rss>`

	parser := NewParser()
	items, err := parser.Run([]byte(rssData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if items[0].Title != "Tom & Jerry" {
		t.Errorf("Expected decoded title 'Tom & Jerry', got: %s", items[0].Title)
	}
	if items[0].Link != "https://example.com/tom-and-jerry" {
		t.Errorf("Expected trimmed link, got: '%s'", items[0].Link)
	}
	if items[0].Description == "" {
		t.Error("Expected description to be kept")
	}
}

func TestRenderedHTMLPrefersContent(t *testing.T) {
	item := RawItem{Content: "<p>content</p>", Description: "<p>description</p>"}
	if item.RenderedHTML() != "<p>content</p>" {
		t.Errorf("Expected content to be preferred, got: %s", item.RenderedHTML())
	}

	item = RawItem{Description: "<p>description</p>"}
	if item.RenderedHTML() != "<p>description</p>" {
		t.Errorf("Expected description fallback, got: %s", item.RenderedHTML())
	}
}
