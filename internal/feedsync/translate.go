package feedsync

import (
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"

	"github.com/jdholdren/cardfeed/internal/cardfeed"
)

// RemoteID is the identifier an item keeps across syncs of its feed: the first
// non-empty of guid, id, link, published date and title.
func RemoteID(item *gofeed.Item) string {
	for _, id := range []string{
		item.GUID,
		item.Custom["id"],
		item.Link,
		item.Published,
		item.Title,
	} {
		if id = strings.TrimSpace(id); id != "" {
			return id
		}
	}
	return ""
}

// Translate converts a parsed entry into an item of the feed. Content is made
// absolute against the item's link and sanitized.
func Translate(feedID string, item *gofeed.Item, now time.Time) cardfeed.RSSItem {
	link := strings.TrimSpace(item.Link)

	return cardfeed.RSSItem{
		FeedID:   feedID,
		RemoteID: RemoteID(item),
		Title:    stripTags(item.Title),
		Link:     link,
		Content:  sanitize(absolutize(pickContent(item), link)),
		PubDate:  pubDate(item, now),
	}
}

// Prefers content:encoded, then the content field, then the summary.
func pickContent(item *gofeed.Item) string {
	if encoded := item.Extensions["content"]["encoded"]; len(encoded) > 0 && strings.TrimSpace(encoded[0].Value) != "" {
		return encoded[0].Value
	}
	if strings.TrimSpace(item.Content) != "" {
		return item.Content
	}
	return item.Description
}

func pubDate(item *gofeed.Item, now time.Time) time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC()
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC()
	}
	for _, raw := range []string{item.Published, item.Updated} {
		if raw == "" {
			continue
		}
		if t, err := dateparse.ParseAny(raw); err == nil {
			return t.UTC()
		}
	}
	return now
}

// Rewrites relative href and src attributes to absolute URLs using base.
// Content is returned untouched when base isn't an absolute URL.
func absolutize(content, base string) string {
	if strings.TrimSpace(content) == "" {
		return content
	}
	baseURL, err := url.Parse(base)
	if err != nil || !baseURL.IsAbs() {
		return content
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return content
	}
	doc.Find("[href], [src]").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range []string{"href", "src"} {
			v, ok := s.Attr(attr)
			if !ok {
				continue
			}
			ref, err := url.Parse(strings.TrimSpace(v))
			if err != nil || ref.IsAbs() {
				continue
			}
			s.SetAttr(attr, baseURL.ResolveReference(ref).String())
		}
	})

	out, err := doc.Find("body").Html()
	if err != nil {
		return content
	}
	return out
}

func stripTags(s string) string {
	return html.UnescapeString(stripPolicy.Sanitize(strings.TrimSpace(s)))
}
