package feedsync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/jdholdren/cardfeed/internal/cardfeed"
)

// Pages bigger than this aren't worth looking through.
const maxDiscoverBody = 4 << 20

var feedTypes = map[string]bool{
	"application/rss+xml":   true,
	"application/atom+xml":  true,
	"application/feed+json": true,
}

// Discover finds the feeds offered by a page. A url that already points at a
// feed comes back as is.
func (s *Syncer) Discover(ctx context.Context, pageURL string) ([]string, error) {
	if err := validateURL(pageURL); err != nil {
		return nil, err
	}
	if found, ok := s.discovered.Get(pageURL); ok {
		return found, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %s", ErrFetch, pageURL, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %s", ErrFetch, pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w %s: unexpected status code: %d", ErrFetch, pageURL, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDiscoverBody))
	if err != nil {
		return nil, fmt.Errorf("%w %s: %s", ErrFetch, pageURL, err)
	}

	var found []string
	if _, err := gofeed.NewParser().Parse(bytes.NewReader(body)); err == nil {
		found = []string{pageURL}
	} else {
		found, err = alternateLinks(body, pageURL)
		if err != nil {
			return nil, err
		}
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: no feeds found at %s", cardfeed.ErrNotFound, pageURL)
	}

	s.discovered.Add(pageURL, found)
	return found, nil
}

// Pulls the feed urls out of <link rel="alternate"> tags, resolved against the page.
func alternateLinks(page []byte, pageURL string) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", cardfeed.ErrValidation, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("%w %s: error parsing page: %s", ErrFetch, pageURL, err)
	}

	found := []string{}
	seen := map[string]bool{}
	doc.Find(`link[rel~="alternate"][href]`).Each(func(_ int, sel *goquery.Selection) {
		typ := strings.ToLower(strings.TrimSpace(sel.AttrOr("type", "")))
		if !feedTypes[typ] {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(sel.AttrOr("href", "")))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref).String()
		if seen[abs] {
			return
		}
		seen[abs] = true
		found = append(found, abs)
	})

	return found, nil
}
