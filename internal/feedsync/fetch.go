package feedsync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

// ErrFetch is returned when a remote document can't be retrieved or isn't a feed.
var ErrFetch = errors.New("error fetching feed")

const DefaultFetchTimeout = 10 * time.Second

// Fetcher retrieves and parses a remote RSS, Atom or JSON feed.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*gofeed.Feed, error)
}

// HTTPFetcher fetches feeds over HTTP with gofeed.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(client *http.Client) HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: DefaultFetchTimeout}
	}
	return HTTPFetcher{client: client}
}

func (f HTTPFetcher) Fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	// gofeed's parsers keep state while parsing, so one per call
	parser := gofeed.NewParser()
	parser.Client = f.client

	feed, err := parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %s", ErrFetch, url, err)
	}

	return feed, nil
}
