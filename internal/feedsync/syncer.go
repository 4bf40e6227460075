// Package feedsync pulls remote feeds into storage.
//
// A refresh fetches the feed, keeps only entries whose remote id hasn't been
// stored yet, and inserts them. Concurrent refreshes of one feed are expected;
// the storage layer drops the duplicate inserts.
package feedsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jdholdren/cardfeed/internal/cardfeed"
	"github.com/jdholdren/cardfeed/internal/fanout"
	"github.com/jdholdren/cardfeed/internal/logger"
)

// RefreshInterval is how long a synced feed is considered fresh.
const RefreshInterval = 58 * time.Minute

type Repository interface {
	cardfeed.FeedRepo
	cardfeed.SubscriptionRepo
}

type Syncer struct {
	repo       Repository
	fetcher    Fetcher
	client     *http.Client
	discovered *lru.Cache[string, []string]
	now        func() time.Time
}

// New creates a syncer. The client is used for page discovery; feeds themselves
// go through the fetcher.
func New(repo Repository, fetcher Fetcher, client *http.Client) *Syncer {
	if client == nil {
		client = &http.Client{Timeout: DefaultFetchTimeout}
	}
	cache, _ := lru.New[string, []string](512)

	return &Syncer{
		repo:       repo,
		fetcher:    fetcher,
		client:     client,
		discovered: cache,
		now:        time.Now,
	}
}

// RefreshFeed syncs the feed with its remote document and returns how many new
// items were stored. The feed's last sync time only moves on success.
func (s *Syncer) RefreshFeed(ctx context.Context, feed cardfeed.Feed) (int, error) {
	ctx = logger.Ctx(ctx, slog.String("feed_id", feed.ID))

	remote, err := s.fetcher.Fetch(ctx, feed.RSSURL)
	if err != nil {
		return 0, err
	}
	now := s.now().UTC()

	if title := stripTags(remote.Title); title != "" && title != feed.Title {
		if err := s.repo.UpdateFeed(ctx, feed.ID, cardfeed.UpdateFeedArgs{Title: title}); err != nil {
			slog.ErrorContext(ctx, "failed to update feed title", "error", err)
		}
	}

	existing, err := s.repo.FeedItems(ctx, feed.ID)
	if err != nil {
		return 0, fmt.Errorf("error loading existing items: %w", err)
	}
	seen := make(map[string]struct{}, len(existing))
	for _, item := range existing {
		seen[item.RemoteID] = struct{}{}
	}

	fresh := []cardfeed.RSSItem{}
	for _, entry := range remote.Items {
		if entry == nil {
			continue
		}
		item := Translate(feed.ID, entry, now)
		if _, ok := seen[item.RemoteID]; ok {
			continue
		}
		seen[item.RemoteID] = struct{}{}
		fresh = append(fresh, item)
	}

	inserted, err := s.repo.InsertItems(ctx, fresh)
	if err != nil {
		return 0, fmt.Errorf("error inserting items: %w", err)
	}
	if err := s.repo.UpdateFeed(ctx, feed.ID, cardfeed.UpdateFeedArgs{LastSynced: now}); err != nil {
		return inserted, fmt.Errorf("error updating last sync: %w", err)
	}

	slog.InfoContext(ctx, "synced feed", "inserted", inserted, "remote_items", len(remote.Items))
	return inserted, nil
}

// MaybeRefreshFeed refreshes the feed only when it has gone stale.
func (s *Syncer) MaybeRefreshFeed(ctx context.Context, feed cardfeed.Feed) (bool, error) {
	if !feed.IsStale(s.now(), RefreshInterval) {
		return false, nil
	}

	if _, err := s.RefreshFeed(ctx, feed); err != nil {
		return true, err
	}
	return true, nil
}

// PolledFeed is a feed read without storing anything.
type PolledFeed struct {
	Title string             `json:"title"`
	Items []cardfeed.RSSItem `json:"items"`
}

// PollFeed fetches and translates a feed without persisting it.
func (s *Syncer) PollFeed(ctx context.Context, feedURL string) (PolledFeed, error) {
	if err := validateURL(feedURL); err != nil {
		return PolledFeed{}, err
	}

	remote, err := s.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return PolledFeed{}, err
	}

	now := s.now().UTC()
	polled := PolledFeed{
		Title: stripTags(remote.Title),
		Items: make([]cardfeed.RSSItem, 0, len(remote.Items)),
	}
	for _, entry := range remote.Items {
		if entry == nil {
			continue
		}
		polled.Items = append(polled.Items, Translate("", entry, now))
	}

	return polled, nil
}

// RefreshSubscribed refreshes every stale feed that someone is subscribed to.
// One feed failing doesn't stop the others; all failures are returned joined.
func (s *Syncer) RefreshSubscribed(ctx context.Context) error {
	feeds, err := s.repo.SubscribedFeeds(ctx)
	if err != nil {
		return fmt.Errorf("error listing subscribed feeds: %w", err)
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	err = fanout.Each(ctx, fanout.DefaultLimit, feeds, func(ctx context.Context, feed cardfeed.Feed) error {
		if _, err := s.MaybeRefreshFeed(ctx, feed); err != nil {
			slog.ErrorContext(ctx, "failed to sync feed", "feed_id", feed.ID, "error", err)

			mu.Lock()
			errs = append(errs, fmt.Errorf("feed %s: %w", feed.ID, err))
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return err
	}

	return errors.Join(errs...)
}

// EnsureFeed returns the stored feed for the url, creating it when needed.
func (s *Syncer) EnsureFeed(ctx context.Context, feedURL string) (cardfeed.Feed, error) {
	if err := validateURL(feedURL); err != nil {
		return cardfeed.Feed{}, err
	}

	feed, err := s.repo.FeedByURL(ctx, feedURL)
	if err == nil {
		return feed, nil
	}
	if !errors.Is(err, cardfeed.ErrNotFound) {
		return cardfeed.Feed{}, fmt.Errorf("error looking up feed: %w", err)
	}

	feed, err = s.repo.InsertFeed(ctx, feedURL)
	if errors.Is(err, cardfeed.ErrConflict) {
		// Someone else created it in the meantime
		return s.repo.FeedByURL(ctx, feedURL)
	}
	if err != nil {
		return cardfeed.Feed{}, fmt.Errorf("error creating feed: %w", err)
	}

	return feed, nil
}

// Subscribe subscribes the user to the feed at feedURL. A feed seen for the
// first time is synced before the subscription is stored so a bad url is
// reported as a fetch error.
func (s *Syncer) Subscribe(ctx context.Context, userID, feedURL string, cfg cardfeed.SubscriptionConfig) (cardfeed.Subscription, error) {
	feed, err := s.EnsureFeed(ctx, feedURL)
	if err != nil {
		return cardfeed.Subscription{}, err
	}

	if feed.LastSync == nil {
		if _, err := s.RefreshFeed(ctx, feed); err != nil {
			return cardfeed.Subscription{}, err
		}
	}

	sub, err := s.repo.InsertSubscription(ctx, cardfeed.Subscription{
		FeedID: feed.ID,
		UserID: userID,
		Config: cfg,
	})
	if err != nil {
		return cardfeed.Subscription{}, fmt.Errorf("error inserting subscription: %w", err)
	}

	return sub, nil
}

func validateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q is not an http(s) url", cardfeed.ErrValidation, raw)
	}
	return nil
}
