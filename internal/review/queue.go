package review

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/jdholdren/cardfeed/internal/cardfeed"
	"github.com/jdholdren/cardfeed/internal/fanout"
)

// MaxQueueItems caps the feed items mixed into one review queue.
const MaxQueueItems = 2

type QueueKind string

const (
	KindCard QueueKind = "card"
	KindItem QueueKind = "rss_item"
)

// QueueItem is one step of a review: either a card or a feed item.
type QueueItem struct {
	Kind QueueKind         `json:"kind"`
	Card *cardfeed.Card    `json:"card,omitempty"`
	Item *cardfeed.RSSItem `json:"item,omitempty"`
}

// BuildQueue assembles a review session: the due cards in the order the strategy
// wants them, randomly interleaved with a few unread items from subscriptions
// shuffled into review.
func (s *Service) BuildQueue(ctx context.Context, userID string, now time.Time) ([]QueueItem, error) {
	due, err := s.dueCards(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	cards := []QueueItem{}
	for _, d := range s.strategy.ReviewOrder(due, now) {
		card := d.Card
		cards = append(cards, QueueItem{Kind: KindCard, Card: &card})
	}

	items, err := s.queueItems(ctx, userID)
	if err != nil {
		return nil, err
	}

	return RandomInterleaveTwo(s.newRand(), cards, items), nil
}

func (s *Service) queueItems(ctx context.Context, userID string) ([]QueueItem, error) {
	subs, err := s.repo.UserSubscriptions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading subscriptions: %w", err)
	}
	subs = slices.DeleteFunc(subs, func(sub cardfeed.Subscription) bool {
		return !sub.Config.ShuffleIntoReview
	})

	perFeed, err := fanout.Map(ctx, fanout.DefaultLimit, subs, func(ctx context.Context, sub cardfeed.Subscription) ([]QueueItem, error) {
		s.refresh(ctx, sub.FeedID)

		unread, err := s.repo.UnreadItems(ctx, userID, sub.FeedID)
		if err != nil {
			return nil, fmt.Errorf("error loading unread items of feed %s: %w", sub.FeedID, err)
		}
		if sub.Config.Order == cardfeed.OrderOldest {
			slices.Reverse(unread)
		}

		items := make([]QueueItem, 0, len(unread))
		for _, item := range unread {
			items = append(items, QueueItem{Kind: KindItem, Item: &item})
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}

	items := RandomInterleave(s.newRand(), perFeed...)
	if len(items) > MaxQueueItems {
		items = items[:MaxQueueItems]
	}
	return items, nil
}

// Best effort: a feed that can't be refreshed is still read from what's stored.
func (s *Service) refresh(ctx context.Context, feedID string) {
	if s.refresher == nil {
		return
	}

	feed, err := s.repo.Feed(ctx, feedID)
	if err != nil {
		slog.WarnContext(ctx, "failed to load feed for refresh", "feed_id", feedID, "error", err)
		return
	}
	if _, err := s.refresher.MaybeRefreshFeed(ctx, feed); err != nil {
		slog.WarnContext(ctx, "failed to refresh feed", "feed_id", feedID, "error", err)
	}
}
