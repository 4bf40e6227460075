package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/jdholdren/cardfeed/internal/cardfeed"
	"github.com/jdholdren/cardfeed/internal/fanout"
)

// UnreadItems lists the feed's items the user hasn't read, newest first.
// Subscriptions that block direct access can only be read through a review queue.
func (s *Service) UnreadItems(ctx context.Context, userID, feedID string) ([]cardfeed.RSSItem, error) {
	sub, err := s.subscription(ctx, userID, feedID)
	if err != nil && !errors.Is(err, cardfeed.ErrNotFound) {
		return nil, err
	}
	if err == nil && sub.Config.BlockDirectAccess {
		return nil, fmt.Errorf("%w: feed %s is only shown during review", cardfeed.ErrAccessDenied, feedID)
	}

	items, err := s.repo.UnreadItems(ctx, userID, feedID)
	if err != nil {
		return nil, fmt.Errorf("error loading unread items: %w", err)
	}
	return items, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID, feedID string) (int, error) {
	count, err := s.repo.UnreadCount(ctx, userID, feedID)
	if err != nil {
		return 0, fmt.Errorf("error counting unread items: %w", err)
	}
	return count, nil
}

type FeedUnread struct {
	Subscription cardfeed.Subscription `json:"subscription"`
	Unread       int                   `json:"unread"`
}

// UnreadCounts counts unread items for each of the user's subscriptions.
func (s *Service) UnreadCounts(ctx context.Context, userID string) ([]FeedUnread, error) {
	subs, err := s.repo.UserSubscriptions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading subscriptions: %w", err)
	}

	return fanout.Map(ctx, fanout.DefaultLimit, subs, func(ctx context.Context, sub cardfeed.Subscription) (FeedUnread, error) {
		count, err := s.UnreadCount(ctx, userID, sub.FeedID)
		if err != nil {
			return FeedUnread{}, err
		}
		return FeedUnread{Subscription: sub, Unread: count}, nil
	})
}

// MarkRead marks the items read for the user. Items already read stay read.
func (s *Service) MarkRead(ctx context.Context, userID string, itemIDs ...string) error {
	if err := s.repo.MarkRead(ctx, userID, itemIDs...); err != nil {
		return fmt.Errorf("error marking items read: %w", err)
	}
	return nil
}

func (s *Service) subscription(ctx context.Context, userID, feedID string) (cardfeed.Subscription, error) {
	subs, err := s.repo.UserSubscriptions(ctx, userID)
	if err != nil {
		return cardfeed.Subscription{}, fmt.Errorf("error loading subscriptions: %w", err)
	}
	for _, sub := range subs {
		if sub.FeedID == feedID {
			return sub, nil
		}
	}
	return cardfeed.Subscription{}, cardfeed.ErrNotFound
}
