package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/jdholdren/cardfeed/internal/cardfeed"
	cferrs "github.com/jdholdren/cardfeed/internal/errors"
	"github.com/jdholdren/cardfeed/internal/feedsync"
)

type activities struct {
	repo   feedsync.Repository
	syncer *feedsync.Syncer
}

// Instance to make the workflow a bit more readable
var acts = activities{}

// Feeds with at least one active subscriber.
func (a activities) SubscribedFeeds(ctx context.Context) ([]cardfeed.Feed, error) {
	feeds, err := a.repo.SubscribedFeeds(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing subscribed feeds: %w", err)
	}

	return feeds, nil
}

// Refreshes the feed if it has gone stale. Reports whether it was refreshed.
func (a activities) MaybeRefreshFeed(ctx context.Context, feedID string) (bool, error) {
	feed, err := a.repo.Feed(ctx, feedID)
	if err != nil {
		return false, asApplicationError(err)
	}

	refreshed, err := a.syncer.MaybeRefreshFeed(ctx, feed)
	if err != nil {
		return refreshed, asApplicationError(err)
	}

	return refreshed, nil
}

// Syncs the feed now regardless of when it was last synced.
func (a activities) RefreshFeed(ctx context.Context, feedID string) (int, error) {
	feed, err := a.repo.Feed(ctx, feedID)
	if err != nil {
		return 0, asApplicationError(err)
	}

	inserted, err := a.syncer.RefreshFeed(ctx, feed)
	if err != nil {
		return 0, asApplicationError(err)
	}
	activity.GetLogger(ctx).Info("refreshed feed", "feed_id", feedID, "inserted", inserted)

	return inserted, nil
}

func (a activities) EnsureFeed(ctx context.Context, feedURL string) (cardfeed.Feed, error) {
	feed, err := a.syncer.EnsureFeed(ctx, feedURL)
	if err != nil {
		return cardfeed.Feed{}, asApplicationError(err)
	}

	return feed, nil
}

func (a activities) InsertSubscription(ctx context.Context, sub cardfeed.Subscription) (cardfeed.Subscription, error) {
	sub, err := a.repo.InsertSubscription(ctx, sub)
	if err != nil {
		return cardfeed.Subscription{}, fmt.Errorf("error inserting subscription: %w", err)
	}

	return sub, nil
}

// Wraps errors a retry can't fix so the workflow gives up on them, carrying
// the API error along as details.
func asApplicationError(err error) error {
	apiErr := cferrs.FromDomain(err)
	switch {
	case errors.Is(err, feedsync.ErrFetch):
		// The remote might come back
		return temporal.NewApplicationError("error syncing feed", errTypeFetch, apiErr)
	case apiErr.Status >= http.StatusBadRequest && apiErr.Status < http.StatusInternalServerError:
		return temporal.NewNonRetryableApplicationError(err.Error(), errTypeClient, err, apiErr)
	default:
		return err
	}
}
