package worker

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/jdholdren/cardfeed/internal/cardfeed"
	cferrs "github.com/jdholdren/cardfeed/internal/errors"
	"github.com/jdholdren/cardfeed/internal/fanout"
)

type workflows struct{}

var defaultRetry = &temporal.RetryPolicy{
	InitialInterval:    time.Second,
	BackoffCoefficient: 2.0,
	MaximumAttempts:    3, // 0 is unlimited retries
}

// SyncAllFeeds refreshes every subscribed feed that has gone stale, a bounded
// number at a time. A feed failing doesn't fail the run.
func (workflows) SyncAllFeeds(ctx workflow.Context) error {
	l := workflow.GetLogger(ctx)
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		// Covers the fetch timeout plus the writes
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         defaultRetry,
	})

	var feeds []cardfeed.Feed
	if err := workflow.ExecuteActivity(ctx, acts.SubscribedFeeds).Get(ctx, &feeds); err != nil {
		l.Error("failed to list subscribed feeds", "error", err)
		return err
	}

	var (
		wg    = workflow.NewWaitGroup(ctx)
		slots = workflow.NewBufferedChannel(ctx, fanout.DefaultLimit)
	)
	for _, feed := range feeds {
		slots.Send(ctx, struct{}{})
		wg.Add(1)
		workflow.Go(ctx, func(ctx workflow.Context) {
			defer wg.Done()
			defer slots.Receive(ctx, nil)

			if err := workflow.ExecuteActivity(ctx, acts.MaybeRefreshFeed, feed.ID).Get(ctx, nil); err != nil {
				l.Error("failed to sync feed", "feed_id", feed.ID, "error", err)
			}
		})
	}
	wg.Wait(ctx)

	l.Info("synced subscribed feeds", "count", len(feeds))
	return nil
}

type SubscribeArgs struct {
	UserID  string                      `json:"user_id"`
	FeedURL string                      `json:"feed_url"`
	Config  cardfeed.SubscriptionConfig `json:"config"`
}

// Subscribe makes sure the feed exists and has been synced at least once, then
// subscribes the user to it. A feed that can't be synced isn't subscribed to.
func (workflows) Subscribe(ctx workflow.Context, args SubscribeArgs) (cardfeed.Subscription, error) {
	l := workflow.GetLogger(ctx)
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         defaultRetry,
	})

	var feed cardfeed.Feed
	if err := workflow.ExecuteActivity(ctx, acts.EnsureFeed, args.FeedURL).Get(ctx, &feed); err != nil {
		l.Error("failed to create feed", "error", err)
		return cardfeed.Subscription{}, err
	}

	if feed.LastSync == nil {
		if err := workflow.ExecuteActivity(ctx, acts.RefreshFeed, feed.ID).Get(ctx, nil); err != nil {
			l.Error("failed to sync feed", "feed_id", feed.ID, "error", err)
			return cardfeed.Subscription{}, err
		}
	}

	var sub cardfeed.Subscription
	if err := workflow.ExecuteActivity(ctx, acts.InsertSubscription, cardfeed.Subscription{
		FeedID: feed.ID,
		UserID: args.UserID,
		Config: args.Config,
	}).Get(ctx, &sub); err != nil {
		l.Error("failed to insert subscription", "feed_id", feed.ID, "error", err)
		return cardfeed.Subscription{}, err
	}

	return sub, nil
}

// TriggerSubscribeWorkflow runs the Subscribe workflow and waits for it.
func TriggerSubscribeWorkflow(ctx context.Context, c client.Client, args SubscribeArgs) (cardfeed.Subscription, error) {
	options := client.StartWorkflowOptions{
		TaskQueue: TaskQueue,
	}
	we, err := c.ExecuteWorkflow(ctx, options, workflows{}.Subscribe, args)
	if err != nil {
		return cardfeed.Subscription{}, fmt.Errorf("unable to execute workflow: %s", err)
	}

	var sub cardfeed.Subscription
	err = we.Get(ctx, &sub)
	apiErr := &cferrs.Error{}
	if asAPIError(err, &apiErr) {
		return cardfeed.Subscription{}, apiErr
	}
	if err != nil {
		return cardfeed.Subscription{}, fmt.Errorf("error executing workflow: %s", err)
	}

	return sub, nil
}
