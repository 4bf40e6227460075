// Package worker runs feed syncing on Temporal: an hourly schedule refreshing
// subscribed feeds, and a workflow for subscribing to a new feed.
package worker

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/jdholdren/cardfeed/internal/feedsync"
)

const TaskQueue = "shared"

// NewWorker sets up the worker with registration of workflows, activities, and schedules.
func NewWorker(ctx context.Context, repo feedsync.Repository, syncer *feedsync.Syncer, cli client.Client) (worker.Worker, error) {
	a := activities{
		repo:   repo,
		syncer: syncer,
	}

	w := worker.New(cli, TaskQueue, worker.Options{})

	if err := registerEverything(ctx, w, a, cli); err != nil {
		return nil, fmt.Errorf("error registering workflows and activities: %T, %v", err, err)
	}

	return w, nil
}

func registerEverything(ctx context.Context, w worker.Worker, a activities, cli client.Client) error {
	wfs := workflows{}
	w.RegisterWorkflow(wfs.SyncAllFeeds)
	w.RegisterWorkflow(wfs.Subscribe)

	w.RegisterActivity(&a)

	return ensureSchedule(ctx, cli, client.ScheduleOptions{
		ID: "sync_all",
		Spec: client.ScheduleSpec{
			Intervals: []client.ScheduleIntervalSpec{{Every: time.Hour}},
		},
		Action: &client.ScheduleWorkflowAction{
			ID:        "sync_all",
			Workflow:  wfs.SyncAllFeeds,
			TaskQueue: TaskQueue,
		},
		TriggerImmediately: true,
	})
}

// Creates the schedule, or brings an existing one in line with opts.
func ensureSchedule(ctx context.Context, cli client.Client, opts client.ScheduleOptions) error {
	handle := cli.ScheduleClient().GetHandle(ctx, opts.ID)
	if _, err := handle.Describe(ctx); err != nil {
		if _, err := cli.ScheduleClient().Create(ctx, opts); err != nil {
			return fmt.Errorf("error creating schedule %s: %w", opts.ID, err)
		}
		return nil
	}

	return handle.Update(ctx, client.ScheduleUpdateOptions{
		DoUpdate: func(input client.ScheduleUpdateInput) (*client.ScheduleUpdate, error) {
			schedule := input.Description.Schedule
			schedule.Spec = &opts.Spec
			return &client.ScheduleUpdate{
				Schedule: &schedule,
			}, nil
		},
	})
}
