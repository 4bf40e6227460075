// Package jobs runs background work on cron schedules.
//
// Every instance of the app runs the same scheduler. Before a job runs, the
// tick is claimed in the database so only one instance does the work.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jdholdren/cardfeed/internal/cardfeed"
	"github.com/jdholdren/cardfeed/internal/logger"
)

type Job struct {
	Name string
	// Standard cron expression, or a descriptor like @hourly.
	Schedule string
	Run      func(ctx context.Context) error
}

// FeedRefresher is what the feed job drives.
type FeedRefresher interface {
	RefreshSubscribed(ctx context.Context) error
}

// DefaultJobs is the job table the api binary runs.
func DefaultJobs(feeds FeedRefresher) []Job {
	return []Job{
		{Name: "refresh_feeds", Schedule: "@hourly", Run: feeds.RefreshSubscribed},
	}
}

type Scheduler struct {
	repo cardfeed.JobRepo
	cron *cron.Cron
	jobs []Job
	now  func() time.Time
}

// New validates the table and prepares a scheduler for it. Nothing runs until Run.
func New(repo cardfeed.JobRepo, jobs []Job) (*Scheduler, error) {
	s := &Scheduler{
		repo: repo,
		cron: cron.New(cron.WithLocation(time.UTC), cron.WithLogger(cronLogger{})),
		jobs: jobs,
		now:  time.Now,
	}

	seen := map[string]bool{}
	for _, job := range jobs {
		if job.Name == "" || job.Run == nil {
			return nil, fmt.Errorf("%w: jobs need a name and a func", cardfeed.ErrValidation)
		}
		if seen[job.Name] {
			return nil, fmt.Errorf("%w: duplicate job %q", cardfeed.ErrValidation, job.Name)
		}
		seen[job.Name] = true

		sched, err := cron.ParseStandard(job.Schedule)
		if err != nil {
			return nil, fmt.Errorf("%w: bad schedule for %q: %s", cardfeed.ErrValidation, job.Name, err)
		}
		s.cron.Schedule(sched, s.cronJob(job, sched))
	}

	return s, nil
}

// Run starts the schedule and blocks until ctx is done, then waits for running
// jobs to wrap up.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	slog.InfoContext(ctx, "started job scheduler", "jobs", len(s.jobs))

	<-ctx.Done()
	<-s.cron.Stop().Done()
	slog.InfoContext(ctx, "stopped job scheduler")

	return nil
}

// RunJob runs one tick of the job unless another instance already claimed it.
// It reports whether the job ran here.
func (s *Scheduler) RunJob(ctx context.Context, job Job, at time.Time) (bool, error) {
	tick := at.UTC().Truncate(time.Minute).Unix()
	ctx = logger.Ctx(ctx, slog.String("job", job.Name), slog.Int64("tick", tick))

	run, err := s.repo.ClaimJobRun(ctx, job.Name, tick)
	if errors.Is(err, cardfeed.ErrConflict) {
		slog.DebugContext(ctx, "job tick already claimed")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error claiming job run: %w", err)
	}

	start := time.Now()
	runErr := runSafely(ctx, job)

	var msg string
	if runErr != nil {
		msg = runErr.Error()
		slog.ErrorContext(ctx, "job failed", "error", runErr, "duration", time.Since(start))
	} else {
		slog.InfoContext(ctx, "job finished", "duration", time.Since(start))
	}
	if err := s.repo.FinishJobRun(ctx, run.ID, msg); err != nil {
		slog.ErrorContext(ctx, "failed to record job run", "error", err)
	}

	return true, runErr
}

// How late a cron activation can fire and still be matched to its schedule.
const lateWindow = 5 * time.Minute

func (s *Scheduler) cronJob(job Job, sched cron.Schedule) cron.Job {
	return cron.FuncJob(func() {
		// Errors are recorded on the run; the schedule carries on regardless
		_, _ = s.RunJob(context.Background(), job, scheduledAt(sched, s.now()))
	})
}

// scheduledAt is the latest activation of sched at or before now, so instances
// that fire a little apart claim the same tick. Activations more than
// lateWindow behind fall back to now.
func scheduledAt(sched cron.Schedule, now time.Time) time.Time {
	at := sched.Next(now.Add(-lateWindow))
	if at.After(now) {
		return now
	}
	for next := sched.Next(at); !next.After(now); next = sched.Next(at) {
		at = next
	}
	return at
}

func runSafely(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
	}()

	return job.Run(ctx)
}

// Routes cron's own logging into slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
