// The api binary serves reviews and feed reading over HTTP. With RUN_JOBS set it
// also runs the scheduled jobs in-process.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/oklog/run"
	"github.com/sethvargo/go-envconfig"
	"github.com/sethvargo/go-retry"
	"go.temporal.io/sdk/client"

	"github.com/jdholdren/cardfeed/internal/api"
	"github.com/jdholdren/cardfeed/internal/feedsync"
	"github.com/jdholdren/cardfeed/internal/jobs"
	"github.com/jdholdren/cardfeed/internal/logger"
	"github.com/jdholdren/cardfeed/internal/migrations"
	"github.com/jdholdren/cardfeed/internal/review"
	"github.com/jdholdren/cardfeed/internal/schedule"
	"github.com/jdholdren/cardfeed/internal/sqlite"
)

type config struct {
	Database string `env:"DATABASE, required"`
	Port     int    `env:"PORT, default=4444"`

	// Which format to use for logging: either text or json
	LoggerFormat string     `env:"LOGGER_FORMAT, default=text"`
	LogLevel     slog.Level `env:"LOG_LEVEL, default=info"`

	CorsOrigin   string        `env:"CORS_ORIGIN, default=http://localhost:3000"`
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT, default=10s"`
	Strategy     string        `env:"SCHEDULE_STRATEGY"`

	// Subscriptions go through temporal when this is set
	TemporalHostPort string `env:"TEMPORAL_HOST_PORT"`
	RunJobs          bool   `env:"RUN_JOBS, default=false"`
}

func main() {
	ctx := context.Background()

	// Parse the config
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("error parsing config: %s", err)
	}

	slog.SetDefault(logger.New(os.Stderr, cfg.LoggerFormat, cfg.LogLevel))

	if err := runAPI(ctx, cfg); err != nil {
		slog.Error("error running", "error", err)
		os.Exit(1)
	}
}

func runAPI(ctx context.Context, cfg config) error {
	// Connect to the sqlite db
	dbx, err := sqlx.Open("sqlite", fmt.Sprintf("%s?_txlock=immediate&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.Database))
	if err != nil {
		return fmt.Errorf("error opening database: %s", err)
	}
	defer dbx.Close()

	// Migrate, always
	if err := migrations.Run(dbx); err != nil {
		return fmt.Errorf("error running migrations: %s", err)
	}

	strategy, err := schedule.Lookup(cfg.Strategy)
	if err != nil {
		return fmt.Errorf("error picking schedule strategy: %s", err)
	}

	var (
		repo    = sqlite.New(dbx)
		httpCli = &http.Client{Timeout: cfg.FetchTimeout}
		syncer  = feedsync.New(repo, feedsync.NewHTTPFetcher(httpCli), httpCli)
		reviews = review.NewService(repo, strategy, syncer)
	)

	var temporalCli client.Client
	if cfg.TemporalHostPort != "" {
		temporalCli, err = dialTemporal(ctx, cfg.TemporalHostPort)
		if err != nil {
			return err
		}
		defer temporalCli.Close()
	}

	srvr := api.NewServer(api.ServerConfig{
		Port:       cfg.Port,
		CorsHeader: cfg.CorsOrigin,
	}, repo, reviews, syncer, temporalCli)

	var g run.Group
	g.Add(func() error {
		slog.Info("listening", "port", cfg.Port)
		if err := srvr.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error listening: %s", err)
		}
		return nil
	}, func(error) {
		downCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srvr.Shutdown(downCtx); err != nil {
			slog.Error("error shutting down server", "error", err)
		}
	})

	if cfg.RunJobs {
		scheduler, err := jobs.New(repo, jobs.DefaultJobs(syncer))
		if err != nil {
			return fmt.Errorf("error creating job scheduler: %s", err)
		}

		jobsCtx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			return scheduler.Run(jobsCtx)
		}, func(error) {
			cancel()
		})
	}

	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))

	var sigErr run.SignalError
	if err := g.Run(); err != nil && !errors.As(err, &sigErr) {
		return err
	}

	return nil
}

// Retry until temporal is ready
func dialTemporal(ctx context.Context, hostPort string) (client.Client, error) {
	var c client.Client
	if err := retry.Fibonacci(ctx, 1*time.Second, func(ctx context.Context) error {
		var err error
		c, err = client.Dial(client.Options{
			HostPort: hostPort,
			Logger:   slog.Default(),
		})
		if err != nil {
			return retry.RetryableError(err)
		}

		return nil
	}); err != nil {
		return nil, fmt.Errorf("unable to create temporal client: %s", err)
	}

	return c, nil
}
