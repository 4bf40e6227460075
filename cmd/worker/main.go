// The worker binary runs the temporal workflows that keep feeds synced.
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
	_ "golang.org/x/crypto/x509roots/fallback"

	"github.com/jdholdren/cardfeed/internal/feedsync"
	"github.com/jdholdren/cardfeed/internal/logger"
	"github.com/jdholdren/cardfeed/internal/migrations"
	"github.com/jdholdren/cardfeed/internal/sqlite"
	"github.com/jdholdren/cardfeed/internal/worker"
)

type config struct {
	Database         string `env:"DATABASE, required"`
	TemporalHostPort string `env:"TEMPORAL_HOST_PORT, required"`

	LoggerFormat string        `env:"LOGGER_FORMAT, default=text"`
	LogLevel     slog.Level    `env:"LOG_LEVEL, default=info"`
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT, default=10s"`
}

func main() {
	ctx := context.Background()

	// Parse the config
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("error parsing config: %s", err)
	}

	slog.SetDefault(logger.New(os.Stdout, cfg.LoggerFormat, cfg.LogLevel))

	if err := runWorker(ctx, cfg); err != nil {
		slog.Error("error running", "error", err)
		os.Exit(1)
	}
}

func runWorker(ctx context.Context, cfg config) error {
	// Connect to the sqlite db
	dbx, err := sqlx.Open("sqlite", fmt.Sprintf("%s?_txlock=immediate&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.Database))
	if err != nil {
		return fmt.Errorf("error opening database: %s", err)
	}
	defer dbx.Close()

	if err := migrations.Run(dbx); err != nil {
		return fmt.Errorf("error running migrations: %s", err)
	}

	// Retry until temporal is ready
	var c client.Client
	if err := retry.Fibonacci(ctx, 1*time.Second, func(ctx context.Context) error {
		var err error
		c, err = client.Dial(client.Options{
			HostPort:  cfg.TemporalHostPort,
			Namespace: worker.Namespace,
			Logger:    slog.Default(),
		})
		if err != nil {
			return retry.RetryableError(err)
		}

		return nil
	}); err != nil {
		return fmt.Errorf("unable to create temporal client: %s", err)
	}
	defer c.Close()

	if err := worker.EnsureNamespace(ctx, c.WorkflowService(), worker.Namespace); err != nil {
		return err
	}

	var (
		repo    = sqlite.New(dbx)
		httpCli = &http.Client{Timeout: cfg.FetchTimeout}
		syncer  = feedsync.New(repo, feedsync.NewHTTPFetcher(httpCli), httpCli)
	)
	w, err := worker.NewWorker(ctx, repo, syncer, c)
	if err != nil {
		return err
	}

	var g run.Group
	stop := make(chan any)
	g.Add(func() error {
		slog.Info("starting worker", "task_queue", worker.TaskQueue)
		return w.Run(stop)
	}, func(error) {
		close(stop)
	})
	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))

	var sigErr run.SignalError
	if err := g.Run(); err != nil && !errors.As(err, &sigErr) {
		return err
	}

	return nil
}
