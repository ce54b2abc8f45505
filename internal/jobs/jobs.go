// Package jobs runs periodic maintenance for the server.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// TokenPurger deletes refresh tokens past their expiry.
type TokenPurger interface {
	PurgeExpiredRefreshTokens(ctx context.Context) (int64, error)
}

// Runner owns the background scheduler.
type Runner struct {
	scheduler gocron.Scheduler
	purger    TokenPurger
	logger    *slog.Logger
	timeout   time.Duration
}

// New registers the maintenance jobs without starting them.
func New(purger TokenPurger, interval time.Duration, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	r := &Runner{scheduler: scheduler, purger: purger, logger: logger, timeout: 30 * time.Second}
	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(r.PurgeTokens),
		gocron.WithName("purge-expired-refresh-tokens"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, fmt.Errorf("schedule token purge: %w", err)
	}
	return r, nil
}

func (r *Runner) Start() {
	r.scheduler.Start()
}

// Shutdown stops the scheduler and waits for running jobs.
func (r *Runner) Shutdown() error {
	return r.scheduler.Shutdown()
}

// PurgeTokens runs one purge pass.
func (r *Runner) PurgeTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	n, err := r.purger.PurgeExpiredRefreshTokens(ctx)
	if err != nil {
		r.logger.Error("purge refresh tokens failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		r.logger.Info("purged expired refresh tokens", slog.Int64("count", n))
	}
}
