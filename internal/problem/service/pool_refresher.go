package service

import (
	"context"
	"fmt"
	"time"

	"codebattle/pkg/utils/logger"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// PoolRefresher periodically scrapes problems into the persisted pool.
type PoolRefresher struct {
	svc       *ProblemService
	scheduler gocron.Scheduler
	interval  time.Duration
	batch     int
}

func NewPoolRefresher(svc *ProblemService, interval time.Duration, batch int) (*PoolRefresher, error) {
	if svc == nil {
		return nil, fmt.Errorf("problem service is required")
	}
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	if batch <= 0 {
		batch = 3
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler failed: %w", err)
	}
	return &PoolRefresher{svc: svc, scheduler: sched, interval: interval, batch: batch}, nil
}

// Start registers the refresh job, runs it once immediately, and starts the scheduler.
func (r *PoolRefresher) Start(ctx context.Context) error {
	_, err := r.scheduler.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(func() { r.runOnce(ctx) }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("register refresh job failed: %w", err)
	}
	r.scheduler.Start()
	logger.Info(ctx, "problem pool refresher started", zap.Duration("interval", r.interval), zap.Int("batch", r.batch))
	return nil
}

func (r *PoolRefresher) runOnce(ctx context.Context) {
	stored, err := r.svc.Refresh(ctx, r.batch)
	if err != nil {
		logger.Warn(ctx, "problem pool refresh failed", zap.Error(err))
		return
	}
	logger.Info(ctx, "problem pool refreshed", zap.Int("stored", stored))
}

// Stop shuts the scheduler down, waiting for a running refresh.
func (r *PoolRefresher) Stop() error {
	return r.scheduler.Shutdown()
}
