package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rajasatyajit/QuakeAlert/config"
	apperrors "github.com/rajasatyajit/QuakeAlert/internal/errors"
	"github.com/rajasatyajit/QuakeAlert/internal/logger"
	"github.com/rajasatyajit/QuakeAlert/internal/models"
)

// Schedule triggers a source every Interval, first firing Offset after start.
type Schedule struct {
	Source   models.Source
	Interval time.Duration
	Offset   time.Duration
}

// SchedulesFromConfig returns the three feed schedules.
func SchedulesFromConfig(cfg config.ScheduleConfig) []Schedule {
	return []Schedule{
		{Source: models.SourceAFAD, Interval: cfg.AFADInterval, Offset: cfg.AFADOffset},
		{Source: models.SourceKandilli, Interval: cfg.KandilliInterval, Offset: cfg.KandilliOffset},
		{Source: models.SourceEMSC, Interval: cfg.EMSCInterval, Offset: cfg.EMSCOffset},
	}
}

// Run starts one poller per schedule and blocks until ctx is cancelled
func (p *Pipeline) Run(ctx context.Context, schedules []Schedule) error {
	for _, s := range schedules {
		if s.Interval <= 0 {
			return fmt.Errorf("schedule for %s: interval must be positive", s.Source)
		}
	}

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("pipeline already running")
	}
	p.running = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	logger.Info("Starting scheduler", "schedules", len(schedules))

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range schedules {
		s := s
		g.Go(func() error {
			return p.runSourcePoller(gctx, s)
		})
	}

	err := g.Wait()
	logger.Info("Scheduler stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runSourcePoller fires cycles for one source until ctx is done
func (p *Pipeline) runSourcePoller(ctx context.Context, s Schedule) error {
	logger.Info("Starting source poller", "source", s.Source, "interval", s.Interval, "offset", s.Offset)

	if s.Offset > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.clock.After(s.Offset):
		}
	}

	ticker := p.clock.NewTicker(s.Interval)
	defer ticker.Stop()

	p.trigger(ctx, s.Source)
	for {
		select {
		case <-ctx.Done():
			logger.Info("Source poller stopping", "source", s.Source)
			return ctx.Err()
		case <-ticker.Chan():
			p.trigger(ctx, s.Source)
		}
	}
}

// trigger runs a cycle in the background so a slow cycle never delays the
// ticker. Overlap is resolved by the in-flight guard.
func (p *Pipeline) trigger(ctx context.Context, src models.Source) {
	go func() {
		result, err := p.RunCycle(ctx, string(src))
		switch {
		case errors.Is(err, apperrors.ErrCycleInFlight):
			logger.Info("Scheduled cycle skipped", "source", src, "reason", "previous cycle still running")
		case err != nil:
			logger.Error("Scheduled cycle failed", "source", src, "message", result.Message, "error", err)
		default:
			logger.Info("Scheduled cycle completed", "source", src, "message", result.Message)
		}
	}()
}
