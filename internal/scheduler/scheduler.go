// Package scheduler runs periodic sync passes.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/custodia-labs/docpipe/internal/core/domain"
	"github.com/custodia-labs/docpipe/internal/core/ports/driving"
	"github.com/custodia-labs/docpipe/internal/logger"
)

// DefaultInterval is how often a full sync pass runs when none is
// configured.
const DefaultInterval = 30 * time.Minute

// Scheduler triggers periodic sync passes through the orchestrator.
// Jobs run in singleton mode: a tick that fires while the previous pass
// is still running is dropped, not queued, and the orchestrator's
// per-source guard catches any overlap that slips through.
type Scheduler struct {
	scheduler    *gocron.Scheduler
	orchestrator driving.SyncOrchestrator
	interval     time.Duration
}

// Option configures the scheduler.
type Option func(*Scheduler)

// WithInterval sets the period between sync passes.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// New creates a scheduler over the orchestrator.
func New(orchestrator driving.SyncOrchestrator, opts ...Option) *Scheduler {
	gs := gocron.NewScheduler(time.UTC)
	gs.TagsUnique()

	s := &Scheduler{
		scheduler:    gs,
		orchestrator: orchestrator,
		interval:     DefaultInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start registers the periodic job and begins ticking in the background.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.scheduler.Every(s.interval).
		Tag("sync-all").
		SingletonMode().
		Do(func() {
			stats, err := s.orchestrator.SyncAll(ctx)
			if err != nil && !errors.Is(err, domain.ErrSyncInProgress) {
				logger.Error("scheduler: sync pass failed: %v", err)
				return
			}
			logger.Info("scheduler: pass done (added=%d deleted=%d skipped=%d errors=%d)",
				stats.Added, stats.Deleted, stats.Skipped, stats.Errors)
		})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop halts the ticking. A pass already in flight finishes on its own.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// Run starts the scheduler and blocks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return ctx.Err()
}
