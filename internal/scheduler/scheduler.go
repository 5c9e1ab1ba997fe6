// Package scheduler refreshes the course listing cache on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const defaultRunTimeout = 30 * time.Second

// Warmer is the interface that wraps the catalog cache warm-up
type Warmer interface {
	// Method Warm refetches the cached course listings.
	Warm(ctx context.Context) error
}

// Scheduler runs the warm-up once on start and then at every time the cron
// schedule names
type Scheduler struct {
	warmer     Warmer
	schedule   cron.Schedule
	logger     *zap.Logger
	runTimeout time.Duration
	now        func() time.Time
	stopChan   chan struct{}
	wg         sync.WaitGroup
	stopOnce   sync.Once
}

// NewScheduler creates a new scheduler from a standard cron expression or a
// descriptor such as "@every 10m"
func NewScheduler(expr string, warmer Warmer, logger *zap.Logger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	return &Scheduler{
		warmer:     warmer,
		schedule:   schedule,
		logger:     logger,
		runTimeout: defaultRunTimeout,
		now:        time.Now,
		stopChan:   make(chan struct{}),
	}, nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.logger.Info("Catalog warm-up scheduler started")
	s.wg.Add(1)
	go s.run()
}

// Stop stops the scheduler and waits for a running warm-up to finish
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
	s.logger.Info("Catalog warm-up scheduler stopped")
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.warm()

	for {
		now := s.now()
		timer := time.NewTimer(s.schedule.Next(now).Sub(now))
		select {
		case <-timer.C:
			s.warm()
		case <-s.stopChan:
			timer.Stop()
			return
		}
	}
}

func (s *Scheduler) warm() {
	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	start := s.now()
	if err := s.warmer.Warm(ctx); err != nil {
		s.logger.Error("Failed to warm course cache", zap.Error(err))
		return
	}
	s.logger.Debug("Course cache warmed", zap.Duration("duration", s.now().Sub(start)))
}
