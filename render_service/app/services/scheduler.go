package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"
)

// BatchScheduler sweeps an input directory on a cron schedule. A tick that
// fires while the previous sweep is still running is skipped.
type BatchScheduler struct {
	processor *RenderProcessor
	inputDir  string
	cron      *cron.Cron
	running   atomic.Bool
}

func NewBatchScheduler(p *RenderProcessor, inputDir string) *BatchScheduler {
	return &BatchScheduler{processor: p, inputDir: inputDir, cron: cron.New()}
}

// Start registers the sweep and starts the scheduler.
func (s *BatchScheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, func() { s.Sweep(context.Background()) }); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.cron.Start()
	s.processor.log.Infow("batch cron started", "schedule", schedule, "dir", s.inputDir)
	return nil
}

// Sweep runs one batch pass unless one is already in progress. It reports
// whether a pass ran.
func (s *BatchScheduler) Sweep(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.processor.log.Infow("cron skipped: previous sweep still running", "dir", s.inputDir)
		return false
	}
	defer s.running.Store(false)

	if err := s.processor.ProcessFromDirectory(ctx, s.inputDir); err != nil {
		s.processor.log.Errorw("cron sweep failed", "error", err)
	}
	return true
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *BatchScheduler) Stop() {
	<-s.cron.Stop().Done()
}
