package usecase

import (
	"context"

	"SubmissionTagger/internal/ports"
)

// Scheduler wires the interval driver with a batch run callback. Each tick
// gets a fresh run because the extract feed is consumed per batch.
type Scheduler struct {
	driver ports.Scheduler
	run    func(context.Context)
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, run func(context.Context)) *Scheduler {
	return &Scheduler{driver: driver, run: run}
}

// Start registers the batch with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.run == nil {
		return nil
	}

	job := func() {
		s.run(ctx)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
