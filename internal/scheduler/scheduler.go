// Package scheduler triggers orchestrated scrape runs on a fixed
// interval. One recurring job per Scheduler; starting again replaces
// the existing schedule, stopping cancels future runs only and lets an
// in-flight run finish.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"
)

// RunFunc is the orchestrated run the scheduler fires every interval.
type RunFunc func(ctx context.Context)

type Scheduler struct {
	run RunFunc

	mu      sync.Mutex
	cron    *cron.Cron
	entry   cron.EntryID
	started bool
}

func New(run RunFunc) *Scheduler {
	return &Scheduler{
		run:  run,
		cron: cron.New(),
	}
}

// Start registers the recurring run at @every <intervalHours>h and
// activates the timer. Calling Start while a schedule is active
// replaces it.
func (s *Scheduler) Start(ctx context.Context, intervalHours int) error {
	if intervalHours < 1 {
		return fmt.Errorf("interval must be >= 1 hour, got %d", intervalHours)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.cron.Remove(s.entry)
		log.Printf("[scheduler] replacing existing schedule")
	}

	spec := fmt.Sprintf("@every %dh", intervalHours)
	entry, err := s.cron.AddFunc(spec, func() {
		s.run(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	s.entry = entry

	if !s.started {
		s.cron.Start()
		s.started = true
	}
	log.Printf("[scheduler] started, spec %s", spec)
	return nil
}

// Stop deactivates the schedule. Safe to call repeatedly or when never
// started; an in-flight run is not interrupted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.cron.Remove(s.entry)
	s.cron.Stop()
	s.started = false
	log.Printf("[scheduler] stopped")
}
