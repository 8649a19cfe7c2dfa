package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// JobProvider builds the batch of jobs for one scheduled run.
type JobProvider func(context.Context) ([]Job, error)

// ScheduleTime is a time of day, in the server's local zone.
type ScheduleTime struct {
	Hour   int
	Minute int
}

// ParseScheduleTime parses an HH:MM time of day.
func ParseScheduleTime(s string) (ScheduleTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return ScheduleTime{}, fmt.Errorf("invalid schedule time %q (expected HH:MM): %w", s, err)
	}
	return ScheduleTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// Scheduler feeds a batch of jobs to a worker pool at fixed times of day.
type Scheduler struct {
	pool         *WorkerPool
	times        []ScheduleTime
	jobs         JobProvider
	runOnStartup bool
	log          *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	lastRun string
}

// NewScheduler parses times and returns a scheduler that runs jobs on pool.
func NewScheduler(times []string, pool *WorkerPool, jobs JobProvider, runOnStartup bool, log *zap.Logger) (*Scheduler, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("at least one schedule time is required")
	}
	parsed := make([]ScheduleTime, 0, len(times))
	for _, s := range times {
		st, err := ParseScheduleTime(s)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, st)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		pool:         pool,
		times:        parsed,
		jobs:         jobs,
		runOnStartup: runOnStartup,
		log:          log,
		ctx:          ctx,
		cancel:       cancel,
	}, nil
}

// Start launches the worker pool and the once-a-minute clock check.
func (s *Scheduler) Start() {
	s.pool.Start()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if s.runOnStartup {
			s.run()
		}

		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return
			case now := <-ticker.C:
				if s.due(now) {
					s.run()
				}
			}
		}
	}()

	s.log.Info("scheduler started", zap.Time("next_run", s.NextScheduledTime(time.Now())))
}

// due reports whether now falls on a scheduled minute that has not run yet.
func (s *Scheduler) due(now time.Time) bool {
	key := now.Format("2006-01-02T15:04")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun == key {
		return false
	}
	for _, st := range s.times {
		if now.Hour() == st.Hour && now.Minute() == st.Minute {
			s.lastRun = key
			return true
		}
	}
	return false
}

func (s *Scheduler) run() {
	jobs, err := s.jobs(s.ctx)
	if err != nil {
		s.log.Error("scheduler: failed to build jobs", zap.Error(err))
		return
	}
	if len(jobs) > 0 {
		s.pool.SubmitBatch(s.ctx, jobs)
	}
}

// Shutdown stops the clock and drains the pool, waiting at most timeout
// for each.
func (s *Scheduler) Shutdown(timeout time.Duration) {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		s.log.Warn("scheduler: clock loop did not stop in time")
	}

	s.pool.ShutdownWithTimeout(timeout)
}

// NextScheduledTime returns the first scheduled time after now.
func (s *Scheduler) NextScheduledTime(now time.Time) time.Time {
	var next time.Time
	for _, st := range s.times {
		t := time.Date(now.Year(), now.Month(), now.Day(), st.Hour, st.Minute, 0, 0, now.Location())
		if !t.After(now) {
			t = t.AddDate(0, 0, 1)
		}
		if next.IsZero() || t.Before(next) {
			next = t
		}
	}
	return next
}
