// Package scheduler runs jobs at fixed wall-clock times until its context is
// cancelled.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"finmanager/internal/logger"
)

// Schedule computes the next run strictly after a given instant.
type Schedule interface {
	Next(after time.Time) time.Time
}

// Daily fires once a day at Hour:Minute UTC.
type Daily struct {
	Hour   int
	Minute int
}

// Next implements Schedule.
func (d Daily) Next(after time.Time) time.Time {
	after = after.UTC()
	next := time.Date(after.Year(), after.Month(), after.Day(), d.Hour, d.Minute, 0, 0, time.UTC)
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Weekly fires once a week on Weekday at Hour:Minute UTC.
type Weekly struct {
	Weekday time.Weekday
	Hour    int
	Minute  int
}

// Next implements Schedule.
func (w Weekly) Next(after time.Time) time.Time {
	after = after.UTC()
	days := (int(w.Weekday) - int(after.Weekday()) + 7) % 7
	next := time.Date(after.Year(), after.Month(), after.Day()+days, w.Hour, w.Minute, 0, 0, time.UTC)
	if !next.After(after) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

// Job is a named unit of work on a schedule.
type Job struct {
	Name     string
	Schedule Schedule
	Run      func(ctx context.Context) error
}

// Scheduler runs registered jobs, each on its own goroutine.
type Scheduler struct {
	jobs  []Job
	now   func() time.Time
	after func(time.Duration) <-chan time.Time
	log   *zap.SugaredLogger
}

// New returns an empty scheduler on the system clock.
func New() *Scheduler {
	return &Scheduler{
		now:   func() time.Time { return time.Now().UTC() },
		after: time.After,
		log:   logger.Named("scheduler"),
	}
}

// Add registers a job. Jobs must be added before Run.
func (s *Scheduler) Add(name string, schedule Schedule, run func(ctx context.Context) error) {
	s.jobs = append(s.jobs, Job{Name: name, Schedule: schedule, Run: run})
}

// Jobs returns the registered jobs.
func (s *Scheduler) Jobs() []Job {
	return s.jobs
}

// Run blocks until ctx is cancelled. A failing job is logged and scheduled
// again; it never stops the scheduler.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, job := range s.jobs {
		g.Go(func() error {
			s.loop(ctx, job)
			return nil
		})
	}
	return g.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	for {
		now := s.now()
		next := job.Schedule.Next(now)
		s.log.Infow("job scheduled", "job", job.Name, "next_run", next.Format(time.RFC3339))

		select {
		case <-ctx.Done():
			return
		case <-s.after(next.Sub(now)):
		}
		if ctx.Err() != nil {
			return
		}

		s.runOnce(ctx, job)
	}
}

func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	start := s.now()
	s.log.Infow("job started", "job", job.Name)

	if err := job.Run(ctx); err != nil {
		s.log.Errorw("job failed", "job", job.Name, "error", err, "duration", s.now().Sub(start))
		return
	}
	s.log.Infow("job finished", "job", job.Name, "duration", s.now().Sub(start))
}
