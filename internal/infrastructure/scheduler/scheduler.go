package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	ErrAlreadyRunning = errors.New("scheduler is already running")
	ErrNotRunning     = errors.New("scheduler is not running")
)

// Standard five-field expressions, an optional leading seconds field and
// descriptors such as @weekly.
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Parse validates a cron expression.
func Parse(spec string) (cron.Schedule, error) {
	return parser.Parse(spec)
}

// Scheduler fires a single job on a cron schedule and can be started and
// stopped any number of times.
type Scheduler struct {
	mu       sync.Mutex
	cron     *cron.Cron
	schedule cron.Schedule
	loc      *time.Location
	entry    cron.EntryID
	running  bool
	stopped  context.Context

	ctx    context.Context
	cancel context.CancelFunc
}

// New parses spec and registers job. Panics in job are recovered and logged,
// so one bad run never ends the loop.
func New(spec string, loc *time.Location, job func(ctx context.Context), logger cron.Logger) (*Scheduler, error) {
	schedule, err := Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = cron.DiscardLogger
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger)),
		),
		schedule: schedule,
		loc:      loc,
		ctx:      ctx,
		cancel:   cancel,
	}
	s.entry = s.cron.Schedule(schedule, cron.FuncJob(func() {
		job(s.ctx)
	}))

	return s, nil
}

func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	s.cron.Start()
	s.running = true
	return nil
}

// Stop disarms the trigger. A job already in flight keeps running; use
// Shutdown to wait for it.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrNotRunning
	}
	s.stopped = s.cron.Stop()
	s.running = false
	return nil
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Next reports the next fire instant, or false when stopped.
func (s *Scheduler) Next() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return time.Time{}, false
	}
	if next := s.cron.Entry(s.entry).Next; !next.IsZero() {
		return next, true
	}
	return s.schedule.Next(time.Now().In(s.loc)), true
}

// NextAfter computes the fire instant following t regardless of state.
func (s *Scheduler) NextAfter(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.loc))
}

// Shutdown stops the scheduler and waits for an in-flight job. When ctx
// expires first the job's context is cancelled.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.stopped = s.cron.Stop()
		s.running = false
	}
	stopped := s.stopped
	s.mu.Unlock()

	if stopped == nil {
		s.cancel()
		return nil
	}

	select {
	case <-stopped.Done():
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return fmt.Errorf("wait for running job: %w", ctx.Err())
	}
}
