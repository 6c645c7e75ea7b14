package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/semmidev/custos/internal/domain"
)

const NextFireLayout = "2006-01-02 15:04:05"

// Trigger is the timer driving scheduled backups.
type Trigger interface {
	Start() error
	Stop() error
	Running() bool
	Next() (time.Time, bool)
}

type ConnectionState interface {
	Connected() bool
}

// Schedule fires periodic backups through the executor and exposes the
// start/stop controls.
type Schedule struct {
	mu       sync.Mutex
	trigger  Trigger
	backup   *Backup
	conns    ConnectionState
	name     string
	dir      string
	logger   Logger
	recorder Recorder
}

func NewSchedule(backup *Backup, conns ConnectionState, name, dir string, logger Logger, recorder Recorder) *Schedule {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Schedule{
		backup:   backup,
		conns:    conns,
		name:     name,
		dir:      dir,
		logger:   logger,
		recorder: recorder,
	}
}

// Bind attaches the timer. It must be called before Start.
func (s *Schedule) Bind(t Trigger) {
	s.trigger = t
}

func (s *Schedule) Start() domain.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.trigger.Running() {
		return domain.Failed("Scheduler is already running")
	}
	if err := s.trigger.Start(); err != nil {
		return domain.Failed("Failed to start scheduler: %v", err)
	}
	s.recorder.SchedulerRunning(true)
	s.logger.Infof("Backup scheduler started")
	return domain.Succeeded("Backup scheduler started successfully")
}

func (s *Schedule) Stop() domain.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.trigger.Running() {
		return domain.Failed("Scheduler is not running")
	}
	if err := s.trigger.Stop(); err != nil {
		return domain.Failed("Failed to stop scheduler: %v", err)
	}
	s.recorder.SchedulerRunning(false)
	s.logger.Infof("Backup scheduler stopped")
	return domain.Succeeded("Backup scheduler stopped successfully")
}

func (s *Schedule) Running() bool {
	return s.trigger.Running()
}

// NextFireTime renders the next fire time, or a sentinel when there is none.
func (s *Schedule) NextFireTime() string {
	if !s.trigger.Running() {
		return "Scheduler not running"
	}
	next, ok := s.trigger.Next()
	if !ok {
		return "No scheduled backups"
	}
	return next.Format(NextFireLayout)
}

// Fire is the timer callback. Without a connection the run is skipped.
func (s *Schedule) Fire(ctx context.Context) {
	if !s.conns.Connected() {
		s.logger.Warnf("Scheduled backup skipped: not connected to a database")
		return
	}

	s.logger.Infof("Running scheduled backup...")
	out := s.backup.Create(ctx, domain.BackupRequest{
		Name:      s.name,
		Directory: s.dir,
		Trigger:   domain.TriggerScheduled,
	})
	if out.Success {
		s.logger.Infof("Scheduled backup completed: %s", out.Message)
	} else {
		s.logger.Errorf("Scheduled backup failed: %s", out.Message)
	}
}

// ForceRun performs the scheduled backup immediately, whether or not the
// timer is running.
func (s *Schedule) ForceRun(ctx context.Context) domain.Outcome {
	return s.backup.Create(ctx, domain.BackupRequest{
		Name:      s.name,
		Directory: s.dir,
		Trigger:   domain.TriggerForced,
	})
}
