package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/semmidev/custos/internal/domain"
	"github.com/spf13/afero"
)

const DefaultToolTimeout = 2 * time.Hour

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

type Leaser interface {
	Acquire() (*Lease, error)
}

type EngineResolver interface {
	Get(engine domain.Engine) (domain.Database, error)
}

type ToolSource interface {
	Tools() domain.ToolPaths
}

// Backup runs dump and restore tools against the connected database. At
// most one of them runs at a time.
type Backup struct {
	mu sync.Mutex

	conns      Leaser
	engines    EngineResolver
	tools      ToolSource
	runner     domain.Runner
	retention  *Retention
	fs         afero.Fs
	logger     Logger
	mirror     *Mirror
	notifier   domain.Notifier
	recorder   Recorder
	now        func() time.Time
	timeout    time.Duration
	defaultDir string
}

type BackupOption func(*Backup)

func WithMirror(m *Mirror) BackupOption {
	return func(b *Backup) { b.mirror = m }
}

func WithNotifier(n domain.Notifier) BackupOption {
	return func(b *Backup) { b.notifier = n }
}

func WithRecorder(r Recorder) BackupOption {
	return func(b *Backup) { b.recorder = r }
}

func WithClock(now func() time.Time) BackupOption {
	return func(b *Backup) { b.now = now }
}

func WithToolTimeout(d time.Duration) BackupOption {
	return func(b *Backup) {
		if d > 0 {
			b.timeout = d
		}
	}
}

func WithDefaultDirectory(dir string) BackupOption {
	return func(b *Backup) { b.defaultDir = dir }
}

func NewBackup(
	conns Leaser,
	engines EngineResolver,
	tools ToolSource,
	runner domain.Runner,
	retention *Retention,
	logger Logger,
	opts ...BackupOption,
) *Backup {
	b := &Backup{
		conns:      conns,
		engines:    engines,
		tools:      tools,
		runner:     runner,
		retention:  retention,
		fs:         retention.fs,
		logger:     logger,
		recorder:   nopRecorder{},
		now:        time.Now,
		timeout:    DefaultToolTimeout,
		defaultDir: "./backups",
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (uc *Backup) Retention() *Retention {
	return uc.retention
}

func (uc *Backup) DefaultDirectory() string {
	return uc.defaultDir
}

type created struct {
	profile domain.ConnectionProfile
	path    string
	size    int64
	removed []string
}

// Create dumps the connected database into a new timestamped artifact and
// applies retention to its directory.
func (uc *Backup) Create(ctx context.Context, req domain.BackupRequest) domain.Outcome {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if req.Trigger == "" {
		req.Trigger = domain.TriggerManual
	}
	if req.Directory == "" {
		req.Directory = uc.defaultDir
	}

	start := time.Now()
	res, err := uc.create(ctx, req)
	elapsed := time.Since(start)
	uc.recorder.ObserveBackup(string(req.Trigger), err == nil, elapsed)

	event := domain.Event{
		Database: res.profile.Database,
		Engine:   res.profile.Engine,
		Trigger:  req.Trigger,
		Path:     res.path,
		Bytes:    res.size,
		Duration: elapsed,
	}

	if err != nil {
		uc.logger.Errorf("[%s] Backup failed: %v", req.Trigger, err)
		event.Status = domain.StatusFailure
		event.Error = err.Error()
		uc.notify(ctx, event)
		return failure("Backup", err)
	}

	uc.logger.Infof("[%s] Backup created at %s, size: %.2f MB, took %s",
		req.Trigger, res.path, float64(res.size)/(1024*1024), elapsed.Round(time.Millisecond))

	msg := "Backup created successfully at " + res.path
	if len(res.removed) > 0 {
		uc.recorder.RetentionDeleted(len(res.removed))
		msg += ". Removed old backups: " + strings.Join(res.removed, ", ")
	}

	if uc.mirror != nil {
		if err := uc.mirror.Push(ctx, res.path); err != nil {
			uc.logger.Warnf("Mirroring %s incomplete: %v", filepath.Base(res.path), err)
		}
	}

	event.Status = domain.StatusSuccess
	uc.notify(ctx, event)

	return domain.Outcome{Success: true, Message: msg}
}

func (uc *Backup) create(ctx context.Context, req domain.BackupRequest) (created, error) {
	var res created

	lease, err := uc.conns.Acquire()
	if err != nil {
		return res, err
	}
	defer lease.Release()
	res.profile = lease.Profile

	db, err := uc.engines.Get(lease.Profile.Engine)
	if err != nil {
		return res, err
	}

	base := req.Name
	if base == "" {
		base = lease.Profile.Database
	}

	dir, err := filepath.Abs(req.Directory)
	if err != nil {
		return res, &domain.FilesystemError{Op: "resolve directory", Path: req.Directory, Err: err}
	}

	path := uc.artifactPath(dir, sanitizeName(base))

	// A missing tool must fail before anything touches the disk.
	cmd, err := db.DumpCommand(lease.Profile, uc.tools.Tools(), path)
	if err != nil {
		return res, err
	}

	if err := uc.fs.MkdirAll(dir, 0755); err != nil {
		return res, &domain.FilesystemError{Op: "create backup directory", Path: dir, Err: err}
	}

	if err := uc.run(ctx, cmd, path); err != nil {
		return res, err
	}

	res.path = path
	if info, err := uc.fs.Stat(path); err == nil {
		res.size = info.Size()
	}
	res.removed = uc.retention.Sweep(dir)
	return res, nil
}

// Restore feeds an artifact back into the connected database.
func (uc *Backup) Restore(ctx context.Context, path string) domain.Outcome {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	start := time.Now()
	err := uc.restore(ctx, path)
	uc.recorder.ObserveRestore(err == nil, time.Since(start))

	if err != nil {
		uc.logger.Errorf("Restore from %s failed: %v", path, err)
		return failure("Restore", err)
	}

	uc.logger.Infof("Restored database from %s", path)
	return domain.Succeeded("Restore successful from %s", path)
}

func (uc *Backup) restore(ctx context.Context, path string) error {
	lease, err := uc.conns.Acquire()
	if err != nil {
		return err
	}
	defer lease.Release()

	db, err := uc.engines.Get(lease.Profile.Engine)
	if err != nil {
		return err
	}

	cmd, err := db.RestoreCommand(lease.Profile, uc.tools.Tools(), path)
	if err != nil {
		return err
	}

	if _, err := uc.fs.Stat(path); err != nil {
		return &domain.FilesystemError{Op: "open backup file", Path: path, Err: err}
	}

	return uc.run(ctx, cmd, "")
}

// run executes cmd under the tool timeout. A partial artifact is removed on
// failure.
func (uc *Backup) run(ctx context.Context, cmd domain.Command, artifact string) error {
	runCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	result, err := uc.runner.Run(runCtx, cmd)
	if err == nil && result.ExitCode != 0 {
		err = &domain.ExternalToolError{
			Tool:     filepath.Base(cmd.Path),
			ExitCode: result.ExitCode,
			Stderr:   strings.TrimSpace(result.Stderr),
		}
	}

	if err != nil && artifact != "" {
		if rmErr := uc.fs.Remove(artifact); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			uc.logger.Warnf("Could not remove partial backup %s: %v", artifact, rmErr)
		}
	}
	return err
}

// artifactPath builds {base}_{timestamp}.sql, adding a counter when a file
// with that name already exists.
func (uc *Backup) artifactPath(dir, base string) string {
	stem := fmt.Sprintf("%s_%s", base, uc.now().Format(domain.TimestampLayout))
	path := filepath.Join(dir, stem+domain.ArtifactExt)

	for i := 1; ; i++ {
		if _, err := uc.fs.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, i, domain.ArtifactExt))
	}
}

func (uc *Backup) notify(ctx context.Context, e domain.Event) {
	if uc.notifier == nil {
		return
	}
	if err := uc.notifier.Notify(ctx, e); err != nil {
		uc.logger.Warnf("Notification failed: %v", err)
	}
}

func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
}

func failure(op string, err error) domain.Outcome {
	var toolErr *domain.ExternalToolError
	switch {
	case errors.Is(err, domain.ErrNotConnected):
		return domain.Failed("Not connected to a database.")
	case errors.As(err, &toolErr):
		return domain.Failed("%s failed: %s", op, toolErr.Stderr)
	case errors.Is(err, domain.ErrToolNotConfigured), errors.Is(err, domain.ErrUnsupportedEngine):
		return domain.Failed("%s", err.Error())
	default:
		return domain.Failed("An error occurred during %s: %v", strings.ToLower(op), err)
	}
}
