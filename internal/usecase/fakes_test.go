package usecase

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/semmidev/custos/internal/domain"
	"github.com/spf13/afero"
)

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{})  {}

type fakeSession struct {
	closed atomic.Bool
}

func (s *fakeSession) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errors.New("query not supported")
}
func (s *fakeSession) PingContext(context.Context) error { return nil }
func (s *fakeSession) BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error) {
	return nil, errors.New("transactions not supported")
}
func (s *fakeSession) Close() error {
	s.closed.Store(true)
	return nil
}

type fakeOpener struct {
	session domain.Session
	err     error
}

func (o *fakeOpener) Open(context.Context, domain.ConnectionProfile) (domain.Session, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.session, nil
}

// fakeEngine resolves tool paths like the PostgreSQL adapter but writes
// dumps through stdout redirection.
type fakeEngine struct{}

func (fakeEngine) Engine() domain.Engine { return domain.EnginePostgres }
func (fakeEngine) Open(context.Context, domain.ConnectionProfile) (domain.Session, error) {
	return nil, errors.New("not used")
}
func (fakeEngine) DumpCommand(p domain.ConnectionProfile, tools domain.ToolPaths, out string) (domain.Command, error) {
	if tools.PgDump == "" {
		return domain.Command{}, &domain.ToolNotConfiguredError{Tool: "pg_dump", Engine: p.Engine}
	}
	return domain.Command{Path: tools.PgDump, Args: []string{p.Database}, OutputFile: out}, nil
}
func (fakeEngine) RestoreCommand(p domain.ConnectionProfile, tools domain.ToolPaths, in string) (domain.Command, error) {
	if tools.PgRestore == "" {
		return domain.Command{}, &domain.ToolNotConfiguredError{Tool: "pg_restore", Engine: p.Engine}
	}
	return domain.Command{Path: tools.PgRestore, Args: []string{in}, InputFile: in}, nil
}
func (fakeEngine) ListUsers(context.Context, domain.Querier) ([]domain.User, error) {
	return nil, nil
}
func (fakeEngine) UserStatements(domain.UserRequest) ([]domain.Statement, error) {
	return nil, nil
}

type fakeResolver struct {
	db domain.Database
}

func (r fakeResolver) Get(engine domain.Engine) (domain.Database, error) {
	if r.db == nil || r.db.Engine() != engine {
		return nil, &domain.UnsupportedEngineError{Engine: string(engine)}
	}
	return r.db, nil
}

type staticTools domain.ToolPaths

func (t staticTools) Tools() domain.ToolPaths { return domain.ToolPaths(t) }

type fakeRunner struct {
	fs       afero.Fs
	exitCode int
	stderr   string
	err      error
	delay    time.Duration

	mu        sync.Mutex
	calls     []domain.Command
	active    int32
	maxActive int32
}

func (r *fakeRunner) Run(ctx context.Context, cmd domain.Command) (domain.ProcessResult, error) {
	n := atomic.AddInt32(&r.active, 1)
	defer atomic.AddInt32(&r.active, -1)
	for {
		m := atomic.LoadInt32(&r.maxActive)
		if n <= m || atomic.CompareAndSwapInt32(&r.maxActive, m, n) {
			break
		}
	}

	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	r.mu.Unlock()

	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	if cmd.OutputFile != "" {
		_ = afero.WriteFile(r.fs, cmd.OutputFile, []byte("-- dump\nCREATE TABLE orders (id int);\n"), 0600)
	}
	if r.err != nil {
		return domain.ProcessResult{ExitCode: -1}, r.err
	}
	return domain.ProcessResult{ExitCode: r.exitCode, Stderr: r.stderr}, nil
}

func (r *fakeRunner) Calls() []domain.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Command(nil), r.calls...)
}

type eventLog struct {
	mu     sync.Mutex
	events []domain.Event
}

func (l *eventLog) Notify(_ context.Context, e domain.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

type memStorage struct {
	mu        sync.Mutex
	files     map[string]time.Time
	uploadErr error
	oldErr    error
	deleted   []string
}

func newMemStorage(files ...string) *memStorage {
	s := &memStorage{files: make(map[string]time.Time)}
	for _, f := range files {
		s.files[f] = time.Time{}
	}
	return s
}

func (s *memStorage) Upload(_ context.Context, _ string, remoteName string) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[remoteName] = time.Now()
	return nil
}

func (s *memStorage) List(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *memStorage) Delete(_ context.Context, remoteName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, remoteName)
	s.deleted = append(s.deleted, remoteName)
	return nil
}

func (s *memStorage) GetOldFiles(context.Context, time.Time) ([]string, error) {
	if s.oldErr != nil {
		return nil, s.oldErr
	}
	return nil, nil
}

func (s *memStorage) Names() []string {
	names, _ := s.List(context.Background())
	return names
}

type fakeTrigger struct {
	running  bool
	next     time.Time
	hasNext  bool
	startErr error
}

func (t *fakeTrigger) Start() error {
	if t.startErr != nil {
		return t.startErr
	}
	t.running = true
	return nil
}

func (t *fakeTrigger) Stop() error {
	t.running = false
	return nil
}

func (t *fakeTrigger) Running() bool           { return t.running }
func (t *fakeTrigger) Next() (time.Time, bool) { return t.next, t.hasNext }
