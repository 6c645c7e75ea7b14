package usecase

import (
	"context"
	"sync"

	"github.com/semmidev/custos/internal/domain"
)

type SessionOpener interface {
	Open(ctx context.Context, profile domain.ConnectionProfile) (domain.Session, error)
}

// ConnectionManager owns the single live session. Operations that use the
// session hold a Lease (the read side of mu) for their whole duration, so
// Connect and Disconnect wait for them to finish.
type ConnectionManager struct {
	mu      sync.RWMutex
	opener  SessionOpener
	session domain.Session
	profile domain.ConnectionProfile

	// Snapshot for Status, readable while a writer is queued on mu.
	stateMu   sync.Mutex
	connected bool
	current   domain.ConnectionProfile

	logger   Logger
	recorder Recorder
}

func NewConnectionManager(opener SessionOpener, logger Logger, recorder Recorder) *ConnectionManager {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &ConnectionManager{opener: opener, logger: logger, recorder: recorder}
}

// Connect replaces any existing session. On failure nothing is kept.
func (m *ConnectionManager) Connect(ctx context.Context, profile domain.ConnectionProfile) domain.Outcome {
	if err := m.connect(ctx, profile); err != nil {
		m.logger.Errorf("Connection to %s at %s:%d failed: %v", profile.Engine, profile.Host, profile.Port, err)
		return domain.Failed("Connection failed: %v", err.(*domain.ConnectionError).Err)
	}
	m.logger.Infof("Connected to %s database %s at %s:%d", profile.Engine, profile.Database, profile.Host, profile.Port)
	return domain.Succeeded("Connection successful.")
}

func (m *ConnectionManager) connect(ctx context.Context, profile domain.ConnectionProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeLocked()

	session, err := m.opener.Open(ctx, profile)
	if err != nil {
		return &domain.ConnectionError{Engine: profile.Engine, Host: profile.Host, Err: err}
	}

	m.session = session
	m.profile = profile
	m.publish(true, profile)
	return nil
}

func (m *ConnectionManager) Disconnect() domain.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return domain.Failed("Not connected.")
	}
	m.closeLocked()
	m.logger.Infof("Disconnected from database")
	return domain.Succeeded("Disconnected successfully.")
}

// Close releases the session on shutdown.
func (m *ConnectionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
}

func (m *ConnectionManager) closeLocked() {
	if m.session != nil {
		if err := m.session.Close(); err != nil {
			m.logger.Warnf("Closing database session: %v", err)
		}
	}
	m.session = nil
	m.profile = domain.ConnectionProfile{}
	m.publish(false, domain.ConnectionProfile{})
}

func (m *ConnectionManager) publish(connected bool, profile domain.ConnectionProfile) {
	m.stateMu.Lock()
	m.connected = connected
	m.current = profile
	m.stateMu.Unlock()
	m.recorder.Connected(connected)
}

// Status never blocks behind an in-flight backup.
func (m *ConnectionManager) Status() (domain.ConnectionProfile, bool) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.current, m.connected
}

func (m *ConnectionManager) Connected() bool {
	_, ok := m.Status()
	return ok
}

// Acquire pins the current session until Release is called.
func (m *ConnectionManager) Acquire() (*Lease, error) {
	m.mu.RLock()
	if m.session == nil {
		m.mu.RUnlock()
		return nil, domain.ErrNotConnected
	}
	return &Lease{
		Profile: m.profile,
		Session: m.session,
		release: m.mu.RUnlock,
	}, nil
}

type Lease struct {
	Profile domain.ConnectionProfile
	Session domain.Session

	once    sync.Once
	release func()
}

func (l *Lease) Release() {
	l.once.Do(l.release)
}
