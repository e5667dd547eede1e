package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/fieldbot/internal/logging"
	"github.com/aretw0/fieldbot/pkg/domain"
	"github.com/aretw0/fieldbot/pkg/ports"
)

// lockEntry holds the per-user semaphore and the reference count.
// The semaphore is a 1-slot channel so waiting can be abandoned on context cancellation.
type lockEntry struct {
	sem  chan struct{}
	refs int
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.SessionStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	logger *slog.Logger
	now    func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock overrides the time source used for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a new Session Manager with the given store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		locks:  make(map[string]*lockEntry),
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST call release(userID) once done with the entry.
func (m *Manager) acquire(userID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[userID]
	if !exists {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		m.locks[userID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[userID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, userID)
	}
}

// WithLock executes fn while holding the lock for the user.
// Callers queue in arrival order of the runtime scheduler; a cancelled context abandons the wait.
func (m *Manager) WithLock(ctx context.Context, userID string, fn func(context.Context) error) error {
	entry := m.acquire(userID)
	defer m.release(userID)

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-entry.sem }()

	return fn(ctx)
}

// Load retrieves an existing session from the store.
func (m *Manager) Load(ctx context.Context, userID string) (*domain.Session, error) {
	var session *domain.Session
	err := m.WithLock(ctx, userID, func(ctx context.Context) error {
		var err error
		session, err = m.store.Load(ctx, userID)
		return err
	})
	return session, err
}

// LoadOrStart tries to load a session. If not found, it creates a new Idle one.
func (m *Manager) LoadOrStart(ctx context.Context, userID string) (*domain.Session, error) {
	var session *domain.Session
	err := m.WithLock(ctx, userID, func(ctx context.Context) error {
		var err error
		session, err = m.loadOrCreate(ctx, userID)
		return err
	})
	return session, err
}

// Update loads (or creates) the user's session and hands it to fn under the user's lock.
// The session fn leaves behind is saved before the lock is released, so the next event
// for the same user always observes it.
func (m *Manager) Update(ctx context.Context, userID string, fn func(ctx context.Context, s *domain.Session) error) (*domain.Session, error) {
	return m.UpdateThen(ctx, userID, fn, nil)
}

// UpdateThen is Update with a callback that runs after the session is saved and
// before the lock is released, so callbacks for one user run in commit order.
// then must not block; a nil then is skipped.
func (m *Manager) UpdateThen(ctx context.Context, userID string, fn func(ctx context.Context, s *domain.Session) error, then func(ctx context.Context, s *domain.Session)) (*domain.Session, error) {
	var result *domain.Session
	err := m.WithLock(ctx, userID, func(ctx context.Context) error {
		session, err := m.loadOrCreate(ctx, userID)
		if err != nil {
			return err
		}

		if err := fn(ctx, session); err != nil {
			return err
		}

		session.Turns++
		session.UpdatedAt = m.now()
		if err := m.store.Save(ctx, session); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		result = session
		if then != nil {
			then(ctx, session)
		}
		return nil
	})
	return result, err
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

func (m *Manager) loadOrCreate(ctx context.Context, userID string) (*domain.Session, error) {
	session, err := m.store.Load(ctx, userID)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, fmt.Errorf("failed to check session existence: %w", err)
	}

	session = domain.NewSession(userID, m.now())
	if err := m.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}
	m.logger.Debug("session created", "user_id", userID)
	return session, nil
}
