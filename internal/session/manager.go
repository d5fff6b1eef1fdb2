package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/fluxgen/internal/core/domain"
	"github.com/vietddude/fluxgen/internal/dispatch"
	"github.com/vietddude/fluxgen/internal/metrics"
)

// Store persists session snapshots between process restarts.
type Store interface {
	Save(ctx context.Context, snap domain.SessionSnapshot) error
	Load(ctx context.Context, id string) (domain.SessionSnapshot, bool, error)
	Delete(ctx context.Context, id string) error
}

// Config controls how the manager creates sessions.
type Config struct {
	// Defaults are applied to every new session, API key included.
	Defaults domain.Settings
	Dispatch dispatch.Config
	// IdleTTL is how long an unused session is kept. Zero keeps sessions
	// until they are deleted.
	IdleTTL time.Duration
}

type Option func(*Manager)

// WithStore enables snapshot persistence.
func WithStore(s Store) Option {
	return func(m *Manager) { m.store = s }
}

// WithDispatchOptions is passed to every dispatcher the manager creates.
func WithDispatchOptions(opts ...dispatch.Option) Option {
	return func(m *Manager) { m.dispatchOpts = append(m.dispatchOpts, opts...) }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager owns all live sessions.
type Manager struct {
	cfg          Config
	factory      ProviderFactory
	store        Store
	dispatchOpts []dispatch.Option
	log          *slog.Logger
	now          func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a manager. factory may be nil, in which case sessions
// are never ready.
func NewManager(cfg Config, factory ProviderFactory, opts ...Option) *Manager {
	m := &Manager{
		cfg:      cfg,
		factory:  factory,
		log:      slog.Default(),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a new session with the default settings.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	s, err := m.build(uuid.NewString(), m.cfg.Defaults)
	if err != nil {
		return nil, err
	}
	m.put(s)
	m.log.Info("Session created", "session", s.ID, "ready", s.Ready())
	m.persist(ctx, s)
	return s, nil
}

// Get returns the live session id, restoring it from the store when it is
// only persisted there.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}

	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		s.Touch(m.now())
		return s, nil
	}

	if m.store == nil {
		return nil, ErrSessionNotFound
	}
	snap, found, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	if !found {
		return nil, ErrSessionNotFound
	}

	// Configure drops the default key when the snapshot points elsewhere.
	settings := m.cfg.Defaults
	if snap.Settings.BaseURL != "" {
		settings.BaseURL = snap.Settings.BaseURL
	}
	if snap.Settings.Model != "" {
		settings.Model = snap.Settings.Model
	}
	s, err = m.build(id, settings)
	if err != nil {
		return nil, err
	}
	s.restore(snap)

	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	m.sessions[id] = s
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	m.log.Info("Session restored", "session", id, "generations", len(snap.Generations))
	return s, nil
}

// GetOrCreate returns the session id or a new one when id is unknown.
func (m *Manager) GetOrCreate(ctx context.Context, id string) (s *Session, created bool, err error) {
	s, err = m.Get(ctx, id)
	if err == nil {
		return s, false, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		m.log.Warn("Session restore failed, starting a new one", "session", id, "error", err)
	}
	s, err = m.Create(ctx)
	return s, err == nil, err
}

// Save persists s when a store is configured.
func (m *Manager) Save(ctx context.Context, s *Session) error {
	if m.store == nil {
		return nil
	}
	return m.store.Save(ctx, s.Snapshot())
}

// Delete ends the session id.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	if m.store != nil {
		return m.store.Delete(ctx, id)
	}
	return nil
}

// Sweep drops sessions idle for longer than IdleTTL and returns how many
// were dropped. Persisted snapshots expire on their own.
func (m *Manager) Sweep(ctx context.Context) int {
	if m.cfg.IdleTTL <= 0 {
		return 0
	}
	threshold := m.now().Add(-m.cfg.IdleTTL)

	m.mu.Lock()
	var expired []string
	for id, s := range m.sessions {
		if s.LastSeen().Before(threshold) {
			expired = append(expired, id)
			delete(m.sessions, id)
		}
	}
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	for _, id := range expired {
		m.log.Debug("Session expired", "session", id)
	}
	return len(expired)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) build(id string, settings domain.Settings) (*Session, error) {
	opts := append([]dispatch.Option{dispatch.WithLogger(m.log.With("session", id))}, m.dispatchOpts...)
	d := dispatch.New(nil, m.cfg.Dispatch, opts...)
	s := newSession(id, d, m.factory, m.cfg.Defaults, m.log, m.now())
	if err := s.Configure(settings); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Manager) put(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
}

func (m *Manager) persist(ctx context.Context, s *Session) {
	if err := m.Save(ctx, s); err != nil {
		m.log.Warn("Failed to persist session", "session", s.ID, "error", err)
	}
}
