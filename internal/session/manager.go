package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ent0n29/salesbot/internal/sales"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrEnded    = errors.New("session ended")
)

type Session struct {
	ID             string     `json:"session_id"`
	VisitorID      string     `json:"visitor_id"`
	Status         Status     `json:"status"`
	TurnCount      int        `json:"turn_count"`
	StartedAt      time.Time  `json:"started_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
}

// EngineFactory builds the lead-qualification engine for a new session.
type EngineFactory func() *sales.Engine

type entry struct {
	session Session
	engine  *sales.Engine
}

// Manager owns one sales engine per visitor session.
type Manager struct {
	mu                sync.RWMutex
	entries           map[string]*entry
	inactivityTimeout time.Duration
	endedRetention    time.Duration
	newEngine         EngineFactory
	onExpire          func(*Session)
	onPurge           func(sessionID string)
}

func NewManager(inactivityTimeout time.Duration, newEngine EngineFactory) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 30 * time.Minute
	}
	if newEngine == nil {
		newEngine = func() *sales.Engine { return sales.NewEngine() }
	}
	return &Manager{
		entries:           make(map[string]*entry),
		inactivityTimeout: inactivityTimeout,
		endedRetention:    time.Hour,
		newEngine:         newEngine,
	}
}

func (m *Manager) SetExpireHook(hook func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

// SetPurgeHook is called with the id of every ended session the janitor drops.
func (m *Manager) SetPurgeHook(hook func(sessionID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onPurge = hook
}

// SetEndedRetention controls how long ended sessions stay readable before the janitor drops them.
func (m *Manager) SetEndedRetention(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d > 0 {
		m.endedRetention = d
	}
}

func (m *Manager) Create(visitorID string) *Session {
	now := time.Now().UTC()
	e := &entry{
		session: Session{
			ID:             uuid.NewString(),
			VisitorID:      visitorID,
			Status:         StatusActive,
			StartedAt:      now,
			LastActivityAt: now,
		},
		engine: m.newEngine(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.session.ID] = e
	return clone(&e.session)
}

func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(&e.session), nil
}

// BeginTurn counts a new visitor turn. Ended sessions refuse further turns.
func (m *Manager) BeginTurn(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.activeLocked(sessionID)
	if err != nil {
		return nil, err
	}
	e.session.TurnCount++
	e.session.LastActivityAt = time.Now().UTC()
	return clone(&e.session), nil
}

// Engine returns the engine of an active session and records activity.
func (m *Manager) Engine(sessionID string) (*sales.Engine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.activeLocked(sessionID)
	if err != nil {
		return nil, err
	}
	e.session.LastActivityAt = time.Now().UTC()
	return e.engine, nil
}

func (m *Manager) activeLocked(sessionID string) (*entry, error) {
	e, ok := m.entries[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	if e.session.Status != StatusActive {
		return nil, ErrEnded
	}
	return e, nil
}

// Profile reads the lead profile of any known session, ended or not.
func (m *Manager) Profile(sessionID string) (sales.ConversationState, error) {
	m.mu.RLock()
	e, ok := m.entries[sessionID]
	m.mu.RUnlock()
	if !ok {
		return sales.ConversationState{}, ErrNotFound
	}
	return e.engine.Profile(), nil
}

func (m *Manager) Touch(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[sessionID]
	if !ok {
		return ErrNotFound
	}
	e.session.LastActivityAt = time.Now().UTC()
	return nil
}

func (m *Manager) End(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	if e.session.Status == StatusEnded {
		return nil, ErrEnded
	}
	now := time.Now().UTC()
	e.session.Status = StatusEnded
	e.session.LastActivityAt = now
	e.session.EndedAt = &now
	return clone(&e.session), nil
}

func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, e := range m.entries {
		if e.session.Status == StatusActive {
			count++
		}
	}
	return count
}

func (m *Manager) expireInactive() {
	now := time.Now().UTC()
	var (
		expired []*Session
		purged  []string
	)

	m.mu.Lock()
	for id, e := range m.entries {
		s := &e.session
		if s.Status == StatusEnded {
			if s.EndedAt != nil && now.Sub(*s.EndedAt) >= m.endedRetention {
				delete(m.entries, id)
				purged = append(purged, id)
			}
			continue
		}
		if now.Sub(s.LastActivityAt) < m.inactivityTimeout {
			continue
		}
		s.Status = StatusEnded
		s.LastActivityAt = now
		s.EndedAt = &now
		expired = append(expired, clone(s))
	}
	hook := m.onExpire
	purge := m.onPurge
	m.mu.Unlock()

	if hook != nil {
		for _, s := range expired {
			hook(s)
		}
	}
	if purge != nil {
		for _, id := range purged {
			purge(id)
		}
	}
}

func clone(s *Session) *Session {
	c := *s
	return &c
}
