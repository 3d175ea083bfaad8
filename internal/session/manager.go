// Package session holds the in-memory per-user chat session state. Sessions
// deliberately do not survive a restart; losing an in-flight session on
// crash is an accepted trade-off, the durable sessions table only logs them.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/velvetlab/nightwhisper/internal/models"
)

// Turn is one entry of the bounded conversation buffer sent to the LLM.
type Turn struct {
	Role    string
	Content string
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Session struct {
	ID        string
	UserID    int64
	Kind      models.SessionKind
	RecordID  int64 // durable sessions row, 0 for confessional
	StartTime time.Time

	turns      []Turn
	messageIDs []int
}

// Confessional reports whether messages of this session must be retracted
// on close.
func (s *Session) Confessional() bool {
	return s.Kind == models.KindConfessional
}

// TempPremium reports whether this session grants full access by itself.
func (s *Session) TempPremium() bool {
	return s.Kind == models.KindTempPremium
}

// Manager owns all in-flight sessions plus one mutex per user identity.
// Every mutation for a given identity is serialized through that mutex;
// different identities proceed independently.
type Manager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex

	ttl   time.Duration
	depth int
	now   func() time.Time
}

func NewManager(ttl time.Duration, historyDepth int) *Manager {
	return &Manager{
		sessions: make(map[int64]*Session),
		locks:    make(map[int64]*sync.Mutex),
		ttl:      ttl,
		depth:    historyDepth,
		now:      time.Now,
	}
}

// Lock acquires the per-identity mutex and returns its unlock function.
// Callers hold it across the whole handling of one inbound update.
func (m *Manager) Lock(userID int64) func() {
	m.locksMu.Lock()
	lock, ok := m.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[userID] = lock
	}
	m.locksMu.Unlock()
	lock.Lock()
	return lock.Unlock
}

// Start creates a session for the user, silently replacing any prior one.
func (m *Manager) Start(userID int64, kind models.SessionKind, recordID int64) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		RecordID:  recordID,
		StartTime: m.now(),
	}
	m.mu.Lock()
	m.sessions[userID] = s
	m.mu.Unlock()
	return s
}

// Get returns the user's session, expired or not. Expiry is the caller's
// concern: it is detected lazily on the next inbound action, there is no
// background sweep.
func (m *Manager) Get(userID int64) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[userID]
	m.mu.RUnlock()
	return s, ok
}

// Expired reports whether the session has outlived its fixed duration.
func (m *Manager) Expired(s *Session) bool {
	return m.now().Sub(s.StartTime) >= m.ttl
}

// HasTempPremium reports whether the identity holds a live paid session.
func (m *Manager) HasTempPremium(userID int64) bool {
	m.mu.RLock()
	s, ok := m.sessions[userID]
	m.mu.RUnlock()
	return ok && s.TempPremium() && !m.Expired(s)
}

// End removes the session and hands it back. The recorded message ids are
// moved out with the session, so each id enters the retraction attempt set
// exactly once even if End races with another close path.
func (m *Manager) End(userID int64) (*Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	if ok {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()
	return s, ok
}

// AppendTurn adds one turn to the buffer, trimming it to the configured
// depth so the LLM request stays bounded.
func (m *Manager) AppendTurn(userID int64, role, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return
	}
	s.turns = append(s.turns, Turn{Role: role, Content: content})
	if len(s.turns) > m.depth {
		s.turns = s.turns[len(s.turns)-m.depth:]
	}
}

// Turns returns a copy of the conversation buffer.
func (m *Manager) Turns(userID int64) []Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	if !ok {
		return nil
	}
	return append([]Turn(nil), s.turns...)
}

// RecordMessageID remembers a Telegram message id emitted during a
// confessional session for bulk retraction on close.
func (m *Manager) RecordMessageID(userID int64, messageID int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok || !s.Confessional() {
		return
	}
	s.messageIDs = append(s.messageIDs, messageID)
}

// MessageIDs returns the retraction set of an ended session.
func (s *Session) MessageIDs() []int {
	return s.messageIDs
}
