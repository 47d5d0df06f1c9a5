package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultExpiry is how long a session may stay without participants.
const DefaultExpiry = time.Hour

const defaultTitle = "Untitled"

// Stopper cancels a scheduled expiry.
type Stopper interface {
	Stop() bool
}

// Scheduler runs f once after d. The returned handle cancels it.
type Scheduler func(d time.Duration, f func()) Stopper

func timeScheduler(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// Manager enforces membership and expiry on top of a Store.
// Each session is locked on its own; the reverse index has a separate lock.
type Manager struct {
	store    Store
	expiry   time.Duration
	schedule Scheduler

	// connId -> ids of sessions the connection has joined
	connMu sync.Mutex
	conns  map[string]map[string]struct{}
}

type ManagerOption func(*Manager)

// WithScheduler replaces time.AfterFunc for expiry timers.
func WithScheduler(s Scheduler) ManagerOption {
	return func(m *Manager) {
		m.schedule = s
	}
}

func NewManager(store Store, expiry time.Duration, opts ...ManagerOption) *Manager {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	m := &Manager{
		store:    store,
		expiry:   expiry,
		schedule: timeScheduler,
		conns:    make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create allocates a session. It has no participants yet, so its expiry
// timer starts immediately.
func (m *Manager) Create(ctx context.Context, title, content string) (Snapshot, error) {
	if title == "" {
		title = defaultTitle
	}

	sess, err := m.store.Create(ctx, title, content)
	if err != nil {
		return Snapshot{}, err
	}

	sess.mu.Lock()
	m.armExpiryLocked(sess)
	snap := sess.snapshotLocked()
	sess.mu.Unlock()

	slog.Info("session created", "sessionId", sess.ID)
	return snap, nil
}

// Get returns the current state of a live session.
func (m *Manager) Get(id string) (Snapshot, error) {
	sess, err := m.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.deleted {
		return Snapshot{}, ErrSessionNotFound
	}
	return sess.snapshotLocked(), nil
}

// Join adds connID to the session. Joining twice is harmless; added reports
// whether the connection was new to the session.
func (m *Manager) Join(id, connID string) (snap Snapshot, added bool, err error) {
	sess, err := m.lookup(id)
	if err != nil {
		return Snapshot{}, false, err
	}

	sess.mu.Lock()
	if sess.deleted {
		sess.mu.Unlock()
		return Snapshot{}, false, ErrSessionNotFound
	}
	if _, exists := sess.participants[connID]; !exists {
		sess.participants[connID] = struct{}{}
		added = true
	}
	m.cancelExpiryLocked(sess)
	snap = sess.snapshotLocked()
	sess.mu.Unlock()

	m.connMu.Lock()
	joined, ok := m.conns[connID]
	if !ok {
		joined = make(map[string]struct{})
		m.conns[connID] = joined
	}
	joined[id] = struct{}{}
	m.connMu.Unlock()

	return snap, added, nil
}

// Leave removes connID from the session. It reports false when the
// connection was not a member, so callers emit no notification.
func (m *Manager) Leave(id, connID string) (Departure, bool) {
	m.connMu.Lock()
	if joined, ok := m.conns[connID]; ok {
		delete(joined, id)
		if len(joined) == 0 {
			delete(m.conns, connID)
		}
	}
	m.connMu.Unlock()

	return m.leave(id, connID)
}

// Disconnect is an implicit Leave for every session connID had joined.
func (m *Manager) Disconnect(connID string) []Departure {
	m.connMu.Lock()
	joined := m.conns[connID]
	delete(m.conns, connID)
	m.connMu.Unlock()

	departures := make([]Departure, 0, len(joined))
	for id := range joined {
		if dep, ok := m.leave(id, connID); ok {
			departures = append(departures, dep)
		}
	}
	return departures
}

func (m *Manager) leave(id, connID string) (Departure, bool) {
	sess, ok := m.store.Get(id)
	if !ok {
		return Departure{}, false
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if _, exists := sess.participants[connID]; !exists || sess.deleted {
		return Departure{}, false
	}
	delete(sess.participants, connID)
	if len(sess.participants) == 0 {
		m.armExpiryLocked(sess)
	}

	return Departure{SessionID: id, ActiveUsers: len(sess.participants)}, true
}

// UpdateContent overwrites the document text. Last writer wins.
func (m *Manager) UpdateContent(id, connID, content string) error {
	return m.mutate(id, connID, func(s *Session) {
		s.content = content
	})
}

// UpdateTitle overwrites the display name. Last writer wins.
func (m *Manager) UpdateTitle(id, connID, title string) error {
	return m.mutate(id, connID, func(s *Session) {
		s.title = title
	})
}

func (m *Manager) mutate(id, connID string, apply func(*Session)) error {
	sess, err := m.lookup(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.deleted {
		return ErrSessionNotFound
	}
	if _, ok := sess.participants[connID]; !ok {
		return ErrNotParticipant
	}
	apply(sess)
	sess.updatedAt = time.Now()
	return nil
}

// IsMember reports whether connID is attached to the session.
func (m *Manager) IsMember(id, connID string) bool {
	sess, ok := m.store.Get(id)
	if !ok {
		return false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	_, member := sess.participants[connID]
	return member && !sess.deleted
}

// Members returns the connection ids attached to the session, in no particular order.
func (m *Manager) Members(id string) []string {
	sess, ok := m.store.Get(id)
	if !ok {
		return nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.deleted {
		return nil
	}
	members := make([]string, 0, len(sess.participants))
	for connID := range sess.participants {
		members = append(members, connID)
	}
	return members
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	return m.store.Len()
}

// Shutdown cancels all expiry timers. Sessions are not persisted.
func (m *Manager) Shutdown() {
	sessions := m.store.Sessions()
	for _, sess := range sessions {
		sess.mu.Lock()
		m.cancelExpiryLocked(sess)
		sess.mu.Unlock()
	}
	slog.Info("session manager shutdown complete", "sessions", len(sessions))
}

func (m *Manager) lookup(id string) (*Session, error) {
	sess, ok := m.store.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// armExpiryLocked (re)starts the expiry timer. Must be called with sess.mu held.
func (m *Manager) armExpiryLocked(sess *Session) {
	m.cancelExpiryLocked(sess)
	gen := sess.expiryGen
	sess.expiry = m.schedule(m.expiry, func() {
		m.expire(sess, gen)
	})
}

// cancelExpiryLocked stops any pending timer and invalidates callbacks that
// already started. Must be called with sess.mu held.
func (m *Manager) cancelExpiryLocked(sess *Session) {
	if sess.expiry != nil {
		sess.expiry.Stop()
		sess.expiry = nil
	}
	sess.expiryGen++
}

func (m *Manager) expire(sess *Session, gen uint64) {
	sess.mu.Lock()
	if sess.expiryGen != gen || len(sess.participants) > 0 || sess.deleted {
		sess.mu.Unlock()
		return
	}
	sess.deleted = true
	sess.expiry = nil
	sess.mu.Unlock()

	m.store.Delete(sess.ID)
	slog.Info("session expired", "sessionId", sess.ID, "idle", m.expiry)
}
