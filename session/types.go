package session

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrSessionNotFound is returned for unknown or expired session ids.
	ErrSessionNotFound = errors.New("session does not exist or has expired")
	// ErrNotParticipant is returned when a connection mutates a session it never joined.
	ErrNotParticipant = errors.New("connection has not joined session")
	// ErrIDGeneration is returned when no fresh session id could be produced.
	// Callers may retry.
	ErrIDGeneration = errors.New("failed to generate session id")
)

// Snapshot is an immutable copy of a session's state.
type Snapshot struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	ActiveUsers int       `json:"activeUsers"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Departure describes a connection leaving a session.
type Departure struct {
	SessionID   string
	ActiveUsers int
}

// Session is one shared document. ID and CreatedAt are immutable; everything
// else is guarded by mu.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu           sync.Mutex
	title        string
	content      string
	updatedAt    time.Time
	participants map[string]struct{}
	deleted      bool

	expiry    Stopper
	expiryGen uint64
}

func newSession(id, title, content string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		CreatedAt:    now,
		title:        title,
		content:      content,
		updatedAt:    now,
		participants: make(map[string]struct{}),
	}
}

// snapshotLocked must be called with s.mu held.
func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:          s.ID,
		Title:       s.title,
		Content:     s.content,
		ActiveUsers: len(s.participants),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.updatedAt,
	}
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}
