package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// maxIDAttempts bounds retries when a generated id collides with a live session.
const maxIDAttempts = 3

type Store interface {
	Create(ctx context.Context, title, content string) (*Session, error)
	Get(id string) (*Session, bool)
	// Delete is a no-op for unknown ids.
	Delete(id string)
	Len() int
	Sessions() []*Session
}

// IDGenerator produces opaque session identifiers.
type IDGenerator func() (string, error)

func newUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// MemoryStore keeps sessions in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	newID    IDGenerator
}

type StoreOption func(*MemoryStore)

// WithIDGenerator replaces the default UUID v4 generator.
func WithIDGenerator(gen IDGenerator) StoreOption {
	return func(s *MemoryStore) {
		s.newID = gen
	}
}

func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*Session),
		newID:    newUUID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Create(ctx context.Context, title, content string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := s.newID()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIDGeneration, err)
		}

		s.mu.Lock()
		if _, exists := s.sessions[id]; exists {
			s.mu.Unlock()
			continue
		}
		sess := newSession(id, title, content)
		s.sessions[id] = sess
		s.mu.Unlock()

		return sess, nil
	}

	return nil, fmt.Errorf("%w: %d collisions", ErrIDGeneration, maxIDAttempts)
}

func (s *MemoryStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) Sessions() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		result = append(result, sess)
	}
	return result
}

var _ Store = (*MemoryStore)(nil)
