package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mockmate/mockmate/internal/domain"
)

// MemorySessionStore is an in-memory SessionStore implementation, used
// when session.store is "memory" and throughout the tests.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
	order    map[string]int // insertion counter for stable newest-first ties
	next     int
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]domain.Session),
		order:    make(map[string]int),
	}
}

func (s *MemorySessionStore) Create(_ context.Context, ownerID, problem, code string, turns []domain.Turn) (domain.Session, error) {
	if ownerID == "" {
		return domain.Session{}, ErrNotAuthenticated
	}
	if len(turns) == 0 {
		return domain.Session{}, ErrEmptyTranscript
	}

	sess := domain.Session{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Problem:   problem,
		Code:      code,
		Turns:     append([]domain.Turn(nil), turns...),
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.order[sess.ID] = s.next
	s.next++
	s.mu.Unlock()

	return sess, nil
}

func (s *MemorySessionStore) ReplaceTranscript(_ context.Context, ownerID, sessionID string, turns []domain.Turn) error {
	if ownerID == "" {
		return ErrNotAuthenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || sess.OwnerID != ownerID {
		return ErrSessionNotFound
	}
	sess.Turns = append([]domain.Turn(nil), turns...)
	s.sessions[sessionID] = sess
	return nil
}

func (s *MemorySessionStore) Get(_ context.Context, ownerID, sessionID string) (domain.Session, error) {
	if ownerID == "" {
		return domain.Session{}, ErrNotAuthenticated
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok || sess.OwnerID != ownerID {
		return domain.Session{}, ErrSessionNotFound
	}
	sess.Turns = append([]domain.Turn(nil), sess.Turns...)
	return sess, nil
}

func (s *MemorySessionStore) List(_ context.Context, ownerID string) ([]domain.Session, error) {
	if ownerID == "" {
		return nil, ErrNotAuthenticated
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var sessions []domain.Session
	for _, sess := range s.sessions {
		if sess.OwnerID != ownerID {
			continue
		}
		sess.Turns = nil
		sessions = append(sessions, sess)
	}
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return s.order[sessions[i].ID] > s.order[sessions[j].ID]
		}
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}
