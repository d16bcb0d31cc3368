package directory

import (
	"context"
	"errors"
	"sync"

	"voteflow-backend/internal/models"
)

var (
	ErrMemberNotFound = errors.New("member not found")
	ErrInvalidMember  = errors.New("name, email and role are required")
)

// Store persists the full, unfiltered roster.
type Store interface {
	List(ctx context.Context) ([]models.Member, error)
	Get(ctx context.Context, id string) (models.Member, error)
	Create(ctx context.Context, m models.Member) error
	Update(ctx context.Context, m models.Member) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps members in insertion order.
type MemoryStore struct {
	mu      sync.RWMutex
	members []models.Member
}

func NewMemoryStore(seed ...models.Member) *MemoryStore {
	s := &MemoryStore{members: make([]models.Member, 0, len(seed))}
	s.members = append(s.members, seed...)
	return s
}

func (s *MemoryStore) List(_ context.Context) ([]models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Member, len(s.members))
	copy(out, s.members)
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.members {
		if m.ID == id {
			return m, nil
		}
	}
	return models.Member{}, ErrMemberNotFound
}

func (s *MemoryStore) Create(_ context.Context, m models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members = append(s.members, m)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, m models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.members {
		if s.members[i].ID == m.ID {
			s.members[i] = m
			return nil
		}
	}
	return ErrMemberNotFound
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.members {
		if s.members[i].ID == id {
			s.members = append(s.members[:i], s.members[i+1:]...)
			return nil
		}
	}
	return ErrMemberNotFound
}
