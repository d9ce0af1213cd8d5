// Package memstore holds in-process implementations of the repository
// interfaces. Each store guards its documents with a mutex, which gives the
// same atomic single-document read-modify-write the Postgres stores provide.
package memstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deskline/helpdesk/internal/domain"
	"github.com/deskline/helpdesk/internal/repository"
)

// Users is an in-memory repository.UserRepository.
type Users struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]string
	tickets *Tickets
	now     func() time.Time
}

var _ repository.UserRepository = (*Users)(nil)

// NewUsers creates an empty user store. When tickets is non-nil, TicketIDs
// is derived from it on read.
func NewUsers(tickets *Tickets) *Users {
	return &Users{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]string),
		tickets: tickets,
		now:     time.Now,
	}
}

func (s *Users) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(user.Email))
	if _, taken := s.byEmail[email]; taken {
		return repository.ErrEmailTaken
	}
	now := s.now()
	user.ID = uuid.NewString()
	user.Email = email
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	stored.TicketIDs = nil
	s.byID[user.ID] = &stored
	s.byEmail[email] = user.ID
	return nil
}

func (s *Users) GetByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.snapshot(user), nil
}

func (s *Users) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.snapshot(s.byID[id]), nil
}

func (s *Users) UpdateProfile(_ context.Context, id string, patch domain.ProfilePatch) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !patch.Empty() {
		patch.Apply(user)
		user.UpdatedAt = s.now()
	}
	return s.snapshot(user), nil
}

func (s *Users) UpdatePassword(_ context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = s.now()
	return nil
}

func (s *Users) Deactivate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.Active = false
	user.UpdatedAt = s.now()
	return nil
}

func (s *Users) NamesByIDs(_ context.Context, ids []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make(map[string]string, len(ids))
	for _, id := range ids {
		if user, ok := s.byID[id]; ok {
			names[id] = user.Name
		}
	}
	return names, nil
}

func (s *Users) snapshot(user *domain.User) *domain.User {
	out := *user
	out.TicketIDs = []string{}
	if s.tickets != nil {
		out.TicketIDs = s.tickets.idsByCreator(user.ID)
	}
	return &out
}
