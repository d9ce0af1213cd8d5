package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deskline/helpdesk/internal/domain"
	"github.com/deskline/helpdesk/internal/repository"
)

// Tickets is an in-memory repository.TicketRepository.
type Tickets struct {
	mu       sync.Mutex
	byID     map[string]*domain.Ticket
	order    []string
	now      func() time.Time
	onAppend func(ticketID string)
}

var _ repository.TicketRepository = (*Tickets)(nil)

// NewTickets creates an empty ticket store.
func NewTickets() *Tickets {
	return &Tickets{byID: make(map[string]*domain.Ticket), now: time.Now}
}

// OnAppend installs a hook that runs at the start of AppendResponse, before
// the store lock is taken. Tests use it to force interleavings.
func (s *Tickets) OnAppend(hook func(ticketID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAppend = hook
}

func (s *Tickets) Create(_ context.Context, ticket *domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	ticket.Responses = []domain.TicketResponse{}

	stored := cloneTicket(ticket)
	s.byID[ticket.ID] = stored
	s.order = append(s.order, ticket.ID)
	return nil
}

func (s *Tickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneTicket(ticket), nil
}

func (s *Tickets) ListAll(_ context.Context) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Ticket, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *cloneTicket(s.byID[id]))
	}
	return out, nil
}

func (s *Tickets) ListByCreator(_ context.Context, userID string) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Ticket{}
	for _, id := range s.order {
		if t := s.byID[id]; t.CreatedBy == userID {
			out = append(out, *cloneTicket(t))
		}
	}
	return out, nil
}

func (s *Tickets) AppendResponse(_ context.Context, ticketID string, response *domain.TicketResponse) error {
	s.mu.Lock()
	hook := s.onAppend
	s.mu.Unlock()
	if hook != nil {
		hook(ticketID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.byID[ticketID]
	if !ok {
		return repository.ErrNotFound
	}
	now := s.now()
	response.ID = uuid.NewString()
	response.CreatedAt = now
	ticket.Responses = append(ticket.Responses, domain.TicketResponse{
		ID:        response.ID,
		Text:      response.Text,
		CreatedBy: response.CreatedBy,
		CreatedAt: now,
	})
	ticket.UpdatedAt = now
	return nil
}

func (s *Tickets) Update(_ context.Context, id string, update domain.TicketUpdate) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if update.Status != nil {
		ticket.Status = *update.Status
	}
	if update.AssignedTo != nil {
		if *update.AssignedTo == "" {
			ticket.AssignedTo = nil
		} else {
			assignee := *update.AssignedTo
			ticket.AssignedTo = &assignee
		}
	}
	ticket.UpdatedAt = s.now()
	return cloneTicket(ticket), nil
}

func (s *Tickets) idsByCreator(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := []string{}
	for _, id := range s.order {
		if s.byID[id].CreatedBy == userID {
			ids = append(ids, id)
		}
	}
	return ids
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	out := *t
	if t.AssignedTo != nil {
		assignee := *t.AssignedTo
		out.AssignedTo = &assignee
	}
	out.Responses = make([]domain.TicketResponse, len(t.Responses))
	copy(out.Responses, t.Responses)
	return &out
}
