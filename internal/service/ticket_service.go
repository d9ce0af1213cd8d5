package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/deskline/helpdesk/internal/auth"
	"github.com/deskline/helpdesk/internal/domain"
	"github.com/deskline/helpdesk/internal/events"
	"github.com/deskline/helpdesk/internal/repository"
	apperrors "github.com/deskline/helpdesk/pkg/util/errorutil"
)

const bodyPreviewLength = 140

// TicketService runs the ticket lifecycle. Every operation passes exactly one
// guard check before touching the store.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	guard      *auth.Guard
	names      *NameJoiner
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Guard      *auth.Guard
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
}

// TicketUpdateInput carries admin changes. Nil fields are left alone; an
// empty AssignedTo clears the assignee.
type TicketUpdateInput struct {
	Status     *domain.TicketStatus
	AssignedTo *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		guard:      deps.Guard,
		names:      NewNameJoiner(deps.UserRepo),
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Create opens a ticket owned by the actor.
func (s *TicketService) Create(ctx context.Context, actor domain.Actor, in TicketCreateInput) (*domain.Ticket, error) {
	if err := s.guard.RequireAuthenticated(actor); err != nil {
		return nil, err
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Priority == "" {
		in.Priority = domain.TicketPriorityMedium
	}
	fields := fieldErrors{}
	switch {
	case in.Title == "":
		fields.add("title", "required")
	case utf8.RuneCountInString(in.Title) > domain.MaxTicketTitleLength:
		fields.add("title", "must be at most 100 characters")
	}
	if in.Description == "" {
		fields.add("description", "required")
	}
	if !in.Priority.Valid() {
		fields.add("priority", "must be LOW, MEDIUM or HIGH")
	}
	if err := fields.err("invalid ticket"); err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		CreatedBy:   actor.ID,
		Title:       in.Title,
		Description: in.Description,
		Status:      domain.TicketStatusOpen,
		Priority:    in.Priority,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.ActorOf(actor),
		Payload: events.TicketCreatedPayload{
			Title:    ticket.Title,
			Priority: ticket.Priority,
		},
	})
	return s.joined(ctx, ticket)
}

// ListAll returns every ticket. Admin only.
func (s *TicketService) ListAll(ctx context.Context, actor domain.Actor) ([]domain.Ticket, error) {
	if err := s.guard.RequireAdmin(actor); err != nil {
		return nil, err
	}
	tickets, err := s.tickets.ListAll(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.names.Join(ctx, tickets); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return tickets, nil
}

// ListMine returns the tickets the actor created.
func (s *TicketService) ListMine(ctx context.Context, actor domain.Actor) ([]domain.Ticket, error) {
	if err := s.guard.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	tickets, err := s.tickets.ListByCreator(ctx, actor.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.names.Join(ctx, tickets); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return tickets, nil
}

// Get returns one ticket to its owner or an admin.
func (s *TicketService) Get(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.RequireOwnerOrAdmin(actor, ticket.CreatedBy); err != nil {
		return nil, err
	}
	return s.joined(ctx, ticket)
}

// Respond appends a response to the thread. The append is a single store
// operation, so concurrent responders never overwrite each other.
func (s *TicketService) Respond(ctx context.Context, actor domain.Actor, ticketID, text string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.RequireOwnerOrAdmin(actor, ticket.CreatedBy); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("response text is required", map[string]any{"text": "required"})
	}

	response := &domain.TicketResponse{Text: text, CreatedBy: actor.ID}
	if err := s.tickets.AppendResponse(ctx, ticket.ID, response); err != nil {
		return nil, ticketLookupError(err)
	}
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventTicketResponseAdded,
		TicketID: ticket.ID,
		Actor:    events.ActorOf(actor),
		Payload: events.TicketResponseAddedPayload{
			ResponseID:  response.ID,
			OwnerID:     ticket.CreatedBy,
			BodyPreview: preview(text),
		},
	})

	updated, err := s.load(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	return s.joined(ctx, updated)
}

// Update sets status and assignee verbatim. Admin only; any status may follow
// any other.
func (s *TicketService) Update(ctx context.Context, actor domain.Actor, ticketID string, in TicketUpdateInput) (*domain.Ticket, error) {
	if err := s.guard.RequireAdmin(actor); err != nil {
		return nil, err
	}
	before, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	fields := fieldErrors{}
	if in.Status != nil && !in.Status.Valid() {
		fields.add("status", "must be OPEN, IN_PROGRESS or CLOSED")
	}
	if in.AssignedTo != nil {
		assignee := strings.TrimSpace(*in.AssignedTo)
		in.AssignedTo = &assignee
		if assignee != "" {
			if _, err := s.users.GetByID(ctx, assignee); errors.Is(err, repository.ErrNotFound) {
				fields.add("assignedTo", "unknown user")
			} else if err != nil {
				return nil, apperrors.NewInternalError(err)
			}
		}
	}
	if err := fields.err("invalid ticket update"); err != nil {
		return nil, err
	}
	if in.Status == nil && in.AssignedTo == nil {
		return s.joined(ctx, before)
	}
	after, err := s.tickets.Update(ctx, before.ID, domain.TicketUpdate{Status: in.Status, AssignedTo: in.AssignedTo})
	if err != nil {
		return nil, ticketLookupError(err)
	}
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: after.ID,
		Actor:    events.ActorOf(actor),
		Payload: events.TicketUpdatedPayload{
			OldStatus:     before.Status,
			NewStatus:     after.Status,
			OldAssignedTo: before.AssignedTo,
			NewAssignedTo: after.AssignedTo,
		},
	})
	return s.joined(ctx, after)
}

func (s *TicketService) load(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, ticketLookupError(err)
	}
	return ticket, nil
}

func (s *TicketService) joined(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	if err := s.names.JoinOne(ctx, ticket); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return ticket, nil
}

func ticketLookupError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("ticket", nil)
	}
	return apperrors.NewInternalError(err)
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= bodyPreviewLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:bodyPreviewLength]) + "..."
}
