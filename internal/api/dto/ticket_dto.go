package dto

import (
	"time"

	"github.com/deskline/helpdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
}

// RespondRequest payload.
type RespondRequest struct {
	Text string `json:"text"`
}

// UpdateTicketRequest payload. Omitted fields are left unchanged; an empty
// assignedTo clears the assignee.
type UpdateTicketRequest struct {
	Status     *domain.TicketStatus `json:"status"`
	AssignedTo *string              `json:"assignedTo"`
}

// UserRef is a user id with its display name.
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// TicketResponse is the public view of a ticket and its thread.
type TicketResponse struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	CreatedBy   UserRef               `json:"createdBy"`
	AssignedTo  *UserRef              `json:"assignedTo"`
	Responses   []ResponseEntry       `json:"responses"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
}

// ResponseEntry is one message in a ticket thread.
type ResponseEntry struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedBy UserRef   `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	out := TicketResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		CreatedBy:   UserRef{ID: t.CreatedBy, Name: t.CreatedByName},
		Responses:   make([]ResponseEntry, 0, len(t.Responses)),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.AssignedTo != nil {
		out.AssignedTo = &UserRef{ID: *t.AssignedTo, Name: t.AssignedToName}
	}
	for _, r := range t.Responses {
		out.Responses = append(out.Responses, ResponseEntry{
			ID:        r.ID,
			Text:      r.Text,
			CreatedBy: UserRef{ID: r.CreatedBy, Name: r.AuthorName},
			CreatedAt: r.CreatedAt,
		})
	}
	return out
}

// NewTicketList maps a slice of tickets.
func NewTicketList(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i]))
	}
	return out
}
