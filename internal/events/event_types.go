package events

import (
	"time"

	"github.com/deskline/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketResponseAdded EventType = "ticket_response_added"
	EventTicketUpdated       EventType = "ticket_updated"
	EventUserDeactivated     EventType = "user_deactivated"
)

// Actor identifies who caused an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// ActorOf converts an authenticated actor into event metadata.
func ActorOf(a domain.Actor) Actor {
	return Actor{UserID: a.ID, Role: a.Role}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title    string                `json:"title"`
	Priority domain.TicketPriority `json:"priority"`
}

// TicketResponseAddedPayload payload.
type TicketResponseAddedPayload struct {
	ResponseID  string `json:"response_id"`
	OwnerID     string `json:"owner_id"`
	BodyPreview string `json:"body_preview"`
}

// TicketUpdatedPayload carries the before and after values of an admin update.
type TicketUpdatedPayload struct {
	OldStatus     domain.TicketStatus `json:"old_status"`
	NewStatus     domain.TicketStatus `json:"new_status"`
	OldAssignedTo *string             `json:"old_assigned_to,omitempty"`
	NewAssignedTo *string             `json:"new_assigned_to,omitempty"`
}
