package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// MaxTicketTitleLength bounds Ticket.Title in characters.
const MaxTicketTitleLength = 100

// Ticket is the aggregate for support requests. Responses only ever grow.
type Ticket struct {
	ID             string
	CreatedBy      string
	CreatedByName  string
	AssignedTo     *string
	AssignedToName string
	Title          string
	Description    string
	Status         TicketStatus
	Priority       TicketPriority
	Responses      []TicketResponse
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TicketResponse is one entry in a ticket thread.
type TicketResponse struct {
	ID         string
	Text       string
	CreatedBy  string
	AuthorName string
	CreatedAt  time.Time
}

// TicketUpdate carries admin changes; nil fields are left untouched and an
// empty AssignedTo clears the assignment.
type TicketUpdate struct {
	Status     *TicketStatus
	AssignedTo *string
}
