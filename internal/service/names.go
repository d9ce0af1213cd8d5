package service

import (
	"context"

	"github.com/deskline/helpdesk/internal/domain"
	"github.com/deskline/helpdesk/internal/repository"
)

// NameJoiner fills display names on tickets with one batched directory
// lookup per call.
type NameJoiner struct {
	users repository.UserRepository
}

// NewNameJoiner creates a joiner backed by the user directory.
func NewNameJoiner(users repository.UserRepository) *NameJoiner {
	return &NameJoiner{users: users}
}

// Join resolves creator, assignee and response author names in place.
// Unknown ids leave the name empty.
func (j *NameJoiner) Join(ctx context.Context, tickets []domain.Ticket) error {
	ids := referencedIDs(tickets)
	if len(ids) == 0 {
		return nil
	}
	names, err := j.users.NamesByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for i := range tickets {
		t := &tickets[i]
		t.CreatedByName = names[t.CreatedBy]
		if t.AssignedTo != nil {
			t.AssignedToName = names[*t.AssignedTo]
		}
		for r := range t.Responses {
			t.Responses[r].AuthorName = names[t.Responses[r].CreatedBy]
		}
	}
	return nil
}

// JoinOne is Join for a single ticket.
func (j *NameJoiner) JoinOne(ctx context.Context, ticket *domain.Ticket) error {
	list := []domain.Ticket{*ticket}
	if err := j.Join(ctx, list); err != nil {
		return err
	}
	*ticket = list[0]
	return nil
}

func referencedIDs(tickets []domain.Ticket) []string {
	seen := map[string]struct{}{}
	ids := []string{}
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, t := range tickets {
		add(t.CreatedBy)
		if t.AssignedTo != nil {
			add(*t.AssignedTo)
		}
		for _, r := range t.Responses {
			add(r.CreatedBy)
		}
	}
	return ids
}
