package service

import (
	"context"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/deskline/helpdesk/internal/domain"
)

func createTicket(t *testing.T, env *testEnv, actor domain.Actor, title string) *domain.Ticket {
	t.Helper()
	ticket, err := env.lifecycle.Create(context.Background(), actor, TicketCreateInput{
		Title:       title,
		Description: "printer is on fire",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return ticket
}

func TestCreateTicketDefaultsAndValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.signup(t, "Alice", "alice@example.com", domain.RoleUser)

	ticket := createTicket(t, env, a, "  Printer  ")
	if ticket.CreatedBy != a.ID || ticket.CreatedByName != "Alice" {
		t.Fatalf("creator = %s/%q", ticket.CreatedBy, ticket.CreatedByName)
	}
	if ticket.Status != domain.TicketStatusOpen || ticket.Priority != domain.TicketPriorityMedium {
		t.Fatalf("defaults = %s/%s", ticket.Status, ticket.Priority)
	}
	if ticket.Title != "Printer" || len(ticket.Responses) != 0 {
		t.Fatalf("ticket = %+v", ticket)
	}

	cases := []struct {
		name string
		in   TicketCreateInput
	}{
		{"missing title", TicketCreateInput{Description: "d"}},
		{"missing description", TicketCreateInput{Title: "t", Description: "   "}},
		{"title too long", TicketCreateInput{Title: strings.Repeat("t", 101), Description: "d"}},
		{"bad priority", TicketCreateInput{Title: "t", Description: "d", Priority: "URGENT"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.lifecycle.Create(ctx, a, tc.in)
			expectStatus(t, err, http.StatusBadRequest)
		})
	}

	exact, err := env.lifecycle.Create(ctx, a, TicketCreateInput{Title: strings.Repeat("é", 100), Description: "d", Priority: domain.TicketPriorityHigh})
	if err != nil {
		t.Fatalf("100-char title rejected: %v", err)
	}
	if exact.Priority != domain.TicketPriorityHigh {
		t.Fatalf("priority = %s", exact.Priority)
	}

	_, err = env.lifecycle.Create(ctx, domain.Actor{}, TicketCreateInput{Title: "t", Description: "d"})
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestTicketAuthorizationMatrix(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.signup(t, "Alice", "alice@example.com", domain.RoleUser)
	b := env.signup(t, "Bob the Admin", "bob@example.com", domain.RoleAdmin)
	c := env.signup(t, "Carol", "carol@example.com", domain.RoleUser)

	ticket := createTicket(t, env, a, "VPN down")

	if _, err := env.lifecycle.Respond(ctx, a, ticket.ID, "any news?"); err != nil {
		t.Fatalf("owner respond: %v", err)
	}
	_, err := env.lifecycle.Respond(ctx, c, ticket.ID, "me too")
	expectStatus(t, err, http.StatusForbidden)

	got, err := env.lifecycle.Respond(ctx, b, ticket.ID, "looking into it")
	if err != nil {
		t.Fatalf("admin respond: %v", err)
	}
	if len(got.Responses) != 2 {
		t.Fatalf("responses = %d, want 2", len(got.Responses))
	}
	if got.Responses[0].AuthorName != "Alice" || got.Responses[1].AuthorName != "Bob the Admin" {
		t.Fatalf("authors = %q, %q", got.Responses[0].AuthorName, got.Responses[1].AuthorName)
	}

	status := domain.TicketStatusInProgress
	assignee := b.ID
	updated, err := env.lifecycle.Update(ctx, b, ticket.ID, TicketUpdateInput{Status: &status, AssignedTo: &assignee})
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if updated.Status != status || updated.AssignedTo == nil || *updated.AssignedTo != b.ID {
		t.Fatalf("updated = %+v", updated)
	}
	if updated.AssignedToName != "Bob the Admin" || len(updated.Responses) != 2 {
		t.Fatalf("joined = %q, %d responses", updated.AssignedToName, len(updated.Responses))
	}

	closed := domain.TicketStatusClosed
	_, err = env.lifecycle.Update(ctx, a, ticket.ID, TicketUpdateInput{Status: &closed})
	expectStatus(t, err, http.StatusForbidden)

	if _, err := env.lifecycle.Get(ctx, a, ticket.ID); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if _, err := env.lifecycle.Get(ctx, b, ticket.ID); err != nil {
		t.Fatalf("admin get: %v", err)
	}
	_, err = env.lifecycle.Get(ctx, c, ticket.ID)
	expectStatus(t, err, http.StatusForbidden)
}

func TestListAllAndListMine(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.signup(t, "Alice", "alice@example.com", domain.RoleUser)
	b := env.signup(t, "Bob the Admin", "bob@example.com", domain.RoleAdmin)
	c := env.signup(t, "Carol", "carol@example.com", domain.RoleUser)

	createTicket(t, env, a, "one")
	createTicket(t, env, a, "two")
	createTicket(t, env, c, "three")

	_, err := env.lifecycle.ListAll(ctx, a)
	expectStatus(t, err, http.StatusForbidden)

	all, err := env.lifecycle.ListAll(ctx, b)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListAll = %d tickets, want 3", len(all))
	}
	for _, ticket := range all {
		if ticket.CreatedByName == "" {
			t.Fatalf("creator name not joined on %s", ticket.ID)
		}
	}

	mine, err := env.lifecycle.ListMine(ctx, a)
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("ListMine = %d tickets, want 2", len(mine))
	}
	for _, ticket := range mine {
		if ticket.CreatedBy != a.ID {
			t.Fatalf("foreign ticket %s in ListMine", ticket.ID)
		}
	}

	none, err := env.lifecycle.ListMine(ctx, b)
	if err != nil || len(none) != 0 {
		t.Fatalf("admin ListMine = %d, %v", len(none), err)
	}

	profile, err := env.accounts.Profile(ctx, a)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if len(profile.TicketIDs) != 2 {
		t.Fatalf("ticket refs = %v", profile.TicketIDs)
	}
}

func TestRespondAndUpdateMissingTicket(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.signup(t, "Alice", "alice@example.com", domain.RoleUser)
	b := env.signup(t, "Bob the Admin", "bob@example.com", domain.RoleAdmin)

	_, err := env.lifecycle.Respond(ctx, a, "no-such-ticket", "hello")
	expectStatus(t, err, http.StatusNotFound)

	status := domain.TicketStatusClosed
	_, err = env.lifecycle.Update(ctx, b, "no-such-ticket", TicketUpdateInput{Status: &status})
	expectStatus(t, err, http.StatusNotFound)

	bogus := domain.TicketStatus("DONE")
	ghost := "00000000-0000-0000-0000-000000000000"
	_, err = env.lifecycle.Update(ctx, b, "no-such-ticket", TicketUpdateInput{Status: &bogus, AssignedTo: &ghost})
	expectStatus(t, err, http.StatusNotFound)

	ticket := createTicket(t, env, a, "empty reply")
	_, err = env.lifecycle.Respond(ctx, a, ticket.ID, "   ")
	expectStatus(t, err, http.StatusBadRequest)
}

func TestUpdateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.signup(t, "Alice", "alice@example.com", domain.RoleUser)
	b := env.signup(t, "Bob the Admin", "bob@example.com", domain.RoleAdmin)
	ticket := createTicket(t, env, a, "validate me")

	bogus := domain.TicketStatus("DONE")
	_, err := env.lifecycle.Update(ctx, b, ticket.ID, TicketUpdateInput{Status: &bogus})
	expectStatus(t, err, http.StatusBadRequest)

	ghost := "00000000-0000-0000-0000-000000000000"
	_, err = env.lifecycle.Update(ctx, b, ticket.ID, TicketUpdateInput{AssignedTo: &ghost})
	expectStatus(t, err, http.StatusBadRequest)

	assignee := b.ID
	if _, err := env.lifecycle.Update(ctx, b, ticket.ID, TicketUpdateInput{AssignedTo: &assignee}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	empty := ""
	cleared, err := env.lifecycle.Update(ctx, b, ticket.ID, TicketUpdateInput{AssignedTo: &empty})
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if cleared.AssignedTo != nil || cleared.AssignedToName != "" {
		t.Fatalf("assignee not cleared: %+v", cleared)
	}
}

func TestStatusTransitionsAreUnrestricted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.signup(t, "Alice", "alice@example.com", domain.RoleUser)
	b := env.signup(t, "Bob the Admin", "bob@example.com", domain.RoleAdmin)
	ticket := createTicket(t, env, a, "reopen me")

	for _, s := range []domain.TicketStatus{domain.TicketStatusClosed, domain.TicketStatusOpen, domain.TicketStatusClosed, domain.TicketStatusInProgress} {
		status := s
		got, err := env.lifecycle.Update(ctx, b, ticket.ID, TicketUpdateInput{Status: &status})
		if err != nil {
			t.Fatalf("-> %s: %v", s, err)
		}
		if got.Status != s {
			t.Fatalf("status = %s, want %s", got.Status, s)
		}
	}
}

func TestUpdateIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.signup(t, "Alice", "alice@example.com", domain.RoleUser)
	b := env.signup(t, "Bob the Admin", "bob@example.com", domain.RoleAdmin)
	ticket := createTicket(t, env, a, "twice")

	status := domain.TicketStatusClosed
	assignee := b.ID
	in := TicketUpdateInput{Status: &status, AssignedTo: &assignee}
	first, err := env.lifecycle.Update(ctx, b, ticket.ID, in)
	if err != nil {
		t.Fatalf("first update: %v", err)
	}
	second, err := env.lifecycle.Update(ctx, b, ticket.ID, in)
	if err != nil {
		t.Fatalf("second update: %v", err)
	}

	second.UpdatedAt = first.UpdatedAt
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("state differs after repeated update:\n%+v\n%+v", first, second)
	}
}

func TestConcurrentRespondsKeepBoth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.signup(t, "Alice", "alice@example.com", domain.RoleUser)
	b := env.signup(t, "Bob the Admin", "bob@example.com", domain.RoleAdmin)
	ticket := createTicket(t, env, a, "race")

	// Hold both appends until each responder has loaded the ticket and passed
	// the guard, so a load-then-save store would lose one of them.
	var arrived sync.WaitGroup
	arrived.Add(2)
	release := make(chan struct{})
	env.tickets.OnAppend(func(string) {
		arrived.Done()
		<-release
	})

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, r := range []struct {
		actor domain.Actor
		text  string
	}{{a, "from owner"}, {b, "from admin"}} {
		wg.Add(1)
		go func(actor domain.Actor, text string) {
			defer wg.Done()
			_, err := env.lifecycle.Respond(ctx, actor, ticket.ID, text)
			errs <- err
		}(r.actor, r.text)
	}
	arrived.Wait()
	close(release)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Respond: %v", err)
		}
	}

	final, err := env.lifecycle.Get(ctx, a, ticket.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(final.Responses) != 2 {
		t.Fatalf("responses = %d, want 2", len(final.Responses))
	}
	texts := map[string]bool{}
	for _, r := range final.Responses {
		texts[r.Text] = true
	}
	if !texts["from owner"] || !texts["from admin"] {
		t.Fatalf("lost a response: %v", texts)
	}
	if got := env.counter.get("ticket_response_added"); got != 2 {
		t.Fatalf("response events = %d", got)
	}
}

func TestLifecycleEventsAreCounted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.signup(t, "Alice", "alice@example.com", domain.RoleUser)
	b := env.signup(t, "Bob the Admin", "bob@example.com", domain.RoleAdmin)
	ticket := createTicket(t, env, a, "events")

	status := domain.TicketStatusClosed
	if _, err := env.lifecycle.Update(ctx, b, ticket.ID, TicketUpdateInput{Status: &status}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := env.lifecycle.Update(ctx, b, ticket.ID, TicketUpdateInput{}); err != nil {
		t.Fatalf("empty Update: %v", err)
	}
	if got := env.counter.get("ticket_created"); got != 1 {
		t.Fatalf("created events = %d", got)
	}
	if got := env.counter.get("ticket_updated"); got != 1 {
		t.Fatalf("updated events = %d", got)
	}
}
