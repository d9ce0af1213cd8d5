package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/deskline/helpdesk/internal/domain"
	"github.com/deskline/helpdesk/internal/repository"
)

func newUser(email string) *domain.User {
	return &domain.User{
		Name:         "Someone",
		Email:        email,
		Phone:        "555-0100",
		PasswordHash: "hash",
		Role:         domain.RoleUser,
		Active:       true,
	}
}

func TestUsersEmailUniqueIgnoresCaseAndActiveFlag(t *testing.T) {
	ctx := context.Background()
	users := NewUsers(nil)

	first := newUser("Ana@Example.com")
	if err := users.Create(ctx, first); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first.Email != "ana@example.com" {
		t.Fatalf("email not normalized: %q", first.Email)
	}
	if err := users.Deactivate(ctx, first.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	err := users.Create(ctx, newUser("ANA@example.COM"))
	if !errors.Is(err, repository.ErrEmailTaken) {
		t.Fatalf("duplicate Create err = %v, want ErrEmailTaken", err)
	}

	got, err := users.GetByEmail(ctx, "ana@EXAMPLE.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.Active || got.IsDeleted {
		t.Fatalf("flags after deactivate: active=%v isDeleted=%v", got.Active, got.IsDeleted)
	}
}

func TestUsersUpdateProfileAndNames(t *testing.T) {
	ctx := context.Background()
	users := NewUsers(nil)
	u := newUser("bo@example.com")
	if err := users.Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}

	name := "Bo Renamed"
	updated, err := users.UpdateProfile(ctx, u.ID, domain.ProfilePatch{Name: &name})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Name != name || updated.Phone != "555-0100" {
		t.Fatalf("updated = %+v", updated)
	}

	if _, err := users.UpdateProfile(ctx, "missing", domain.ProfilePatch{Name: &name}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("missing user err = %v", err)
	}

	names, err := users.NamesByIDs(ctx, []string{u.ID, "missing"})
	if err != nil {
		t.Fatalf("NamesByIDs: %v", err)
	}
	if len(names) != 1 || names[u.ID] != name {
		t.Fatalf("names = %v", names)
	}
}

func TestUsersTicketRefs(t *testing.T) {
	ctx := context.Background()
	tickets := NewTickets()
	users := NewUsers(tickets)
	u := newUser("cy@example.com")
	if err := users.Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	ticket := &domain.Ticket{CreatedBy: u.ID, Title: "t", Description: "d", Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityLow}
	if err := tickets.Create(ctx, ticket); err != nil {
		t.Fatalf("Create ticket: %v", err)
	}
	got, err := users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(got.TicketIDs) != 1 || got.TicketIDs[0] != ticket.ID {
		t.Fatalf("TicketIDs = %v", got.TicketIDs)
	}
}

func TestTicketsConcurrentAppendKeepsEveryResponse(t *testing.T) {
	ctx := context.Background()
	tickets := NewTickets()
	ticket := &domain.Ticket{CreatedBy: "owner", Title: "t", Description: "d", Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityMedium}
	if err := tickets.Create(ctx, ticket); err != nil {
		t.Fatalf("Create: %v", err)
	}

	const writers = 16
	var ready sync.WaitGroup
	ready.Add(writers)
	release := make(chan struct{})
	tickets.OnAppend(func(string) {
		ready.Done()
		<-release
	})

	var done sync.WaitGroup
	for i := 0; i < writers; i++ {
		done.Add(1)
		go func(i int) {
			defer done.Done()
			resp := &domain.TicketResponse{Text: fmt.Sprintf("reply %d", i), CreatedBy: "owner"}
			if err := tickets.AppendResponse(ctx, ticket.ID, resp); err != nil {
				t.Errorf("AppendResponse: %v", err)
			}
		}(i)
	}
	ready.Wait()
	close(release)
	done.Wait()

	got, err := tickets.GetByID(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(got.Responses) != writers {
		t.Fatalf("responses = %d, want %d", len(got.Responses), writers)
	}
	seen := map[string]bool{}
	for _, r := range got.Responses {
		seen[r.Text] = true
	}
	for i := 0; i < writers; i++ {
		if !seen[fmt.Sprintf("reply %d", i)] {
			t.Fatalf("reply %d lost", i)
		}
	}
}

func TestTicketsReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	tickets := NewTickets()
	ticket := &domain.Ticket{CreatedBy: "owner", Title: "t", Description: "d", Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityMedium}
	if err := tickets.Create(ctx, ticket); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := tickets.AppendResponse(ctx, ticket.ID, &domain.TicketResponse{Text: "first", CreatedBy: "owner"}); err != nil {
		t.Fatalf("AppendResponse: %v", err)
	}

	got, _ := tickets.GetByID(ctx, ticket.ID)
	got.Responses[0].Text = "mutated"
	got.Responses = got.Responses[:0]

	again, _ := tickets.GetByID(ctx, ticket.ID)
	if len(again.Responses) != 1 || again.Responses[0].Text != "first" {
		t.Fatalf("store mutated through returned value: %+v", again.Responses)
	}
}

func TestTicketsUpdate(t *testing.T) {
	ctx := context.Background()
	tickets := NewTickets()
	ticket := &domain.Ticket{CreatedBy: "owner", Title: "t", Description: "d", Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityMedium}
	if err := tickets.Create(ctx, ticket); err != nil {
		t.Fatalf("Create: %v", err)
	}

	status := domain.TicketStatusClosed
	assignee := "admin-1"
	got, err := tickets.Update(ctx, ticket.ID, domain.TicketUpdate{Status: &status, AssignedTo: &assignee})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Status != status || got.AssignedTo == nil || *got.AssignedTo != assignee {
		t.Fatalf("got = %+v", got)
	}

	none := ""
	got, err = tickets.Update(ctx, ticket.ID, domain.TicketUpdate{AssignedTo: &none})
	if err != nil {
		t.Fatalf("Update clear: %v", err)
	}
	if got.AssignedTo != nil || got.Status != status {
		t.Fatalf("after clear = %+v", got)
	}

	if _, err := tickets.Update(ctx, "missing", domain.TicketUpdate{Status: &status}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("missing ticket err = %v", err)
	}
	if err := tickets.AppendResponse(ctx, "missing", &domain.TicketResponse{Text: "x"}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("append missing err = %v", err)
	}
}

func TestResetLedgerConsumesOnce(t *testing.T) {
	ctx := context.Background()
	ledger := NewResetLedger()
	exp := time.Now().Add(20 * time.Minute)

	ok, err := ledger.Consume(ctx, "jti-1", "u", exp)
	if err != nil || !ok {
		t.Fatalf("first Consume = %v, %v", ok, err)
	}
	ok, err = ledger.Consume(ctx, "jti-1", "u", exp)
	if err != nil || ok {
		t.Fatalf("second Consume = %v, %v", ok, err)
	}

	ledger.now = func() time.Time { return exp.Add(time.Minute) }
	if _, err := ledger.Consume(ctx, "jti-2", "u", exp.Add(time.Hour)); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if ledger.Len() != 1 {
		t.Fatalf("expired nonce not purged, len = %d", ledger.Len())
	}
}
