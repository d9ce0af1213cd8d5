package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskline/helpdesk/internal/domain"
)

// TicketRepository encapsulates ticket persistence. AppendResponse must be
// atomic at the store level: callers never write back a full response list.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListAll(ctx context.Context) ([]domain.Ticket, error)
	ListByCreator(ctx context.Context, userID string) ([]domain.Ticket, error)
	AppendResponse(ctx context.Context, ticketID string, response *domain.TicketResponse) error
	Update(ctx context.Context, id string, update domain.TicketUpdate) (*domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id::text, created_by::text, assigned_to::text, title, description, status, priority, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (created_by, title, description, status, priority)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id::text, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.CreatedBy,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	if err != nil {
		return err
	}
	ticket.Responses = []domain.TicketResponse{}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	tickets := []domain.Ticket{*ticket}
	if err := r.loadResponses(ctx, tickets); err != nil {
		return nil, err
	}
	return &tickets[0], nil
}

func (r *ticketRepository) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets ORDER BY created_at ASC, id ASC`
	return r.list(ctx, query)
}

func (r *ticketRepository) ListByCreator(ctx context.Context, userID string) ([]domain.Ticket, error) {
	if !validID(userID) {
		return []domain.Ticket{}, nil
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE created_by=$1 ORDER BY created_at ASC, id ASC`
	return r.list(ctx, query, userID)
}

func (r *ticketRepository) list(ctx context.Context, query string, args ...any) ([]domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	tickets, err := scanTickets(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if err := r.loadResponses(ctx, tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// AppendResponse inserts one response row and bumps the ticket timestamp in a
// single statement. The UPDATE row lock serializes concurrent appends on the
// same ticket without losing any of them.
func (r *ticketRepository) AppendResponse(ctx context.Context, ticketID string, response *domain.TicketResponse) error {
	if !validID(ticketID) {
		return ErrNotFound
	}
	const query = `
        WITH touched AS (
            UPDATE tickets SET updated_at=NOW() WHERE id=$1 RETURNING id
        )
        INSERT INTO ticket_responses (ticket_id, body, created_by)
        SELECT id, $2, $3 FROM touched
        RETURNING id::text, created_at`
	err := r.pool.QueryRow(ctx, query, ticketID, response.Text, response.CreatedBy).
		Scan(&response.ID, &response.CreatedAt)
	return translate(err)
}

func (r *ticketRepository) Update(ctx context.Context, id string, update domain.TicketUpdate) (*domain.Ticket, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	sets := []string{}
	args := []any{id}
	if update.Status != nil {
		args = append(args, *update.Status)
		sets = append(sets, fmt.Sprintf("status=$%d", len(args)))
	}
	if update.AssignedTo != nil {
		if *update.AssignedTo == "" {
			sets = append(sets, "assigned_to=NULL")
		} else {
			args = append(args, *update.AssignedTo)
			sets = append(sets, fmt.Sprintf("assigned_to=$%d::uuid", len(args)))
		}
	}
	sets = append(sets, "updated_at=NOW()")

	query := fmt.Sprintf(`UPDATE tickets SET %s WHERE id=$1`, strings.Join(sets, ", "))
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *ticketRepository) loadResponses(ctx context.Context, tickets []domain.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	index := make(map[string]int, len(tickets))
	ids := make([]string, 0, len(tickets))
	for i := range tickets {
		tickets[i].Responses = []domain.TicketResponse{}
		index[tickets[i].ID] = i
		ids = append(ids, tickets[i].ID)
	}

	const query = `
        SELECT ticket_id::text, id::text, body, created_by::text, created_at
        FROM ticket_responses WHERE ticket_id = ANY($1::text[]::uuid[]) ORDER BY seq ASC`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var ticketID string
		var resp domain.TicketResponse
		if err := rows.Scan(&ticketID, &resp.ID, &resp.Text, &resp.CreatedBy, &resp.CreatedAt); err != nil {
			return err
		}
		if i, ok := index[ticketID]; ok {
			tickets[i].Responses = append(tickets[i].Responses, resp)
		}
	}
	return rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.CreatedBy,
		&ticket.AssignedTo,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
