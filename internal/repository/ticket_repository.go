package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/expert-desk/internal/domain"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, ticketID string) (*domain.Ticket, error)
	Upsert(ctx context.Context, ticket *domain.Ticket) error
	// ListPendingLinkage returns tickets created before the cutoff that have no SME card linkage.
	ListPendingLinkage(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `ticket_id, status, title, description, user_question, knowledge_base_answer,
        requester_name, requester_object_id, requester_conversation_id, service_url, tenant_id,
        sme_card_activity_id, sme_thread_conversation_id,
        assigned_to_name, assigned_to_object_id, date_assigned,
        last_modified_by_name, last_modified_by_object_id,
        date_created, date_closed, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (` + ticketColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,NOW())
        RETURNING updated_at`
	args := ticketArgs(ticket)
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&ticket.UpdatedAt); err != nil {
		return fmt.Errorf("create ticket %s: %w", ticket.TicketID, err)
	}
	return nil
}

func (r *ticketRepository) Upsert(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (` + ticketColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,NOW())
        ON CONFLICT (ticket_id) DO UPDATE SET
            status=EXCLUDED.status,
            sme_card_activity_id=EXCLUDED.sme_card_activity_id,
            sme_thread_conversation_id=EXCLUDED.sme_thread_conversation_id,
            assigned_to_name=EXCLUDED.assigned_to_name,
            assigned_to_object_id=EXCLUDED.assigned_to_object_id,
            date_assigned=EXCLUDED.date_assigned,
            last_modified_by_name=EXCLUDED.last_modified_by_name,
            last_modified_by_object_id=EXCLUDED.last_modified_by_object_id,
            date_closed=EXCLUDED.date_closed,
            updated_at=NOW()
        RETURNING updated_at`
	args := ticketArgs(ticket)
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&ticket.UpdatedAt); err != nil {
		return fmt.Errorf("upsert ticket %s: %w", ticket.TicketID, err)
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, ticketID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get ticket %s: %w", ticketID, err)
	}
	return ticket, nil
}

func (r *ticketRepository) ListPendingLinkage(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT ` + ticketColumns + ` FROM tickets
        WHERE (sme_card_activity_id = '' OR sme_thread_conversation_id = '') AND date_created < $1
        ORDER BY date_created ASC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, createdBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending linkage: %w", err)
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func ticketArgs(t *domain.Ticket) []any {
	return []any{
		t.TicketID,
		t.Status,
		t.Title,
		t.Description,
		t.UserQuestion,
		t.KnowledgeBaseAnswer,
		t.RequesterName,
		t.RequesterObjectID,
		t.RequesterConversationID,
		t.ServiceURL,
		t.TenantID,
		t.SmeCardActivityID,
		t.SmeThreadConversationID,
		t.AssignedToName,
		t.AssignedToObjectID,
		t.DateAssigned,
		t.LastModifiedByName,
		t.LastModifiedByObjectID,
		t.DateCreated,
		t.DateClosed,
	}
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.TicketID,
		&ticket.Status,
		&ticket.Title,
		&ticket.Description,
		&ticket.UserQuestion,
		&ticket.KnowledgeBaseAnswer,
		&ticket.RequesterName,
		&ticket.RequesterObjectID,
		&ticket.RequesterConversationID,
		&ticket.ServiceURL,
		&ticket.TenantID,
		&ticket.SmeCardActivityID,
		&ticket.SmeThreadConversationID,
		&ticket.AssignedToName,
		&ticket.AssignedToObjectID,
		&ticket.DateAssigned,
		&ticket.LastModifiedByName,
		&ticket.LastModifiedByObjectID,
		&ticket.DateCreated,
		&ticket.DateClosed,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
