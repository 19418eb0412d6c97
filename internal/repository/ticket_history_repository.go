package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/expert-desk/internal/domain"
)

// TicketHistoryRepository stores audit entries.
type TicketHistoryRepository interface {
	Create(ctx context.Context, history *domain.TicketHistory) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error)
}

type ticketHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTicketHistoryRepository builds the Postgres audit store.
func NewTicketHistoryRepository(pool *pgxpool.Pool) TicketHistoryRepository {
	return &ticketHistoryRepository{pool: pool}
}

// Create appends an entry. A zero CreatedAt is filled in by the database.
func (r *ticketHistoryRepository) Create(ctx context.Context, history *domain.TicketHistory) error {
	if history.ID == "" {
		history.ID = uuid.NewString()
	}
	var createdAt *time.Time
	if !history.CreatedAt.IsZero() {
		createdAt = &history.CreatedAt
	}

	const query = `
        INSERT INTO ticket_history (id, ticket_id, changed_by_name, changed_by_object, change_type, old_value, new_value, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))
        RETURNING created_at`
	err := r.pool.QueryRow(ctx, query,
		history.ID,
		history.TicketID,
		history.ChangedByName,
		history.ChangedByObject,
		string(history.ChangeType),
		history.OldValue,
		history.NewValue,
		createdAt,
	).Scan(&history.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert history for ticket %s: %w", history.TicketID, err)
	}
	return nil
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	const query = `
        SELECT id, ticket_id, changed_by_name, changed_by_object, change_type, old_value, new_value, created_at
        FROM ticket_history
        WHERE ticket_id = $1
        ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list history for ticket %s: %w", ticketID, err)
	}
	return pgx.CollectRows(rows, scanHistory)
}

func scanHistory(row pgx.CollectableRow) (domain.TicketHistory, error) {
	var (
		h          domain.TicketHistory
		changeType string
	)
	err := row.Scan(&h.ID, &h.TicketID, &h.ChangedByName, &h.ChangedByObject, &changeType, &h.OldValue, &h.NewValue, &h.CreatedAt)
	h.ChangeType = domain.TicketChangeType(changeType)
	return h, err
}
