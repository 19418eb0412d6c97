package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/expert-desk/internal/domain"
)

// MemoryTicketRepository keeps tickets in process. Used when no Postgres DSN is configured
// and in tests. Stored values are copies, so callers never share state with the store.
type MemoryTicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]domain.Ticket
	now     func() time.Time
}

// NewMemoryTicketRepository creates an empty store.
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{
		tickets: make(map[string]domain.Ticket),
		now:     time.Now,
	}
}

func (r *MemoryTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tickets[ticket.TicketID]; exists {
		return fmt.Errorf("create ticket %s: already exists", ticket.TicketID)
	}
	ticket.UpdatedAt = r.now()
	r.tickets[ticket.TicketID] = *ticket
	return nil
}

func (r *MemoryTicketRepository) GetByID(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ticket, ok := r.tickets[ticketID]
	if !ok {
		return nil, ErrNotFound
	}
	return &ticket, nil
}

func (r *MemoryTicketRepository) Upsert(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ticket.UpdatedAt = r.now()
	r.tickets[ticket.TicketID] = *ticket
	return nil
}

func (r *MemoryTicketRepository) ListPendingLinkage(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if !ticket.IsLinked() && ticket.DateCreated.Before(createdBefore) {
			result = append(result, ticket)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DateCreated.Before(result[j].DateCreated)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Len reports how many tickets are stored.
func (r *MemoryTicketRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tickets)
}
