package service

import (
	"context"
	"fmt"

	"github.com/spec-kit/expert-desk/internal/domain"
	"github.com/spec-kit/expert-desk/internal/repository"
)

// TicketQueryService serves ticket lookups for operators.
type TicketQueryService struct {
	tickets repository.TicketRepository
	history repository.TicketHistoryRepository
}

// NewTicketQueryService constructs the service. history may be nil.
func NewTicketQueryService(tickets repository.TicketRepository, history repository.TicketHistoryRepository) *TicketQueryService {
	return &TicketQueryService{tickets: tickets, history: history}
}

// GetTicket returns the ticket and its audit trail.
func (s *TicketQueryService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, []domain.TicketHistory, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if s.history == nil {
		return ticket, nil, nil
	}
	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, fmt.Errorf("list history: %w", err)
	}
	return ticket, entries, nil
}
