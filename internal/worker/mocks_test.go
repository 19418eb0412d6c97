package worker_test

import (
	"context"
	"time"

	"github.com/spec-kit/expert-desk/internal/domain"
)

type mockRedeliverer struct {
	redeliverFn func(ctx context.Context, ticket domain.Ticket) (*domain.Ticket, error)

	redelivered []string
}

func (m *mockRedeliverer) Redeliver(ctx context.Context, ticket domain.Ticket) (*domain.Ticket, error) {
	m.redelivered = append(m.redelivered, ticket.TicketID)
	if m.redeliverFn != nil {
		return m.redeliverFn(ctx, ticket)
	}
	ticket.Link("thread-"+ticket.TicketID, "1")
	return &ticket, nil
}

type mockLocker struct {
	acquireFn func(ctx context.Context, key string, ttl time.Duration) (bool, error)

	acquired []string
	released []string
}

func (m *mockLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.acquired = append(m.acquired, key)
	if m.acquireFn != nil {
		return m.acquireFn(ctx, key, ttl)
	}
	return true, nil
}

func (m *mockLocker) Release(ctx context.Context, key string) error {
	m.released = append(m.released, key)
	return nil
}
