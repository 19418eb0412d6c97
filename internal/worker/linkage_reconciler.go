package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/expert-desk/internal/domain"
	"github.com/spec-kit/expert-desk/internal/repository"
	"github.com/spec-kit/expert-desk/internal/service"
)

const reconcileLockPrefix = "expertdesk:reconcile:"

// Redeliverer posts the SME card for a ticket that has no linkage.
type Redeliverer interface {
	Redeliver(ctx context.Context, ticket domain.Ticket) (*domain.Ticket, error)
}

// Locker hands out short leases so that only one replica reconciles a ticket at a time.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// RedisLocker implements Locker with SET NX leases.
type RedisLocker struct {
	client *redis.Client
	owner  string
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`)

// NewRedisLocker builds a locker whose leases are owned by this process.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client, owner: uuid.NewString()}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, key, l.owner, ttl).Result()
}

// Release drops the lease only if this process still owns it.
func (l *RedisLocker) Release(ctx context.Context, key string) error {
	return releaseScript.Run(ctx, l.client, []string{key}, l.owner).Err()
}

// LocalLocker always grants the lease. Suitable for a single replica.
type LocalLocker struct{}

func (LocalLocker) Acquire(context.Context, string, time.Duration) (bool, error) { return true, nil }
func (LocalLocker) Release(context.Context, string) error                      { return nil }

// ReconcilerConfig configures the linkage reconciler.
type ReconcilerConfig struct {
	Interval  time.Duration
	Grace     time.Duration
	BatchSize int
}

// LinkageReconciler delivers the SME card for tickets that were stored but never
// linked to one, e.g. because the expert team was not configured or delivery failed.
type LinkageReconciler struct {
	tickets     repository.TicketRepository
	redeliverer Redeliverer
	locker      Locker
	cfg         ReconcilerConfig
	logger      *zap.Logger
	now         func() time.Time
}

// NewLinkageReconciler builds the reconciler. A nil locker means LocalLocker.
func NewLinkageReconciler(tickets repository.TicketRepository, redeliverer Redeliverer, locker Locker, cfg ReconcilerConfig, logger *zap.Logger) *LinkageReconciler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.Grace <= 0 {
		cfg.Grace = 2 * time.Minute
	}
	if locker == nil {
		locker = LocalLocker{}
	}
	return &LinkageReconciler{
		tickets:     tickets,
		redeliverer: redeliverer,
		locker:      locker,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// Run reconciles on every tick until ctx is cancelled. A zero interval disables it.
func (r *LinkageReconciler) Run(ctx context.Context) {
	if r.cfg.Interval <= 0 {
		r.logger.Info("linkage reconciler disabled")
		return
	}
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.ReconcileOnce(ctx); err != nil {
				r.logger.Warn("linkage reconcile pass failed", zap.Error(err))
			}
		}
	}
}

// ReconcileOnce runs a single pass and reports how many tickets were linked.
func (r *LinkageReconciler) ReconcileOnce(ctx context.Context) (int, error) {
	pending, err := r.tickets.ListPendingLinkage(ctx, r.now().Add(-r.cfg.Grace), r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	linked := 0
	for _, candidate := range pending {
		ok, err := r.reconcile(ctx, candidate.TicketID)
		if errors.Is(err, service.ErrTeamNotConfigured) {
			r.logger.Info("expert team not configured, reconcile postponed", zap.Int("pending", len(pending)))
			return linked, nil
		}
		if err != nil {
			r.logger.Warn("ticket not reconciled", zap.String("ticket_id", candidate.TicketID), zap.Error(err))
			continue
		}
		if ok {
			linked++
		}
	}
	return linked, nil
}

func (r *LinkageReconciler) reconcile(ctx context.Context, ticketID string) (bool, error) {
	key := reconcileLockPrefix + ticketID
	acquired, err := r.locker.Acquire(ctx, key, r.leaseTTL())
	if err != nil {
		return false, err
	}
	if !acquired {
		return false, nil
	}
	defer func() {
		if err := r.locker.Release(context.WithoutCancel(ctx), key); err != nil {
			r.logger.Debug("lease release failed", zap.String("ticket_id", ticketID), zap.Error(err))
		}
	}()

	// Another replica may have linked it since the listing.
	ticket, err := r.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return false, err
	}
	if ticket.IsLinked() {
		return false, nil
	}
	if _, err := r.redeliverer.Redeliver(ctx, *ticket); err != nil {
		return false, err
	}
	r.logger.Info("ticket linkage reconciled", zap.String("ticket_id", ticketID))
	return true, nil
}

func (r *LinkageReconciler) leaseTTL() time.Duration {
	if r.cfg.Interval > 0 {
		return 2 * r.cfg.Interval
	}
	return time.Minute
}
