package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/expert-desk/internal/api/http"
	"github.com/spec-kit/expert-desk/internal/api/http/handlers"
	"github.com/spec-kit/expert-desk/internal/config"
	"github.com/spec-kit/expert-desk/internal/domain"
	"github.com/spec-kit/expert-desk/internal/events"
	"github.com/spec-kit/expert-desk/internal/knowledgebase"
	"github.com/spec-kit/expert-desk/internal/observability"
	"github.com/spec-kit/expert-desk/internal/persistence"
	"github.com/spec-kit/expert-desk/internal/repository"
	"github.com/spec-kit/expert-desk/internal/service"
	"github.com/spec-kit/expert-desk/internal/transport"
	"github.com/spec-kit/expert-desk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis, err := persistence.NewRedis(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to configure redis", zap.Error(err))
	}
	defer redis.Close()
	redisUp := redis.Available()

	metrics := observability.NewMetrics()
	stores, err := buildStores(ctx, cfg, pg, redis, redisUp, logger)
	if err != nil {
		logger.Fatal("failed to init stores", zap.Error(err))
	}

	configurationService := service.NewConfigurationService(stores.configuration, logger)
	if err := configurationService.Seed(ctx, domain.ConfigurationEntityTeamID, cfg.Bot.ExpertTeamID); err != nil {
		logger.Warn("expert team seed failed", zap.Error(err))
	}

	tokens := transport.NewSignedTokenSource(cfg.Transport.AppID, cfg.Transport.AppSecret, cfg.Transport.TokenTTL())
	connector := transport.NewHTTPConnector(tokens, cfg.Transport.Timeout(), logger.Named("connector"))

	kb, err := knowledgebase.NewHTTPClient(knowledgebase.Config{
		Endpoint:       cfg.KnowledgeBase.Endpoint,
		KnowledgeBase:  cfg.KnowledgeBase.KnowledgeBase,
		EndpointKey:    cfg.KnowledgeBase.EndpointKey,
		ScoreThreshold: cfg.KnowledgeBase.ScoreThreshold,
		Timeout:        cfg.KnowledgeBase.Timeout(),
	})
	if err != nil {
		logger.Fatal("failed to init knowledge base client", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, stores.history, logger.Named("audit")))

	escalation := service.NewEscalationService(service.EscalationDependencies{
		TicketRepo:        stores.tickets,
		ConfigurationRepo: stores.configuration,
		Connector:         connector,
		Dispatcher:        dispatcher,
		Metrics:           metrics,
		Logger:            logger.Named("escalation"),
	})
	status := service.NewTicketStatusService(service.TicketStatusDependencies{
		TicketRepo: stores.tickets,
		Connector:  connector,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger.Named("status"),
	})
	answers := service.NewAnswerService(service.AnswerDependencies{
		KnowledgeBase: kb,
		Connector:     connector,
		Metrics:       metrics,
		Logger:        logger.Named("answer"),
	})
	conversations := service.NewConversationService(service.ConversationDependencies{
		Connector:         connector,
		ConfigurationRepo: stores.configuration,
		Escalation:        escalation,
		Status:            status,
		Answers:           answers,
		Logger:            logger.Named("dispatcher"),
	})

	var locker worker.Locker = worker.LocalLocker{}
	if redisUp {
		locker = worker.NewRedisLocker(redis.ClientHandle())
	}
	reconciler := worker.NewLinkageReconciler(stores.tickets, escalation, locker, worker.ReconcilerConfig{
		Interval:  cfg.Reconcile.Interval(),
		Grace:     cfg.Reconcile.Grace(),
		BatchSize: cfg.Reconcile.BatchSize,
	}, logger.Named("reconciler"))
	go reconciler.Run(ctx)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	deps := map[string]handlers.Pinger{}
	if pg.PoolHandle() != nil {
		deps["postgres"] = pg
	}
	if redisUp {
		deps["redis"] = redis
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps),
		Messages:      handlers.NewMessagesHandler(conversations),
		Tickets:       handlers.NewTicketsHandler(service.NewTicketQueryService(stores.tickets, stores.history)),
		Configuration: handlers.NewConfigurationHandler(configurationService),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

type storeSet struct {
	tickets       repository.TicketRepository
	history       repository.TicketHistoryRepository
	configuration repository.ConfigurationRepository
}

// buildStores picks Postgres backed stores when a pool is available and in-process
// ones otherwise. Configuration lives in Postgres behind a Redis cache, or in a Redis
// hash, or in process, in that order of preference.
func buildStores(ctx context.Context, cfg *config.Config, pg *persistence.Postgres, redis *persistence.Redis, redisUp bool, logger *zap.Logger) (storeSet, error) {
	pool := pg.PoolHandle()
	if pool != nil {
		configuration, err := repository.NewConfigurationRepository(ctx, pool)
		if err != nil {
			return storeSet{}, err
		}
		if redisUp {
			configuration = repository.NewCachedConfigurationRepository(configuration, redis.ClientHandle(), cfg.Bot.ConfigCacheTTL(), logger)
		}
		return storeSet{
			tickets:       repository.NewTicketRepository(pool),
			history:       repository.NewTicketHistoryRepository(pool),
			configuration: configuration,
		}, nil
	}

	logger.Warn("using in-process ticket store; tickets are lost on restart")
	var configuration repository.ConfigurationRepository
	if redisUp {
		configuration = repository.NewRedisConfigurationRepository(redis.ClientHandle())
	} else {
		configuration = repository.NewMemoryConfigurationRepository(nil)
	}
	return storeSet{
		tickets:       repository.NewMemoryTicketRepository(),
		history:       repository.NewMemoryTicketHistoryRepository(),
		configuration: configuration,
	}, nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
