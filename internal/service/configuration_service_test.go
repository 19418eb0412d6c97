package service_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spec-kit/expert-desk/internal/domain"
	"github.com/spec-kit/expert-desk/internal/repository"
	"github.com/spec-kit/expert-desk/internal/service"
)

var _ = Describe("ConfigurationService", func() {
	var (
		ctx  context.Context
		repo *mockConfigurationRepo
		svc  *service.ConfigurationService
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = &mockConfigurationRepo{}
		svc = service.NewConfigurationService(repo, nil)
	})

	It("rejects unknown entity names", func() {
		_, err := svc.Get(ctx, "teamid")
		Expect(err).To(MatchError(service.ErrUnknownEntityType))
		Expect(svc.Set(ctx, "Nope", "x")).To(MatchError(service.ErrUnknownEntityType))
		Expect(repo.getCalls + repo.setCalls).To(Equal(0))
	})

	It("trims stored values", func() {
		var stored string
		repo.setFn = func(_ context.Context, entityType domain.ConfigurationEntityType, value string) error {
			Expect(entityType).To(Equal(domain.ConfigurationEntityTeamID))
			stored = value
			return nil
		}

		Expect(svc.Set(ctx, "TeamId", "  19:abc@thread.skype ")).To(Succeed())
		Expect(stored).To(Equal("19:abc@thread.skype"))
	})

	Describe("Seed", func() {
		It("stores the value when none exists", func() {
			Expect(svc.Seed(ctx, domain.ConfigurationEntityTeamID, "19:abc")).To(Succeed())
			Expect(repo.setCalls).To(Equal(1))
		})

		It("keeps an existing value", func() {
			repo.getFn = func(context.Context, domain.ConfigurationEntityType) (string, error) {
				return "19:existing", nil
			}
			Expect(svc.Seed(ctx, domain.ConfigurationEntityTeamID, "19:abc")).To(Succeed())
			Expect(repo.setCalls).To(Equal(0))
		})

		It("ignores empty values", func() {
			Expect(svc.Seed(ctx, domain.ConfigurationEntityTeamID, "  ")).To(Succeed())
			Expect(repo.getCalls + repo.setCalls).To(Equal(0))
		})

		It("surfaces lookup failures", func() {
			repo.getFn = func(context.Context, domain.ConfigurationEntityType) (string, error) {
				return "", errors.New("redis down")
			}
			Expect(svc.Seed(ctx, domain.ConfigurationEntityTeamID, "19:abc")).To(MatchError("redis down"))
			Expect(repo.setCalls).To(Equal(0))
		})
	})
})

var _ = Describe("TicketQueryService", func() {
	It("returns the ticket with its history", func() {
		ctx := context.Background()
		tickets := repository.NewMemoryTicketRepository()
		history := repository.NewMemoryTicketHistoryRepository()
		Expect(tickets.Create(ctx, &domain.Ticket{TicketID: "T1", Title: "VPN"})).To(Succeed())
		Expect(history.Create(ctx, &domain.TicketHistory{TicketID: "T1", ChangeType: domain.ChangeTypeCreated})).To(Succeed())

		svc := service.NewTicketQueryService(tickets, history)
		ticket, entries, err := svc.GetTicket(ctx, "T1")
		Expect(err).NotTo(HaveOccurred())
		Expect(ticket.Title).To(Equal("VPN"))
		Expect(entries).To(HaveLen(1))

		_, _, err = svc.GetTicket(ctx, "missing")
		Expect(err).To(MatchError(repository.ErrNotFound))
	})
})
