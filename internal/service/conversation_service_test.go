package service_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spec-kit/expert-desk/internal/cards"
	"github.com/spec-kit/expert-desk/internal/domain"
	"github.com/spec-kit/expert-desk/internal/events"
	"github.com/spec-kit/expert-desk/internal/knowledgebase"
	"github.com/spec-kit/expert-desk/internal/repository"
	"github.com/spec-kit/expert-desk/internal/service"
	"github.com/spec-kit/expert-desk/internal/transport"
)

type harness struct {
	tickets    *countingTicketRepo
	config     *repository.MemoryConfigurationRepository
	history    *repository.MemoryTicketHistoryRepository
	connector  *fakeConnector
	kb         *mockKnowledgeBase
	dispatcher *service.ConversationService
}

func newHarness(now func() time.Time) *harness {
	h := &harness{
		tickets: newCountingTicketRepo(),
		config: repository.NewMemoryConfigurationRepository(map[domain.ConfigurationEntityType]string{
			domain.ConfigurationEntityTeamID: teamChannelID,
		}),
		history:   repository.NewMemoryTicketHistoryRepository(),
		connector: &fakeConnector{},
		kb:        &mockKnowledgeBase{},
	}
	bus := events.NewInMemoryDispatcher()
	service.NewAuditService(bus, h.history, nil).RegisterHandlers()

	h.dispatcher = service.NewConversationService(service.ConversationDependencies{
		Connector:         h.connector,
		ConfigurationRepo: h.config,
		Escalation: service.NewEscalationService(service.EscalationDependencies{
			TicketRepo:        h.tickets,
			ConfigurationRepo: h.config,
			Connector:         h.connector,
			Dispatcher:        bus,
			Clock:             now,
		}),
		Status: service.NewTicketStatusService(service.TicketStatusDependencies{
			TicketRepo: h.tickets,
			Connector:  h.connector,
			Dispatcher: bus,
			Clock:      now,
		}),
		Answers: service.NewAnswerService(service.AnswerDependencies{
			KnowledgeBase: h.kb,
			Connector:     h.connector,
		}),
	})
	return h
}

var _ = Describe("ConversationService", func() {
	var (
		ctx context.Context
		h   *harness
	)

	BeforeEach(func() {
		ctx = context.Background()
		h = newHarness(nil)
	})

	Describe("messages", func() {
		It("answers the keyword with an empty form and never queries the knowledge base", func() {
			for _, text := range []string{"ask an expert", "Ask an Expert", "ASK AN EXPERT "} {
				Expect(h.dispatcher.HandleActivity(ctx, personalActivity(text))).To(Succeed())
			}

			Expect(h.kb.calls).To(Equal(0))
			replies := h.connector.sentTo(userConversation)
			Expect(replies).To(HaveLen(3))
			for _, reply := range replies {
				form := cardOf(reply)
				Expect(cardTexts(form)).To(ContainElement("Ask an expert"))
				for _, el := range form.Body {
					if el.ID == "Title" || el.ID == "Description" {
						Expect(el.Value).To(BeEmpty())
					}
				}
			}
		})

		It("sends a typing indicator before replying", func() {
			Expect(h.dispatcher.HandleActivity(ctx, personalActivity("vpn"))).To(Succeed())
			Expect(h.connector.typing).To(HaveLen(1))
			Expect(h.connector.typing[0].activity.ReplyToID).To(Equal("incoming-1"))
		})

		It("routes free text to the knowledge base", func() {
			Expect(h.dispatcher.HandleActivity(ctx, personalActivity("VPN help"))).To(Succeed())

			Expect(h.kb.calls).To(Equal(1))
			Expect(h.kb.queries[0].Question).To(Equal("vpn help"))
			Expect(h.connector.sentTo(userConversation)).To(HaveLen(1))
		})

		It("classifies the surface case-insensitively", func() {
			activity := personalActivity("ask an expert")
			activity.Conversation.ConversationType = "PERSONAL"

			Expect(h.dispatcher.HandleActivity(ctx, activity)).To(Succeed())
			Expect(h.connector.sentTo(userConversation)).To(HaveLen(1))
		})

		It("drops messages from unsupported surfaces without replying", func() {
			activity := personalActivity("ask an expert")
			activity.Conversation.ConversationType = "groupChat"

			Expect(h.dispatcher.HandleActivity(ctx, activity)).To(Succeed())
			Expect(h.connector.sent).To(BeEmpty())
			Expect(h.connector.typing).To(BeEmpty())
			Expect(h.kb.calls).To(Equal(0))
		})

		It("does not answer channel chatter", func() {
			activity := channelSubmission(transport.ChannelAccount{ID: "29:alice", Name: "Alice"}, nil)
			activity.ReplyToID = ""
			activity.Value = nil
			activity.Text = "what is this?"

			Expect(h.dispatcher.HandleActivity(ctx, activity)).To(Succeed())
			Expect(h.kb.calls).To(Equal(0))
			Expect(h.connector.sent).To(BeEmpty())
		})

		It("answers an empty card action in the channel with a not found notice", func() {
			activity := channelSubmission(transport.ChannelAccount{ID: "29:alice", Name: "Alice"}, nil)
			activity.Value = []byte("{}")

			Expect(h.dispatcher.HandleActivity(ctx, activity)).To(Succeed())
			replies := h.connector.sentTo(expertThreadConvo)
			Expect(replies).To(HaveLen(1))
			Expect(replies[0].Text).To(Equal(service.NotFoundMessage("")))
		})

		It("ignores submissions it does not recognize", func() {
			Expect(h.dispatcher.HandleActivity(ctx, personalSubmission("??", map[string]any{"foo": 1}))).To(Succeed())
			Expect(h.connector.sent).To(BeEmpty())
			Expect(h.tickets.Len()).To(Equal(0))
		})

		It("prefills the form from an answer card", func() {
			activity := personalSubmission(cards.AskAnExpertText, map[string]any{"UserQuestion": "vpn"})

			Expect(h.dispatcher.HandleActivity(ctx, activity)).To(Succeed())
			form := cardOf(h.connector.sentTo(userConversation)[0])
			for _, el := range form.Body {
				if el.ID == "Description" {
					Expect(el.Value).To(Equal("vpn"))
				}
			}
		})
	})

	Describe("conversation updates", func() {
		update := func(conversationType string, added ...transport.ChannelAccount) *transport.Activity {
			activity := personalActivity("")
			activity.Type = transport.ActivityTypeConversationUpdate
			activity.Conversation.ConversationType = conversationType
			activity.MembersAdded = added
			return activity
		}

		It("welcomes the user when the bot is installed", func() {
			activity := update("personal", transport.ChannelAccount{ID: "28:bot"})

			Expect(h.dispatcher.HandleActivity(ctx, activity)).To(Succeed())
			replies := h.connector.sentTo(userConversation)
			Expect(replies).To(HaveLen(1))
			Expect(cardTexts(cardOf(replies[0]))).To(ContainElement(cards.MemberAddedWelcomeMessage))
		})

		It("uses the configured welcome text", func() {
			Expect(h.config.Set(ctx, domain.ConfigurationEntityWelcomeMessage, "Hello from the help desk")).To(Succeed())

			Expect(h.dispatcher.HandleActivity(ctx, update("personal", transport.ChannelAccount{ID: "28:bot"}))).To(Succeed())
			Expect(cardTexts(cardOf(h.connector.sentTo(userConversation)[0]))).To(ContainElement("Hello from the help desk"))
		})

		It("stays quiet when someone else was added or outside personal chat", func() {
			Expect(h.dispatcher.HandleActivity(ctx, update("personal", transport.ChannelAccount{ID: "29:other"}))).To(Succeed())
			Expect(h.dispatcher.HandleActivity(ctx, update("channel", transport.ChannelAccount{ID: "28:bot"}))).To(Succeed())
			Expect(h.connector.sent).To(BeEmpty())
		})
	})

	It("ignores other activity types", func() {
		activity := personalActivity("")
		activity.Type = "invoke"
		Expect(h.dispatcher.HandleActivity(ctx, activity)).To(Succeed())
		Expect(h.connector.sent).To(BeEmpty())
	})
})

var _ = Describe("Expert desk conversation", func() {
	It("carries a question from the user to the experts and back", func() {
		ctx := context.Background()
		clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
		h := newHarness(func() time.Time { return clock })
		h.kb.generateFn = func(context.Context, knowledgebase.Query) (*knowledgebase.Result, error) {
			return &knowledgebase.Result{Answers: []knowledgebase.Answer{{ID: knowledgebase.NoMatchID}}}, nil
		}

		By("asking a question the knowledge base cannot answer")
		Expect(h.dispatcher.HandleActivity(ctx, personalActivity("Printer on fire"))).To(Succeed())
		noMatch := cardOf(h.connector.sentTo(userConversation)[0])
		Expect(cardTexts(noMatch)).To(ContainElement(cards.UnrecognizedInputMessage))

		By("opening the prefilled form")
		prefill := noMatch.Actions[0].Data
		Expect(h.dispatcher.HandleActivity(ctx, personalSubmission(cards.AskAnExpertText, map[string]any{
			"UserQuestion": prefill["UserQuestion"],
		}))).To(Succeed())

		By("submitting the form")
		Expect(h.dispatcher.HandleActivity(ctx, personalSubmission(cards.AskAnExpertSubmitText, cards.AskAnExpertPayload{
			Title:        "Printer",
			Description:  "printer on fire",
			UserQuestion: "printer on fire",
		}))).To(Succeed())

		Expect(h.tickets.Len()).To(Equal(1))
		Expect(h.connector.threads).To(HaveLen(1))
		smeCard := cardOf(h.connector.threads[0].activity)
		ticketID := smeCard.Actions[len(smeCard.Actions)-1].Data["ticketId"].(string)

		ticket, err := h.tickets.GetByID(ctx, ticketID)
		Expect(err).NotTo(HaveOccurred())
		Expect(ticket.SmeThreadConversationID).To(Equal(expertThreadConvo))
		Expect(ticket.UserQuestion).To(Equal("printer on fire"))

		alice := transport.ChannelAccount{ID: "29:alice", Name: "Alice", AADObjectID: "aad-alice"}
		act := func(action string) {
			clock = clock.Add(time.Hour)
			Expect(h.dispatcher.HandleActivity(ctx, channelSubmission(alice, cards.ChangeTicketStatusPayload{
				TicketID: ticketID,
				Action:   action,
			}))).To(Succeed())
		}

		By("assigning the ticket in the expert channel")
		act(domain.AssignToSelfAction)
		ticket, _ = h.tickets.GetByID(ctx, ticketID)
		Expect(ticket.AssignedToName).To(HaveValue(Equal("Alice")))

		By("closing it")
		act(domain.CloseAction)
		ticket, _ = h.tickets.GetByID(ctx, ticketID)
		Expect(ticket.Status).To(Equal(domain.TicketStatusClosed))
		Expect(ticket.DateClosed).To(HaveValue(Equal(clock)))

		By("reopening it")
		act(domain.ReopenAction)
		ticket, _ = h.tickets.GetByID(ctx, ticketID)
		Expect(ticket.Status).To(Equal(domain.TicketStatusOpen))
		Expect(ticket.IsAssigned()).To(BeFalse())
		Expect(ticket.DateClosed).To(BeNil())

		Expect(h.connector.updates).To(HaveLen(3))
		for _, u := range h.connector.updates {
			Expect(u.ref.ActivityID).To(Equal("1001"))
		}
		Expect(h.connector.sentTo(expertThreadConvo)).To(HaveLen(3))

		userMessages := h.connector.sentTo(userConversation)
		summaries := make([]string, 0, len(userMessages))
		for _, m := range userMessages {
			if m.Summary != "" {
				summaries = append(summaries, m.Summary)
			}
		}
		Expect(summaries).To(Equal([]string{
			domain.AssignedTicketUserNotification,
			domain.ClosedTicketUserNotification,
			domain.ReopenedTicketUserNotification,
		}))

		entries, err := h.history.ListByTicket(ctx, ticketID)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).NotTo(BeEmpty())
		Expect(entries[0].ChangeType).To(Equal(domain.ChangeTypeCreated))
	})
})
