package service_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spec-kit/expert-desk/internal/cards"
	"github.com/spec-kit/expert-desk/internal/domain"
	"github.com/spec-kit/expert-desk/internal/service"
	"github.com/spec-kit/expert-desk/internal/transport"
)

var _ = Describe("DecodeEvent", func() {
	Context("personal surface", func() {
		It("treats the typed keyword as a request for an empty form", func() {
			for _, text := range []string{"ask an expert", "Ask An Expert", "  ASK AN EXPERT  "} {
				event, err := service.DecodeEvent(personalActivity(text))
				Expect(err).NotTo(HaveOccurred())
				Expect(event).To(Equal(service.AskAnExpertPrefill{}), text)
			}
		})

		It("passes other text through unchanged", func() {
			event, err := service.DecodeEvent(personalActivity("How do I reset my VPN?"))
			Expect(err).NotTo(HaveOccurred())
			Expect(event).To(Equal(service.TextMessage{Surface: domain.SurfacePersonal, Text: "How do I reset my VPN?"}))
		})

		It("prefills the description from the carried question", func() {
			activity := personalSubmission("ask an expert", map[string]any{
				"UserQuestion":        "vpn reset",
				"KnowledgeBaseAnswer": "Use the portal.",
			})

			event, err := service.DecodeEvent(activity)
			Expect(err).NotTo(HaveOccurred())

			prefill, ok := event.(service.AskAnExpertPrefill)
			Expect(ok).To(BeTrue())
			Expect(prefill.Prefill).NotTo(BeNil())
			Expect(prefill.Prefill.Description).To(Equal("vpn reset"))
			Expect(prefill.Prefill.UserQuestion).To(Equal("vpn reset"))
			Expect(prefill.Prefill.KnowledgeBaseAnswer).To(Equal("Use the portal."))
		})

		It("decodes a submitted escalation form", func() {
			activity := personalSubmission("Ask an expert submit", cards.AskAnExpertPayload{
				Title:       "VPN",
				Description: "Cannot connect",
			})

			event, err := service.DecodeEvent(activity)
			Expect(err).NotTo(HaveOccurred())
			Expect(event).To(Equal(service.AskAnExpertSubmit{Payload: cards.AskAnExpertPayload{
				Title:       "VPN",
				Description: "Cannot connect",
			}}))
		})

		It("decodes a follow-up prompt", func() {
			payload := cards.ResponseCardPayload{
				IsPrompt:          true,
				UserQuestion:      "Reset steps",
				PreviousQuestions: []domain.PreviousQuestion{{ID: 7, Questions: []string{"vpn"}, Answer: "Use the portal."}},
			}
			event, err := service.DecodeEvent(personalSubmission("Reset steps", payload))
			Expect(err).NotTo(HaveOccurred())
			Expect(event).To(Equal(service.PromptFollowUp{Text: "Reset steps", Payload: payload}))
		})

		It("rejects submissions of unknown shape", func() {
			_, err := service.DecodeEvent(personalSubmission("something", map[string]any{"foo": "bar"}))
			var unrecognized *service.UnrecognizedSubmissionError
			Expect(errors.As(err, &unrecognized)).To(BeTrue())
			Expect(unrecognized.Surface).To(Equal(domain.SurfacePersonal))
		})

		It("treats a reply with an empty value as text", func() {
			activity := personalActivity("hello")
			activity.ReplyToID = "card-1"
			activity.Value = []byte("{}")

			event, err := service.DecodeEvent(activity)
			Expect(err).NotTo(HaveOccurred())
			Expect(event).To(BeAssignableToTypeOf(service.TextMessage{}))
		})
	})

	Context("channel surface", func() {
		expert := transport.ChannelAccount{ID: "29:expert", Name: "Alice", AADObjectID: "aad-alice"}

		It("decodes a ticket action", func() {
			event, err := service.DecodeEvent(channelSubmission(expert, cards.ChangeTicketStatusPayload{TicketID: "T1", Action: "CloseAction"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(event).To(Equal(service.ChangeStatusSubmit{Payload: cards.ChangeTicketStatusPayload{TicketID: "T1", Action: "CloseAction"}}))
		})

		It("classifies the surface case-insensitively", func() {
			activity := channelSubmission(expert, cards.ChangeTicketStatusPayload{TicketID: "T1", Action: "CloseAction"})
			activity.Conversation.ConversationType = "Channel"

			event, err := service.DecodeEvent(activity)
			Expect(err).NotTo(HaveOccurred())
			Expect(event).To(BeAssignableToTypeOf(service.ChangeStatusSubmit{}))
		})

		It("passes an action without a ticket id to the status flow", func() {
			event, err := service.DecodeEvent(channelSubmission(expert, map[string]any{"action": "CloseAction"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(event).To(Equal(service.ChangeStatusSubmit{Payload: cards.ChangeTicketStatusPayload{Action: "CloseAction"}}))
		})

		It("passes an empty value to the status flow", func() {
			activity := channelSubmission(expert, nil)
			activity.Value = []byte("{}")

			event, err := service.DecodeEvent(activity)
			Expect(err).NotTo(HaveOccurred())
			Expect(event).To(Equal(service.ChangeStatusSubmit{}))
		})

		It("rejects a value that is not an object", func() {
			activity := channelSubmission(expert, nil)
			activity.Value = []byte(`"close"`)

			_, err := service.DecodeEvent(activity)
			var unrecognized *service.UnrecognizedSubmissionError
			Expect(errors.As(err, &unrecognized)).To(BeTrue())
			Expect(unrecognized.Surface).To(Equal(domain.SurfaceChannel))
		})

		It("does not treat the keyword as special", func() {
			activity := channelSubmission(expert, nil)
			activity.ReplyToID = ""
			activity.Value = nil
			activity.Text = "ask an expert"

			event, err := service.DecodeEvent(activity)
			Expect(err).NotTo(HaveOccurred())
			Expect(event).To(Equal(service.TextMessage{Surface: domain.SurfaceChannel, Text: "ask an expert"}))
		})
	})

	It("rejects unsupported surfaces", func() {
		activity := personalActivity("ask an expert")
		activity.Conversation.ConversationType = "groupChat"

		_, err := service.DecodeEvent(activity)
		var unsupported *service.UnsupportedSurfaceError
		Expect(errors.As(err, &unsupported)).To(BeTrue())
		Expect(unsupported.ConversationType).To(Equal("groupChat"))
	})
})
