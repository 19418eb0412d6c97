package cards

import "github.com/spec-kit/expert-desk/internal/domain"

// Message texts that card submit actions put on the inbound activity.
const (
	AskAnExpertText       = "ask an expert"
	AskAnExpertSubmitText = "ask an expert submit"
)

// AskAnExpertPayload is the value of an escalation form submission.
type AskAnExpertPayload struct {
	Title               string `json:"Title"`
	Description         string `json:"Description"`
	UserQuestion        string `json:"UserQuestion"`
	KnowledgeBaseAnswer string `json:"KnowledgeBaseAnswer"`
}

// ResponseCardPayload is the value carried by actions on an answer card.
type ResponseCardPayload struct {
	IsPrompt            bool                      `json:"IsPrompt"`
	UserQuestion        string                    `json:"UserQuestion,omitempty"`
	KnowledgeBaseAnswer string                    `json:"KnowledgeBaseAnswer,omitempty"`
	PreviousQuestions   []domain.PreviousQuestion `json:"PreviousQuestions,omitempty"`
}

// PreviousQuestion returns the first carried question, if any.
func (p ResponseCardPayload) PreviousQuestion() (domain.PreviousQuestion, bool) {
	if len(p.PreviousQuestions) == 0 {
		return domain.PreviousQuestion{}, false
	}
	return p.PreviousQuestions[0], true
}

// ChangeTicketStatusPayload is the value of an action on the SME ticket card.
type ChangeTicketStatusPayload struct {
	TicketID string `json:"ticketId"`
	Action   string `json:"action"`
}
