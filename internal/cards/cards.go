package cards

import (
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/expert-desk/internal/domain"
	"github.com/spec-kit/expert-desk/internal/knowledgebase"
	"github.com/spec-kit/expert-desk/internal/transport"
)

const (
	schemaURL   = "http://adaptivecards.io/schemas/adaptive-card.json"
	cardVersion = "1.2"
	dateLayout  = "Mon, Jan 2, 2006 3:04 PM MST"
)

// User facing texts.
const (
	SubmittedTicketUserNotification = "Your request has been submitted. An expert will get back to you shortly."
	MemberAddedWelcomeMessage       = "Hi, I can answer common questions. If I cannot help, type \"ask an expert\" and your question goes to the expert team."
	UnrecognizedInputMessage        = "I didn't find an answer to that. You can rephrase your question or ask an expert."
	TitleRequiredMessage            = "Please provide a title for your request."
)

// Card is an adaptive card document.
type Card struct {
	Schema  string    `json:"$schema"`
	Type    string    `json:"type"`
	Version string    `json:"version"`
	Body    []Element `json:"body"`
	Actions []Action  `json:"actions,omitempty"`
}

// Element is a body element. Only the fields relevant to Type are set.
type Element struct {
	Type        string `json:"type"`
	ID          string `json:"id,omitempty"`
	Text        string `json:"text,omitempty"`
	Size        string `json:"size,omitempty"`
	Weight      string `json:"weight,omitempty"`
	Color       string `json:"color,omitempty"`
	Wrap        bool   `json:"wrap,omitempty"`
	IsSubtle    bool   `json:"isSubtle,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Value       string `json:"value,omitempty"`
	IsMultiline bool   `json:"isMultiline,omitempty"`
	MaxLength   int    `json:"maxLength,omitempty"`
	URL         string `json:"url,omitempty"`
	Facts       []Fact `json:"facts,omitempty"`
}

// Fact is one row of a fact set.
type Fact struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// Action is a card button.
type Action struct {
	Type  string         `json:"type"`
	Title string         `json:"title"`
	URL   string         `json:"url,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

func newCard(body []Element, actions ...Action) Card {
	return Card{Schema: schemaURL, Type: "AdaptiveCard", Version: cardVersion, Body: body, Actions: actions}
}

func attach(card Card) transport.Attachment {
	return transport.Attachment{ContentType: transport.AdaptiveCardContentType, Content: card}
}

func heading(text string) Element {
	return Element{Type: "TextBlock", Text: text, Size: "Medium", Weight: "Bolder", Wrap: true}
}

func text(value string) Element {
	return Element{Type: "TextBlock", Text: value, Wrap: true}
}

// messageBack builds submit data that also posts messageText as the activity's message text.
func messageBack(messageText, displayText string, fields map[string]any) map[string]any {
	data := map[string]any{
		"msteams": map[string]any{
			"type":        "messageBack",
			"text":        messageText,
			"displayText": displayText,
		},
	}
	for k, v := range fields {
		data[k] = v
	}
	return data
}

func submit(title string, data map[string]any) Action {
	return Action{Type: "Action.Submit", Title: title, Data: data}
}

func openURL(title, url string) Action {
	return Action{Type: "Action.OpenUrl", Title: title, URL: url}
}

// EscalationEntry renders the ask-an-expert form, pre-populated from prefill when given.
func EscalationEntry(prefill *AskAnExpertPayload) transport.Attachment {
	var form AskAnExpertPayload
	if prefill != nil {
		form = *prefill
	}
	return attach(entryCard(form, ""))
}

// InvalidEscalationEntry re-renders the form with the title validation message.
func InvalidEscalationEntry(form AskAnExpertPayload) transport.Attachment {
	return attach(entryCard(form, TitleRequiredMessage))
}

func entryCard(form AskAnExpertPayload, validation string) Card {
	body := []Element{
		heading("Ask an expert"),
		text("Tell us what you need and an expert will follow up."),
		{Type: "TextBlock", Text: "Title", Weight: "Bolder"},
		{Type: "Input.Text", ID: "Title", Placeholder: "Short summary of your question", Value: form.Title, MaxLength: 50},
	}
	if validation != "" {
		body = append(body, Element{Type: "TextBlock", Text: validation, Color: "Attention", Wrap: true})
	}
	body = append(body,
		Element{Type: "TextBlock", Text: "Description", Weight: "Bolder"},
		Element{Type: "Input.Text", ID: "Description", Placeholder: "Add details", Value: form.Description, IsMultiline: true, MaxLength: 500},
	)
	return newCard(body, submit("Submit", messageBack(AskAnExpertSubmitText, "Ask an expert", map[string]any{
		"UserQuestion":        form.UserQuestion,
		"KnowledgeBaseAnswer": form.KnowledgeBaseAnswer,
	})))
}

// Acknowledgment renders the requester facing card for ticket with message on top.
// ts is the requester's local time of the triggering activity, when known.
func Acknowledgment(ticket domain.Ticket, message string, ts *time.Time) transport.Attachment {
	facts := []Fact{
		{Title: "Status", Value: statusText(ticket)},
		{Title: "Title", Value: ticket.Title},
	}
	if ticket.Description != "" {
		facts = append(facts, Fact{Title: "Description", Value: ticket.Description})
	}
	facts = append(facts, Fact{Title: "Created", Value: formatDate(ticket.DateCreated, ts)})
	if ticket.DateClosed != nil {
		facts = append(facts, Fact{Title: "Closed", Value: formatDate(*ticket.DateClosed, ts)})
	}
	body := []Element{
		text(message),
		{Type: "FactSet", Facts: facts},
	}
	return attach(newCard(body))
}

// SmeTicket renders the card that mirrors ticket in the expert channel. The actions
// offered depend on the ticket state.
func SmeTicket(ticket domain.Ticket, ts *time.Time) transport.Attachment {
	facts := []Fact{
		{Title: "Status", Value: statusText(ticket)},
		{Title: "Title", Value: ticket.Title},
	}
	if ticket.Description != "" {
		facts = append(facts, Fact{Title: "Description", Value: ticket.Description})
	}
	if ticket.UserQuestion != "" {
		facts = append(facts, Fact{Title: "Question", Value: ticket.UserQuestion})
	}
	if ticket.KnowledgeBaseAnswer != "" {
		facts = append(facts, Fact{Title: "Suggested answer", Value: ticket.KnowledgeBaseAnswer})
	}
	facts = append(facts, Fact{Title: "Created", Value: formatDate(ticket.DateCreated, ts)})
	if ticket.DateAssigned != nil {
		facts = append(facts, Fact{Title: "Assigned", Value: formatDate(*ticket.DateAssigned, ts)})
	}
	if ticket.DateClosed != nil {
		facts = append(facts, Fact{Title: "Closed", Value: formatDate(*ticket.DateClosed, ts)})
	}

	body := []Element{
		heading(fmt.Sprintf("%s is requesting support", ticket.RequesterName)),
		{Type: "FactSet", Facts: facts},
	}

	var actions []Action
	if ticket.RequesterObjectID != "" {
		actions = append(actions, openURL("Chat with "+ticket.RequesterName,
			"https://teams.microsoft.com/l/chat/0/0?users="+ticket.RequesterObjectID))
	}
	switch {
	case ticket.Status == domain.TicketStatusClosed:
		actions = append(actions, statusAction("Reopen", ticket.TicketID, domain.ReopenAction))
	case ticket.IsAssigned():
		actions = append(actions,
			statusAction("Unassign", ticket.TicketID, domain.ReopenAction),
			statusAction("Close", ticket.TicketID, domain.CloseAction))
	default:
		actions = append(actions,
			statusAction("Assign to me", ticket.TicketID, domain.AssignToSelfAction),
			statusAction("Close", ticket.TicketID, domain.CloseAction))
	}
	return attach(newCard(body, actions...))
}

func statusAction(title, ticketID, action string) Action {
	return submit(title, map[string]any{"ticketId": ticketID, "action": action})
}

// UnrecognizedInput renders the reply used when no answer was found for question.
func UnrecognizedInput(question string) transport.Attachment {
	body := []Element{text(UnrecognizedInputMessage)}
	return attach(newCard(body, submit("Ask an expert", messageBack(AskAnExpertText, "Ask an expert", map[string]any{
		"UserQuestion": question,
	}))))
}

// Response renders an answer card. model is the structured form of the answer when
// the answer text parsed as one.
func Response(answer knowledgebase.Answer, model *domain.AnswerModel, question string, payload ResponseCardPayload) transport.Attachment {
	var body []Element
	var actions []Action
	if model != nil {
		if model.Title != "" {
			body = append(body, heading(model.Title))
		}
		if model.Subtitle != "" {
			body = append(body, Element{Type: "TextBlock", Text: model.Subtitle, IsSubtle: true, Wrap: true})
		}
		if model.ImageURL != "" {
			body = append(body, Element{Type: "Image", URL: model.ImageURL})
		}
		if model.Description != "" {
			body = append(body, text(model.Description))
		}
		if model.RedirectionURL != "" {
			actions = append(actions, openURL("Read more", model.RedirectionURL))
		}
	}
	if len(body) == 0 {
		body = append(body, text(answer.Answer))
	}

	previous := domain.PreviousQuestion{ID: answer.ID, Questions: []string{question}, Answer: answer.Answer}
	for _, prompt := range answer.Prompts() {
		actions = append(actions, submit(prompt.DisplayText, messageBack(prompt.DisplayText, prompt.DisplayText, map[string]any{
			"IsPrompt":          true,
			"UserQuestion":      prompt.DisplayText,
			"PreviousQuestions": []domain.PreviousQuestion{previous},
		})))
	}

	userQuestion := question
	if strings.TrimSpace(payload.UserQuestion) != "" && payload.IsPrompt {
		userQuestion = payload.UserQuestion
	}
	actions = append(actions, submit("Ask an expert", messageBack(AskAnExpertText, "Ask an expert", map[string]any{
		"UserQuestion":        userQuestion,
		"KnowledgeBaseAnswer": answer.Answer,
	})))
	return attach(newCard(body, actions...))
}

// Welcome renders the greeting sent when the bot is added to a personal chat.
func Welcome(message string) transport.Attachment {
	if strings.TrimSpace(message) == "" {
		message = MemberAddedWelcomeMessage
	}
	return attach(newCard([]Element{heading("Welcome"), text(message)},
		submit("Ask an expert", messageBack(AskAnExpertText, "Ask an expert", nil))))
}

func statusText(ticket domain.Ticket) string {
	switch {
	case ticket.Status == domain.TicketStatusClosed:
		return "Closed"
	case ticket.IsAssigned() && ticket.AssignedToName != nil:
		return "Assigned to " + *ticket.AssignedToName
	default:
		return "Unassigned"
	}
}

// formatDate renders t in the zone of local when known, UTC otherwise.
func formatDate(t time.Time, local *time.Time) string {
	if local != nil {
		return t.In(local.Location()).Format(dateLayout)
	}
	return t.UTC().Format(dateLayout)
}
