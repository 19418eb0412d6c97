package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spec-kit/expert-desk/internal/cards"
	"github.com/spec-kit/expert-desk/internal/domain"
	"github.com/spec-kit/expert-desk/internal/transport"
)

// Event is an inbound message classified by surface and payload shape. The set of
// implementations is closed.
type Event interface {
	isEvent()
}

// TextMessage is free text that is not a reserved keyword.
type TextMessage struct {
	Surface domain.Surface
	Text    string
}

// AskAnExpertPrefill asks for the escalation form. Prefill is nil when the user typed
// the keyword and set when the request came from an answer card.
type AskAnExpertPrefill struct {
	Prefill *cards.AskAnExpertPayload
}

// AskAnExpertSubmit is a submitted escalation form.
type AskAnExpertSubmit struct {
	Payload cards.AskAnExpertPayload
}

// PromptFollowUp is a follow-up prompt picked on an answer card.
type PromptFollowUp struct {
	Text    string
	Payload cards.ResponseCardPayload
}

// ChangeStatusSubmit is an action taken on an SME ticket card.
type ChangeStatusSubmit struct {
	Payload cards.ChangeTicketStatusPayload
}

func (TextMessage) isEvent()        {}
func (AskAnExpertPrefill) isEvent() {}
func (AskAnExpertSubmit) isEvent()  {}
func (PromptFollowUp) isEvent()     {}
func (ChangeStatusSubmit) isEvent() {}

// UnsupportedSurfaceError is returned for conversation types the bot does not serve.
type UnsupportedSurfaceError struct {
	ConversationType string
}

func (e *UnsupportedSurfaceError) Error() string {
	return fmt.Sprintf("unsupported conversation type %q", e.ConversationType)
}

// UnrecognizedSubmissionError is returned for card submissions of unknown shape.
type UnrecognizedSubmissionError struct {
	Surface domain.Surface
	Text    string
	Err     error
}

func (e *UnrecognizedSubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unrecognized %s submission %q: %v", e.Surface, e.Text, e.Err)
	}
	return fmt.Sprintf("unrecognized %s submission %q", e.Surface, e.Text)
}

func (e *UnrecognizedSubmissionError) Unwrap() error {
	return e.Err
}

// DecodeEvent classifies an inbound message activity.
func DecodeEvent(activity *transport.Activity) (Event, error) {
	surface, ok := domain.ParseSurface(activity.Conversation.ConversationType)
	if !ok {
		return nil, &UnsupportedSurfaceError{ConversationType: activity.Conversation.ConversationType}
	}
	normalized := strings.ToLower(strings.TrimSpace(activity.Text))

	switch surface {
	case domain.SurfacePersonal:
		if activity.HasSubmission() {
			return decodePersonalSubmission(activity, normalized)
		}
		if normalized == cards.AskAnExpertText {
			return AskAnExpertPrefill{}, nil
		}
		return TextMessage{Surface: surface, Text: activity.Text}, nil
	default:
		if !activity.HasValue() {
			return TextMessage{Surface: surface, Text: activity.Text}, nil
		}
		// A value without a ticket id still goes to the status flow, which answers
		// with the not found notice.
		var payload cards.ChangeTicketStatusPayload
		if err := json.Unmarshal(activity.Value, &payload); err != nil {
			return nil, &UnrecognizedSubmissionError{Surface: surface, Text: activity.Text, Err: err}
		}
		payload.TicketID = strings.TrimSpace(payload.TicketID)
		return ChangeStatusSubmit{Payload: payload}, nil
	}
}

func decodePersonalSubmission(activity *transport.Activity, discriminator string) (Event, error) {
	unrecognized := func(err error) error {
		return &UnrecognizedSubmissionError{Surface: domain.SurfacePersonal, Text: activity.Text, Err: err}
	}

	switch discriminator {
	case cards.AskAnExpertText:
		var payload cards.AskAnExpertPayload
		if err := json.Unmarshal(activity.Value, &payload); err != nil {
			return nil, unrecognized(err)
		}
		payload.Description = payload.UserQuestion
		return AskAnExpertPrefill{Prefill: &payload}, nil
	case cards.AskAnExpertSubmitText:
		var payload cards.AskAnExpertPayload
		if err := json.Unmarshal(activity.Value, &payload); err != nil {
			return nil, unrecognized(err)
		}
		return AskAnExpertSubmit{Payload: payload}, nil
	default:
		var payload cards.ResponseCardPayload
		if err := json.Unmarshal(activity.Value, &payload); err != nil {
			return nil, unrecognized(err)
		}
		if !payload.IsPrompt {
			return nil, unrecognized(nil)
		}
		return PromptFollowUp{Text: activity.Text, Payload: payload}, nil
	}
}
