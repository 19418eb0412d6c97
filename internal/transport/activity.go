package transport

import (
	"encoding/json"
	"strings"
	"time"
)

// Activity types handled by the bot.
const (
	ActivityTypeMessage            = "message"
	ActivityTypeTyping             = "typing"
	ActivityTypeConversationUpdate = "conversationUpdate"
)

// AdaptiveCardContentType is the attachment content type for adaptive cards.
const AdaptiveCardContentType = "application/vnd.microsoft.card.adaptive"

// ChannelAccount identifies a user or bot on the channel.
type ChannelAccount struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	AADObjectID string `json:"aadObjectId,omitempty"`
}

// ConversationAccount identifies a conversation.
type ConversationAccount struct {
	ID               string `json:"id"`
	ConversationType string `json:"conversationType,omitempty"`
	TenantID         string `json:"tenantId,omitempty"`
	IsGroup          bool   `json:"isGroup,omitempty"`
	Name             string `json:"name,omitempty"`
}

// Attachment carries a rendered card.
type Attachment struct {
	ContentType string `json:"contentType"`
	Content     any    `json:"content,omitempty"`
}

// Activity is the subset of the channel activity schema the bot reads and writes.
type Activity struct {
	Type           string              `json:"type"`
	ID             string              `json:"id,omitempty"`
	Timestamp      *time.Time          `json:"timestamp,omitempty"`
	LocalTimestamp *time.Time          `json:"localTimestamp,omitempty"`
	ServiceURL     string              `json:"serviceUrl,omitempty"`
	ChannelID      string              `json:"channelId,omitempty"`
	From           ChannelAccount      `json:"from"`
	Recipient      ChannelAccount      `json:"recipient"`
	Conversation   ConversationAccount `json:"conversation"`
	ReplyToID      string              `json:"replyToId,omitempty"`
	Text           string              `json:"text,omitempty"`
	Summary        string              `json:"summary,omitempty"`
	Value          json.RawMessage     `json:"value,omitempty"`
	Attachments    []Attachment        `json:"attachments,omitempty"`
	MembersAdded   []ChannelAccount    `json:"membersAdded,omitempty"`
	ChannelData    json.RawMessage     `json:"channelData,omitempty"`
}

// HasValue reports whether the activity replies to an earlier message and carries a
// non-null value, even an empty object.
func (a *Activity) HasValue() bool {
	if a.ReplyToID == "" {
		return false
	}
	value := strings.TrimSpace(string(a.Value))
	return value != "" && value != "null"
}

// HasSubmission reports whether the activity is a card submission with content: a
// value that is not an empty object.
func (a *Activity) HasSubmission() bool {
	return a.HasValue() && strings.TrimSpace(string(a.Value)) != "{}"
}

// ConversationRef returns the address of the conversation the activity arrived on.
func (a *Activity) ConversationRef() ConversationRef {
	return ConversationRef{ServiceURL: a.ServiceURL, ConversationID: a.Conversation.ID}
}

// MessageActivity builds an outbound message with a single card.
func MessageActivity(card Attachment) *Activity {
	return &Activity{Type: ActivityTypeMessage, Attachments: []Attachment{card}}
}

// TextActivity builds an outbound plain text message.
func TextActivity(text string) *Activity {
	return &Activity{Type: ActivityTypeMessage, Text: text}
}

// ReplyTo addresses a as a reply to source and returns it.
func (a *Activity) ReplyTo(source *Activity) *Activity {
	a.From = source.Recipient
	a.Recipient = source.From
	a.Conversation = source.Conversation
	a.ReplyToID = source.ID
	a.ServiceURL = source.ServiceURL
	a.ChannelID = source.ChannelID
	return a
}

// TypingActivity builds a typing indicator replying to source.
func TypingActivity(source *Activity) *Activity {
	return (&Activity{Type: ActivityTypeTyping}).ReplyTo(source)
}
