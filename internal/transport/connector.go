package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ConversationRef addresses a conversation on a connector service.
type ConversationRef struct {
	ServiceURL     string
	ConversationID string
}

// MessageRef addresses one message inside a conversation.
type MessageRef struct {
	ConversationRef
	ActivityID string
}

// ChannelRef addresses a team channel in which new threads are started.
type ChannelRef struct {
	ServiceURL string
	TenantID   string
	ChannelID  string
}

// ThreadRef identifies a thread created in a channel and its root message.
type ThreadRef struct {
	ConversationID string
	ActivityID     string
	ServiceURL     string
}

// Connector delivers activities to conversations.
type Connector interface {
	Send(ctx context.Context, ref ConversationRef, activity *Activity) (MessageRef, error)
	Update(ctx context.Context, ref MessageRef, activity *Activity) (MessageRef, error)
	CreateThread(ctx context.Context, ref ChannelRef, activity *Activity) (ThreadRef, error)
}

// Error reports a failed connector call.
type Error struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connector %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("connector %s: status %d: %s", e.Op, e.Status, e.Body)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPConnector talks to the connector REST API.
type HTTPConnector struct {
	tokens  TokenSource
	timeout time.Duration
	logger  *zap.Logger
}

// NewHTTPConnector builds a connector client. timeout bounds each call; zero means no limit.
func NewHTTPConnector(tokens TokenSource, timeout time.Duration, logger *zap.Logger) *HTTPConnector {
	return &HTTPConnector{tokens: tokens, timeout: timeout, logger: logger}
}

type resourceResponse struct {
	ID         string `json:"id"`
	ActivityID string `json:"activityId"`
	ServiceURL string `json:"serviceUrl"`
}

type conversationParameters struct {
	IsGroup     bool            `json:"isGroup"`
	TenantID    string          `json:"tenantId,omitempty"`
	ChannelData json.RawMessage `json:"channelData,omitempty"`
	Activity    *Activity       `json:"activity"`
}

func (c *HTTPConnector) Send(ctx context.Context, ref ConversationRef, activity *Activity) (MessageRef, error) {
	endpoint := fmt.Sprintf("%s/v3/conversations/%s/activities",
		strings.TrimRight(ref.ServiceURL, "/"), url.PathEscape(ref.ConversationID))
	activity.Conversation.ID = ref.ConversationID

	var resp resourceResponse
	if err := c.do(ctx, "send", fiber.MethodPost, endpoint, activity, &resp); err != nil {
		return MessageRef{}, err
	}
	return MessageRef{ConversationRef: ref, ActivityID: resp.ID}, nil
}

func (c *HTTPConnector) Update(ctx context.Context, ref MessageRef, activity *Activity) (MessageRef, error) {
	endpoint := fmt.Sprintf("%s/v3/conversations/%s/activities/%s",
		strings.TrimRight(ref.ServiceURL, "/"), url.PathEscape(ref.ConversationID), url.PathEscape(ref.ActivityID))
	activity.ID = ref.ActivityID
	activity.Conversation.ID = ref.ConversationID

	var resp resourceResponse
	if err := c.do(ctx, "update", fiber.MethodPut, endpoint, activity, &resp); err != nil {
		return MessageRef{}, err
	}
	if resp.ID != "" {
		ref.ActivityID = resp.ID
	}
	return ref, nil
}

func (c *HTTPConnector) CreateThread(ctx context.Context, ref ChannelRef, activity *Activity) (ThreadRef, error) {
	channelData, err := json.Marshal(map[string]any{
		"tenant":  map[string]string{"id": ref.TenantID},
		"channel": map[string]string{"id": ref.ChannelID},
	})
	if err != nil {
		return ThreadRef{}, &Error{Op: "create thread", Err: err}
	}
	params := conversationParameters{
		IsGroup:     true,
		TenantID:    ref.TenantID,
		ChannelData: channelData,
		Activity:    activity,
	}
	endpoint := strings.TrimRight(ref.ServiceURL, "/") + "/v3/conversations"

	var resp resourceResponse
	if err := c.do(ctx, "create thread", fiber.MethodPost, endpoint, params, &resp); err != nil {
		return ThreadRef{}, err
	}
	thread := ThreadRef{
		ConversationID: resp.ID,
		ActivityID:     resp.ActivityID,
		ServiceURL:     resp.ServiceURL,
	}
	if thread.ActivityID == "" {
		thread.ActivityID = MessageIDFromConversationID(resp.ID)
	}
	if thread.ServiceURL == "" {
		thread.ServiceURL = ref.ServiceURL
	}
	if thread.ConversationID == "" || thread.ActivityID == "" {
		return thread, &Error{Op: "create thread", Err: fmt.Errorf("incomplete thread reference %q", resp.ID)}
	}
	return thread, nil
}

// do performs one call. The fiber agent cannot be interrupted once it is sending, so a
// ctx deadline is applied as the agent timeout; cancellation without a deadline is only
// observed before the call starts.
func (c *HTTPConnector) do(ctx context.Context, op, method, endpoint string, body, out any) error {
	if err := ctx.Err(); err != nil {
		return &Error{Op: op, Err: err}
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return &Error{Op: op, Err: fmt.Errorf("token: %w", err)}
	}

	var agent *fiber.Agent
	switch method {
	case fiber.MethodPut:
		agent = fiber.Put(endpoint)
	default:
		agent = fiber.Post(endpoint)
	}
	agent.Set(fiber.HeaderAuthorization, "Bearer "+token)
	agent.JSON(body)
	if timeout := callTimeout(ctx, c.timeout); timeout > 0 {
		agent.Timeout(timeout)
	}

	status, respBody, errs := agent.Bytes()
	if len(errs) > 0 {
		return &Error{Op: op, Err: errors.Join(errs...)}
	}
	if status < 200 || status > 299 {
		return &Error{Op: op, Status: status, Body: string(respBody)}
	}
	c.logger.Debug("connector call", zap.String("op", op), zap.Int("status", status))
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &Error{Op: op, Status: status, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

var messageIDSuffix = regexp.MustCompile(`messageid=(\d+)$`)

// MessageIDFromConversationID recovers the root message id from a channel thread
// conversation id of the form "19:...@thread.skype;messageid=1234".
func MessageIDFromConversationID(conversationID string) string {
	m := messageIDSuffix.FindStringSubmatch(conversationID)
	if len(m) != 2 {
		return ""
	}
	return m[1]
}

// callTimeout is the smaller of the configured timeout and the time left on ctx.
func callTimeout(ctx context.Context, configured time.Duration) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return configured
	}
	remaining := time.Until(deadline)
	if remaining <= 0 {
		remaining = time.Millisecond
	}
	if configured <= 0 || remaining < configured {
		return remaining
	}
	return configured
}
