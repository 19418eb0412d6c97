package knowledgebase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// NoMatchID is the answer id the service returns when nothing in the knowledge base fits.
const NoMatchID = -1

// Query is one question sent to the knowledge base.
type Query struct {
	Question          string
	IsFollowUp        bool
	PreviousQnAID     string
	PreviousUserQuery string
}

// Prompt is a follow-up suggestion attached to an answer.
type Prompt struct {
	DisplayOrder int    `json:"displayOrder"`
	QnAID        int    `json:"qnaId"`
	DisplayText  string `json:"displayText"`
}

// AnswerContext holds the prompts of an answer.
type AnswerContext struct {
	IsContextOnly bool     `json:"isContextOnly"`
	Prompts       []Prompt `json:"prompts"`
}

// Answer is one ranked candidate.
type Answer struct {
	ID        int            `json:"id"`
	Answer    string         `json:"answer"`
	Questions []string       `json:"questions"`
	Score     float64        `json:"score"`
	Source    string         `json:"source"`
	Context   *AnswerContext `json:"context,omitempty"`
}

// IsNoMatch reports whether the answer is the no-match sentinel.
func (a Answer) IsNoMatch() bool {
	return a.ID == NoMatchID
}

// Prompts returns the follow-up prompts ordered as the service returned them.
func (a Answer) Prompts() []Prompt {
	if a.Context == nil {
		return nil
	}
	return a.Context.Prompts
}

// Result is the ranked answer list.
type Result struct {
	Answers []Answer `json:"answers"`
}

// Top returns the best answer, or false when the list is empty.
func (r *Result) Top() (Answer, bool) {
	if r == nil || len(r.Answers) == 0 {
		return Answer{}, false
	}
	return r.Answers[0], true
}

// Client queries the knowledge base.
type Client interface {
	GenerateAnswer(ctx context.Context, query Query) (*Result, error)
}

// Config configures the HTTP client.
type Config struct {
	Endpoint       string
	KnowledgeBase  string
	EndpointKey    string
	ScoreThreshold float64
	Timeout        time.Duration
}

type httpClient struct {
	cfg Config
}

// NewHTTPClient builds a client for the generateAnswer endpoint.
func NewHTTPClient(cfg Config) (Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" || strings.TrimSpace(cfg.KnowledgeBase) == "" {
		return nil, errors.New("knowledge base endpoint and id are required")
	}
	return &httpClient{cfg: cfg}, nil
}

type generateAnswerContext struct {
	PreviousQnAID     string `json:"previousQnAId,omitempty"`
	PreviousUserQuery string `json:"previousUserQuery,omitempty"`
}

type generateAnswerRequest struct {
	Question       string                 `json:"question"`
	Top            int                    `json:"top"`
	ScoreThreshold float64                `json:"scoreThreshold,omitempty"`
	IsTest         bool                   `json:"isTest"`
	Context        *generateAnswerContext `json:"context,omitempty"`
}

// GenerateAnswer asks for the best answer. A ctx deadline shortens the configured timeout.
func (c *httpClient) GenerateAnswer(ctx context.Context, query Query) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body := generateAnswerRequest{
		Question:       query.Question,
		Top:            1,
		ScoreThreshold: c.cfg.ScoreThreshold,
	}
	if query.IsFollowUp && query.PreviousQnAID != "" {
		body.Context = &generateAnswerContext{
			PreviousQnAID:     query.PreviousQnAID,
			PreviousUserQuery: query.PreviousUserQuery,
		}
	}

	endpoint := fmt.Sprintf("%s/qnamaker/knowledgebases/%s/generateAnswer",
		strings.TrimRight(c.cfg.Endpoint, "/"), c.cfg.KnowledgeBase)
	agent := fiber.Post(endpoint)
	agent.Set(fiber.HeaderAuthorization, "EndpointKey "+c.cfg.EndpointKey)
	agent.JSON(body)
	timeout := c.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); timeout <= 0 || remaining < timeout {
			timeout = max(remaining, time.Millisecond)
		}
	}
	if timeout > 0 {
		agent.Timeout(timeout)
	}

	status, respBody, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("generate answer: %w", errors.Join(errs...))
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("generate answer: status %d: %s", status, string(respBody))
	}

	var result Result
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode answer: %w", err)
	}
	return &result, nil
}
