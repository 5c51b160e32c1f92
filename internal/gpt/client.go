// Package gpt provides an OpenAI-compatible chat client and the prompt
// helpers the backend uses to extract search preferences, estimate
// nutrition and suggest blog recipes.
package gpt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hammamikhairi/recipevoice/internal/logger"
)

// ErrTruncated is returned when the model stopped at the token limit. A
// cut-off reply cannot hold a complete JSON document.
var ErrTruncated = errors.New("gpt: reply truncated at max_tokens")

// StatusError is a non-200 answer from the chat endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gpt: API %d %s: %s", e.Code, http.StatusText(e.Code), e.Body)
}

// Temporary reports whether the failure is on the provider side or a
// throttle, so asking again later may work.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// ── Wire types ───────────────────────────────────────────────────

// Role constants.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is a single chat-completion message. Every prompt here is
// plain text, so content is sent in its string form.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewMessage builds a message for role.
func NewMessage(role, text string) Message {
	return Message{Role: role, Content: text}
}

type responseFormat struct {
	Type string `json:"type"`
}

// payload is the request body sent to the chat-completions endpoint.
type payload struct {
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	Model          string          `json:"model,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type apiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// ── Client ───────────────────────────────────────────────────────

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithModel sets the model name. Azure deployments carry the model in the
// URL and leave it unset.
func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) ClientOption {
	return func(c *Client) { c.temperature = t }
}

// WithMaxTokens sets the response token limit.
func WithMaxTokens(n int) ClientOption {
	return func(c *Client) { c.maxTokens = n }
}

// WithBearerAuth sends the key as "Authorization: Bearer" (OpenAI)
// instead of the "api-key" header (Azure OpenAI).
func WithBearerAuth() ClientOption {
	return func(c *Client) { c.bearer = true }
}

// WithJSONMode asks the endpoint to only produce a JSON object. Not every
// deployment supports it.
func WithJSONMode() ClientOption {
	return func(c *Client) { c.jsonMode = true }
}

// WithHTTPTimeout sets the HTTP client timeout.
func WithHTTPTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// Completer is anything that can answer a chat conversation.
type Completer interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

var _ Completer = (*Client)(nil)

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	bearer      bool
	jsonMode    bool
	http        *http.Client
	log         *logger.Logger
}

// NewClient creates a chat client for endpoint, the full chat/completions
// URL (for Azure including deployment and api-version).
func NewClient(endpoint, apiKey string, log *logger.Logger, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:    endpoint,
		apiKey:      apiKey,
		temperature: 0.2,
		maxTokens:   800,
		http:        &http.Client{Timeout: 30 * time.Second},
		log:         log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Chat sends a chat-completion request and returns the assistant's reply.
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	body := payload{
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Model:       c.model,
	}
	if c.jsonMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("gpt: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("gpt: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.bearer {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	} else {
		req.Header.Set("api-key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("gpt: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gpt: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode, Body: truncate(strings.TrimSpace(string(raw)), 300)}
	}

	var result apiResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("gpt: unmarshal response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", errors.New("gpt: empty response (no choices)")
	}

	first := result.Choices[0]
	c.log.Debug("gpt: %d messages in %s, tokens in=%d out=%d finish=%s",
		len(messages), time.Since(start).Round(time.Millisecond),
		result.Usage.PromptTokens, result.Usage.CompletionTokens, first.FinishReason)

	if first.FinishReason == "length" {
		return "", fmt.Errorf("%w (%d tokens)", ErrTruncated, c.maxTokens)
	}
	return first.Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
