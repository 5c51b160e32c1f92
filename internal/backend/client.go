// Package backend is the client for the context extraction and recipe
// retrieval service. Every failure mode of a call (transport, status,
// decoding, contract) is reported as one wrapped domain error so callers
// only need errors.Is.
package backend

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

	"github.com/hammamikhairi/recipevoice/internal/domain"
	"github.com/hammamikhairi/recipevoice/internal/logger"
	"github.com/hammamikhairi/recipevoice/internal/schema"
)

// Compile-time interface checks.
var (
	_ domain.ContextExtractor = (*Client)(nil)
	_ domain.RecipeRetriever  = (*Client)(nil)
)

// Endpoint paths.
const (
	PathExtractContext = "/extract_context"
	PathGetRecipes     = "/get_recipes"
)

// HeaderSessionID carries the conversation ID for server-side log
// correlation.
const HeaderSessionID = "X-Session-ID"

// maxBody caps how much of a response is read.
const maxBody = 4 << 20

// ── Wire types ───────────────────────────────────────────────────

// ExtractRequest is the body of POST /extract_context.
type ExtractRequest struct {
	Text               string          `json:"text"`
	PreviousContext    *domain.Context `json:"previous_context"`
	ClarificationCount int             `json:"clarification_count"`
}

// ErrorResponse is the error envelope the service returns on failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ── Client ───────────────────────────────────────────────────────

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPTimeout sets the per-request timeout. Zero disables it and leaves
// only the caller's context.
func WithHTTPTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithSessionID tags every request with a conversation ID.
func WithSessionID(id string) ClientOption {
	return func(c *Client) { c.sessionID = id }
}

// Client talks to the recipe backend over JSON/HTTP.
type Client struct {
	baseURL   string
	sessionID string
	http      *http.Client
	log       *logger.Logger
}

// NewClient creates a backend client for the service at baseURL
// (e.g. "http://localhost:5000").
func NewClient(baseURL string, log *logger.Logger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ExtractContext sends the utterance, the previous context (nil on the
// first turn) and the clarification count, and returns the new context.
// Any failure wraps domain.ErrExtraction.
func (c *Client) ExtractContext(ctx context.Context, text string, previous *domain.Context, clarificationCount int) (*domain.Context, error) {
	body := ExtractRequest{
		Text:               text,
		PreviousContext:    previous,
		ClarificationCount: clarificationCount,
	}

	raw, err := c.post(ctx, PathExtractContext, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExtraction, err)
	}
	if err := schema.Validate(schema.Context, raw); err != nil {
		return nil, fmt.Errorf("%w: unexpected response: %w", domain.ErrExtraction, err)
	}

	var out domain.Context
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", domain.ErrExtraction, err)
	}

	c.log.Debug("backend: extracted context (diet=%q, cuisine=%q, attrs=%q, questions=%d)",
		domain.Value(out.DietType), domain.Value(out.Cuisine), domain.Value(out.DishAttributes), len(out.ClarifyingQuestions))
	return &out, nil
}

// GetRecipes sends a final context and returns the matching recipes.
// Nutrition values that break the invariants are dropped rather than
// failing the whole call. Any failure wraps domain.ErrRetrieval.
func (c *Client) GetRecipes(ctx context.Context, rc *domain.Context) ([]domain.Recipe, error) {
	if rc == nil {
		rc = &domain.Context{}
	}

	raw, err := c.post(ctx, PathGetRecipes, rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRetrieval, err)
	}
	if err := schema.Validate(schema.Recipes, raw); err != nil {
		return nil, fmt.Errorf("%w: unexpected response: %w", domain.ErrRetrieval, err)
	}

	var recipes []domain.Recipe
	if err := json.Unmarshal(raw, &recipes); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", domain.ErrRetrieval, err)
	}

	for i := range recipes {
		if n := recipes[i].Sanitize(); n > 0 {
			c.log.Warn("backend: dropped %d invalid nutrition values from %q", n, recipes[i].Title)
		}
	}

	c.log.Debug("backend: got %d recipes", len(recipes))
	return recipes, nil
}

// post marshals body, POSTs it to path and returns the raw 2xx response.
func (c *Client) post(ctx context.Context, path string, body any) ([]byte, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.sessionID != "" {
		req.Header.Set(HeaderSessionID, c.sessionID)
	}

	c.log.Debug("backend: POST %s (%d bytes)", url, len(jsonData))
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, fmt.Errorf("%s: %w", path, domain.ErrTimeout)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.log.Debug("backend: %s -> %s in %s", path, resp.Status, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.Status, respBody)
	}
	return respBody, nil
}

// statusError builds the error for a non-2xx response, preferring the
// service's own error message when it sent one.
func statusError(status string, body []byte) error {
	var envelope ErrorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return fmt.Errorf("server returned %s: %s", status, envelope.Error)
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Errorf("server returned %s", status)
	}
	return fmt.Errorf("server returned %s: %s", status, truncate(msg, 200))
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
