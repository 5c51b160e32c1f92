package gpt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hammamikhairi/recipevoice/internal/logger"
)

// ErrBadReply is returned when the model's answer holds no usable JSON.
var ErrBadReply = errors.New("gpt: reply is not valid JSON")

// Agent wraps a chat Completer with the JSON-in, JSON-out conventions the
// backend relies on. It is the single entry-point for LLM calls.
type Agent struct {
	client Completer
	log    *logger.Logger
}

// NewAgent creates an agent backed by the given completer.
func NewAgent(client Completer, log *logger.Logger) *Agent {
	return &Agent{client: client, log: log}
}

// ── Public API ───────────────────────────────────────────────────

// Ask sends a single user prompt under the JSON system prompt and returns
// the raw reply.
func (a *Agent) Ask(ctx context.Context, prompt string) (string, error) {
	return a.client.Chat(ctx, buildMessages(PromptSystemJSON, prompt))
}

// AskJSON sends prompt and decodes the JSON value found in the reply into
// out. Markdown fences and chatter around the JSON are tolerated.
func (a *Agent) AskJSON(ctx context.Context, prompt string, out any) error {
	raw, err := a.Ask(ctx, prompt)
	if err != nil {
		return err
	}
	if err := DecodeReply(raw, out); err != nil {
		a.log.Error("gpt: failed to parse reply: %v\nraw: %s", err, truncate(raw, 500))
		return err
	}
	return nil
}

// DecodeReply extracts the JSON value from a model reply and unmarshals
// it into out. The first attempt is the whole reply; when that fails, the
// outermost {...} or [...] span is tried.
func DecodeReply(raw string, out any) error {
	cleaned := stripCodeFence(raw)
	if err := json.Unmarshal([]byte(cleaned), out); err == nil {
		return nil
	}

	span, ok := extractJSON(cleaned)
	if !ok {
		return fmt.Errorf("%w: no JSON found", ErrBadReply)
	}
	if err := json.Unmarshal([]byte(span), out); err != nil {
		return fmt.Errorf("%w: %w", ErrBadReply, err)
	}
	return nil
}

// stripCodeFence removes ```json ... ``` wrappers that LLMs love to add.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		// Remove opening fence line.
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(strings.TrimPrefix(s, "```json"), "```")
		}
		// Remove closing fence.
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

// extractJSON returns the span from the first opening brace or bracket to
// the last matching closer.
func extractJSON(s string) (string, bool) {
	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return "", false
	}
	closer := "}"
	if s[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(s, closer)
	if end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// ── Message building ─────────────────────────────────────────────

func buildMessages(systemPrompt, userQuery string) []Message {
	return []Message{
		NewMessage(RoleSystem, systemPrompt),
		NewMessage(RoleUser, userQuery),
	}
}
