package domain

import (
	"context"
	"time"
)

// SpeechCapture turns one spoken utterance into text. Listen starts a
// single-shot session and returns a channel that delivers CaptureStarted,
// exactly one CaptureResult or CaptureError, then CaptureEnded, and is then
// closed. Stop cancels the in-flight session, if any.
type SpeechCapture interface {
	Listen(ctx context.Context) (<-chan CaptureEvent, error)
	Stop()
}

// SpeechOutput speaks text. Fire and forget: it never blocks the caller and
// reports nothing back.
type SpeechOutput interface {
	Speak(text string)
}

// ContextExtractor turns an utterance plus the prior context into a new
// context, possibly carrying clarifying questions.
type ContextExtractor interface {
	ExtractContext(ctx context.Context, text string, previous *Context, clarificationCount int) (*Context, error)
}

// RecipeRetriever finds recipes matching a final context.
type RecipeRetriever interface {
	GetRecipes(ctx context.Context, c *Context) ([]Recipe, error)
}

// Notifier delivers messages to the user. Implementations can write to
// the terminal, or also speak them.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	NotifyUrgent(ctx context.Context, message string) error
}

// IntentParser converts typed input into structured intents.
type IntentParser interface {
	Parse(ctx context.Context, input string) (*Intent, error)
}

// RecipeSource is one provider of recipes on the backend. Implementations
// can be API-backed, LLM-generated or in-memory.
type RecipeSource interface {
	Name() string
	Search(ctx context.Context, c *Context) ([]Recipe, error)
}

// RecipeCache stores search results by query key. Get returns ErrNotFound
// on a miss or an expired entry.
type RecipeCache interface {
	Get(ctx context.Context, key string) ([]Recipe, error)
	Put(ctx context.Context, key string, recipes []Recipe, ttl time.Duration) error
}
