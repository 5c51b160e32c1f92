// Package extract turns recipe requests into search preferences on the
// backend. The language model does the reading; this package enforces the
// clarification budget and the merge rules around it.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/hammamikhairi/recipevoice/internal/domain"
	"github.com/hammamikhairi/recipevoice/internal/gpt"
	"github.com/hammamikhairi/recipevoice/internal/logger"
)

// Compile-time interface check.
var _ domain.ContextExtractor = (*Extractor)(nil)

// Canonical questions asked for a preference that is still missing.
const (
	QuestionDiet       = "What kind of diet are you following (vegetarian, vegan, or non-vegetarian)?"
	QuestionCuisine    = "What type of cuisine are you interested in?"
	QuestionAttributes = "Do you have any specific preferences for the dish (e.g., spicy, creamy, quick to make)?"
)

var canonicalQuestions = map[string]string{
	domain.FieldDietType:       QuestionDiet,
	domain.FieldCuisine:        QuestionCuisine,
	domain.FieldDishAttributes: QuestionAttributes,
}

// noPreference phrases all mean "any".
var noPreference = map[string]bool{
	"no preference":  true,
	"any":            true,
	"anything":       true,
	"whatever":       true,
	"doesn't matter": true,
	"doesnt matter":  true,
}

// Asker sends a prompt to a language model and decodes its JSON reply.
type Asker interface {
	AskJSON(ctx context.Context, prompt string, out any) error
}

var _ Asker = (*gpt.Agent)(nil)

// Option configures the Extractor.
type Option func(*Extractor)

// WithMaxClarifications overrides the clarification budget.
func WithMaxClarifications(n int) Option {
	return func(e *Extractor) { e.max = n }
}

// Extractor produces a Context from an utterance.
type Extractor struct {
	llm Asker
	max int
	log *logger.Logger
}

// New creates an extractor backed by the given model.
func New(llm Asker, log *logger.Logger, opts ...Option) *Extractor {
	e := &Extractor{llm: llm, max: domain.MaxClarifications, log: log}
	for _, o := range opts {
		o(e)
	}
	return e
}

// ExtractContext reads text against the previous context. Once the budget
// is spent, the previous context is finalized without asking the model:
// missing fields become "any" and no questions remain. Any failure wraps
// domain.ErrExtraction.
func (e *Extractor) ExtractContext(ctx context.Context, text string, prev *domain.Context, count int) (*domain.Context, error) {
	if count >= e.max {
		e.log.Info("extract: clarification budget spent (%d/%d), finalizing", count, e.max)
		return Finalize(prev), nil
	}

	prompt := gpt.ExtractFirstPrompt(text)
	if prev != nil {
		prompt = gpt.ExtractFollowUpPrompt(text, prev)
	}

	var reply domain.Context
	if err := e.llm.AskJSON(ctx, prompt, &reply); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExtraction, err)
	}

	out := &reply
	normalize(out)

	if prev != nil {
		merge(out, prev)
		out.ClarifyingQuestions = questionsFor(out)
	} else if len(nonEmpty(out.ClarifyingQuestions)) == 0 {
		out.ClarifyingQuestions = questionsFor(out)
	}

	fillAny(out)
	out.ClarifyingQuestions = nonEmpty(out.ClarifyingQuestions)

	e.log.Debug("extract: diet=%q cuisine=%q attrs=%q questions=%d",
		domain.Value(out.DietType), domain.Value(out.Cuisine), domain.Value(out.DishAttributes), len(out.ClarifyingQuestions))
	return out, nil
}

// Finalize returns a copy of prev with every missing field set to "any"
// and no questions. Safe on nil.
func Finalize(prev *domain.Context) *domain.Context {
	out := prev.Clone()
	if out == nil {
		out = &domain.Context{}
	}
	for _, name := range domain.ContextFields {
		f := out.Field(name)
		if missing(*f) || strings.EqualFold(strings.TrimSpace(**f), "null") {
			*f = domain.Str(domain.AnyValue)
		}
	}
	out.ClarifyingQuestions = []string{}
	return out
}

// normalize maps "null" strings to nil and no-preference phrases to "any".
func normalize(c *domain.Context) {
	for _, name := range domain.ContextFields {
		f := c.Field(name)
		if *f == nil {
			continue
		}
		v := strings.TrimSpace(**f)
		switch {
		case v == "" || strings.EqualFold(v, "null"):
			*f = nil
		case noPreference[strings.ToLower(v)]:
			*f = domain.Str(domain.AnyValue)
		default:
			*f = domain.Str(v)
		}
	}
}

// merge keeps previous values for fields the new reply left empty.
func merge(c, prev *domain.Context) {
	for _, name := range domain.ContextFields {
		f, p := c.Field(name), prev.Field(name)
		if *f == nil && !missing(*p) {
			*f = domain.Str(**p)
		}
	}
}

// questionsFor returns the canonical question of every missing field, in
// field order.
func questionsFor(c *domain.Context) []string {
	qs := []string{}
	for _, name := range domain.ContextFields {
		if missing(*c.Field(name)) {
			qs = append(qs, canonicalQuestions[name])
		}
	}
	return qs
}

func fillAny(c *domain.Context) {
	for _, name := range domain.ContextFields {
		if f := c.Field(name); missing(*f) {
			*f = domain.Str(domain.AnyValue)
		}
	}
}

func missing(p *string) bool {
	return p == nil || strings.TrimSpace(*p) == ""
}

// nonEmpty drops blank questions. Never returns nil.
func nonEmpty(qs []string) []string {
	out := []string{}
	for _, q := range qs {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}
