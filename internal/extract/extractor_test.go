package extract

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/recipevoice/internal/domain"
	"github.com/hammamikhairi/recipevoice/internal/gpt"
	"github.com/hammamikhairi/recipevoice/internal/logger"
)

// fakeLLM answers every prompt with a canned reply, decoded the way the
// real agent decodes it.
type fakeLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (f *fakeLLM) AskJSON(_ context.Context, prompt string, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return f.err
	}
	return gpt.DecodeReply(f.reply, out)
}

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func newTestExtractor(reply string) (*Extractor, *fakeLLM) {
	llm := &fakeLLM{reply: reply}
	return New(llm, logger.New(logger.LevelOff, nil)), llm
}

func TestExtractContext_FirstTurn(t *testing.T) {
	tests := []struct {
		name          string
		reply         string
		wantDiet      string
		wantCuisine   string
		wantAttrs     string
		wantQuestions []string
	}{
		{
			name:          "model questions kept",
			reply:         `{"diet_type":"vegetarian","cuisine":null,"dish_attributes":null,"clarifying_questions":["Which cuisine?"]}`,
			wantDiet:      "vegetarian",
			wantCuisine:   domain.AnyValue,
			wantAttrs:     domain.AnyValue,
			wantQuestions: []string{"Which cuisine?"},
		},
		{
			name:          "questions derived when model gave none",
			reply:         `{"diet_type":"null","cuisine":"indian","dish_attributes":null,"clarifying_questions":[]}`,
			wantDiet:      domain.AnyValue,
			wantCuisine:   "indian",
			wantAttrs:     domain.AnyValue,
			wantQuestions: []string{QuestionDiet, QuestionAttributes},
		},
		{
			name:          "no preference phrases",
			reply:         "```json\n{\"diet_type\":\"Whatever\",\"cuisine\":\"no preference\",\"dish_attributes\":\"spicy\",\"clarifying_questions\":[]}\n```",
			wantDiet:      domain.AnyValue,
			wantCuisine:   domain.AnyValue,
			wantAttrs:     "spicy",
			wantQuestions: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, llm := newTestExtractor(tt.reply)

			got, err := e.ExtractContext(context.Background(), "find me dinner recipes", nil, 0)
			require.NoError(t, err)

			assert.Equal(t, tt.wantDiet, domain.Value(got.DietType))
			assert.Equal(t, tt.wantCuisine, domain.Value(got.Cuisine))
			assert.Equal(t, tt.wantAttrs, domain.Value(got.DishAttributes))
			assert.Equal(t, tt.wantQuestions, got.ClarifyingQuestions)
			assert.Contains(t, llm.prompts[0], `"find me dinner recipes"`)
		})
	}
}

func TestExtractContext_FollowUpMerge(t *testing.T) {
	e, llm := newTestExtractor(`{"diet_type":null,"cuisine":"italian","dish_attributes":null,"clarifying_questions":["ignored"]}`)
	prev := &domain.Context{DietType: domain.Str("vegan"), ClarifyingQuestions: []string{QuestionCuisine}}

	got, err := e.ExtractContext(context.Background(), "italian", prev, 1)
	require.NoError(t, err)

	assert.Equal(t, "vegan", domain.Value(got.DietType), "previous value kept")
	assert.Equal(t, "italian", domain.Value(got.Cuisine), "new value used")
	assert.Equal(t, domain.AnyValue, domain.Value(got.DishAttributes))
	assert.Equal(t, []string{QuestionAttributes}, got.ClarifyingQuestions, "questions recomputed from missing fields")
	assert.Contains(t, llm.prompts[0], "Diet type: vegan")

	// The previous context is not modified.
	assert.Nil(t, prev.Cuisine)
}

func TestExtractContext_FollowUpComplete(t *testing.T) {
	e, _ := newTestExtractor(`{"diet_type":"vegan","cuisine":"thai","dish_attributes":"creamy","clarifying_questions":[]}`)
	prev := &domain.Context{DietType: domain.Str("vegan")}

	got, err := e.ExtractContext(context.Background(), "thai and creamy", prev, 2)
	require.NoError(t, err)
	assert.Empty(t, got.ClarifyingQuestions)
	assert.NotNil(t, got.ClarifyingQuestions)
}

func TestExtractContext_BudgetSpent(t *testing.T) {
	e, llm := newTestExtractor(`{"clarifying_questions":["should not be asked"]}`)
	prev := &domain.Context{
		DietType:            domain.Str("vegetarian"),
		Cuisine:             domain.Str("null"),
		ClarifyingQuestions: []string{QuestionCuisine},
	}

	got, err := e.ExtractContext(context.Background(), "still not sure", prev, domain.MaxClarifications)
	require.NoError(t, err)

	assert.Equal(t, 0, llm.calls(), "model must not be consulted once the budget is spent")
	assert.Equal(t, "vegetarian", domain.Value(got.DietType))
	assert.Equal(t, domain.AnyValue, domain.Value(got.Cuisine))
	assert.Equal(t, domain.AnyValue, domain.Value(got.DishAttributes))
	assert.Empty(t, got.ClarifyingQuestions)
}

func TestExtractContext_BudgetSpentWithoutPrevious(t *testing.T) {
	e, _ := newTestExtractor("")
	got, err := e.ExtractContext(context.Background(), "x", nil, 5)
	require.NoError(t, err)
	for _, name := range domain.ContextFields {
		assert.Equal(t, domain.AnyValue, domain.Value(*got.Field(name)), name)
	}
}

func TestExtractContext_Failures(t *testing.T) {
	t.Run("model error", func(t *testing.T) {
		e, llm := newTestExtractor("")
		llm.err = errors.New("quota exceeded")
		_, err := e.ExtractContext(context.Background(), "x", nil, 0)
		assert.ErrorIs(t, err, domain.ErrExtraction)
		assert.ErrorContains(t, err, "quota exceeded")
	})

	t.Run("unparseable reply", func(t *testing.T) {
		e, _ := newTestExtractor("Sorry, I can't do that.")
		_, err := e.ExtractContext(context.Background(), "x", nil, 0)
		assert.ErrorIs(t, err, domain.ErrExtraction)
		assert.ErrorIs(t, err, gpt.ErrBadReply)
	})
}

func TestWithMaxClarifications(t *testing.T) {
	llm := &fakeLLM{reply: `{}`}
	e := New(llm, logger.New(logger.LevelOff, nil), WithMaxClarifications(1))

	_, err := e.ExtractContext(context.Background(), "x", &domain.Context{}, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, llm.calls())
}
