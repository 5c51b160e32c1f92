package recipe

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/hammamikhairi/recipevoice/internal/domain"
	"github.com/hammamikhairi/recipevoice/internal/gpt"
	"github.com/hammamikhairi/recipevoice/internal/logger"
)

// Compile-time interface check.
var _ domain.RecipeSource = (*BlogSource)(nil)

// Asker sends a prompt to a language model and decodes its JSON reply.
type Asker interface {
	AskJSON(ctx context.Context, prompt string, out any) error
}

var _ Asker = (*gpt.Agent)(nil)

type blogSuggestion struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// blogSuggestions decodes either {"recipes": [...]} or a bare array. JSON
// mode endpoints can only answer with an object.
type blogSuggestions []blogSuggestion

func (b *blogSuggestions) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Recipes []blogSuggestion `json:"recipes"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil {
		*b = wrapped.Recipes
		return nil
	}
	var list []blogSuggestion
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*b = list
	return nil
}

// BlogSource asks the language model for food blog recipes and estimates
// their nutrition from the suggested description.
type BlogSource struct {
	llm      Asker
	analyzer Analyzer
	limit    int
	log      *logger.Logger
}

// NewBlogSource creates the source.
func NewBlogSource(llm Asker, analyzer Analyzer, log *logger.Logger) *BlogSource {
	return &BlogSource{llm: llm, analyzer: analyzer, limit: 3, log: log}
}

// Name implements domain.RecipeSource.
func (s *BlogSource) Name() string { return "blog" }

// SetLimit caps how many recipes a search returns. Call it before the
// source is shared; values below one are ignored.
func (s *BlogSource) SetLimit(n int) {
	if n > 0 {
		s.limit = n
	}
}

// Search asks for s.limit recipes. Suggestions without a title or URL are
// dropped.
func (s *BlogSource) Search(ctx context.Context, c *domain.Context) ([]domain.Recipe, error) {
	phrase := SearchPhrase(c)

	var suggestions blogSuggestions
	if err := s.llm.AskJSON(ctx, gpt.BlogSearchPrompt(s.limit, phrase), &suggestions); err != nil {
		return nil, fmt.Errorf("blog search: %w", err)
	}
	s.log.Debug("blog: %d suggestions for %q", len(suggestions), phrase)

	out := make([]domain.Recipe, 0, len(suggestions))
	for _, sg := range suggestions {
		if strings.TrimSpace(sg.Title) == "" || strings.TrimSpace(sg.URL) == "" {
			continue
		}
		if len(out) == s.limit {
			break
		}
		out = append(out, domain.Recipe{
			Title:       strings.TrimSpace(sg.Title),
			Description: strings.TrimSpace(sg.Description),
			SourceURL:   strings.TrimSpace(sg.URL),
			Source:      domain.SourceBlog,
		})
	}

	var wg sync.WaitGroup
	for i := range out {
		wg.Add(1)
		go func(r *domain.Recipe) {
			defer wg.Done()
			s.analyzer.Analyze(ctx, r.Title+"\n"+r.Description).Apply(r)
		}(&out[i])
	}
	wg.Wait()
	return out, nil
}
