// Package recipe provides recipe source implementations and the
// aggregator that combines them.
package recipe

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/hammamikhairi/recipevoice/internal/domain"
	"github.com/hammamikhairi/recipevoice/internal/logger"
)

// Compile-time interface check.
var _ domain.RecipeSource = (*MemorySource)(nil)

// entry is a built-in recipe plus the tags it is searchable by.
type entry struct {
	recipe domain.Recipe
	tags   []string
}

// MemorySource holds sample recipes in memory. It needs no API keys, so it
// keeps the backend useful offline. Safe for concurrent reads.
type MemorySource struct {
	mu      sync.RWMutex
	entries []entry
	limit   int
	log     *logger.Logger
}

// NewMemorySource creates a recipe source preloaded with built-in recipes.
func NewMemorySource(log *logger.Logger) *MemorySource {
	src := &MemorySource{limit: 3, log: log}
	src.seed()
	return src
}

// Name implements domain.RecipeSource.
func (s *MemorySource) Name() string { return "memory" }

// SetLimit caps how many recipes a search returns. Call it before the
// source is shared; values below one are ignored.
func (s *MemorySource) SetLimit(n int) {
	if n > 0 {
		s.limit = n
	}
}

// Add registers another recipe under the given tags.
func (s *MemorySource) Add(r domain.Recipe, tags ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry{recipe: r, tags: tags})
}

// List returns every recipe, sorted by title.
func (s *MemorySource) List(ctx context.Context) ([]domain.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.log.Debug("listing all recipes, count=%d", len(s.entries))

	out := make([]domain.Recipe, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.recipe)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

// Search returns up to limit recipes (three by default) matching every known preference of c.
// An all-"any" context matches everything.
func (s *MemorySource) Search(ctx context.Context, c *domain.Context) ([]domain.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	terms := c.Terms()
	s.log.Debug("memory: searching for %v", terms)

	out := []domain.Recipe{}
	for _, e := range s.entries {
		if len(out) == s.limit {
			break
		}
		if s.matches(e, terms) {
			out = append(out, e.recipe)
		}
	}
	return out, nil
}

// matches reports whether every term hits a word of the title, description
// or tags. A term hits when any of its significant words does.
func (s *MemorySource) matches(e entry, terms []string) bool {
	words := wordSet(e.recipe.Title + " " + e.recipe.Description + " " + strings.Join(e.tags, " "))
	for _, term := range terms {
		if !termHits(words, term) {
			return false
		}
	}
	return true
}

func termHits(words map[string]bool, term string) bool {
	for w := range wordSet(term) {
		if len(w) < 3 || stopWords[w] {
			continue
		}
		if words[w] || words[strings.TrimSuffix(w, "s")] || words[w+"s"] {
			return true
		}
	}
	return false
}

// wordSet lowercases s and splits it on anything but letters, digits and
// hyphens, so "non-veg" stays one word.
func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	}) {
		set[w] = true
	}
	return set
}

var stopWords = map[string]bool{"and": true, "the": true, "with": true, "for": true, "food": true, "dish": true}

// seed populates the source with built-in recipes.
func (s *MemorySource) seed() {
	g := "g"
	serving := func(amount float64) *domain.ServingSize {
		return &domain.ServingSize{Amount: domain.Float(amount), Unit: &g}
	}
	facts := func(cal, protein, carbs, fat float64) map[string]*float64 {
		return map[string]*float64{
			domain.NutrientCalories: domain.Float(cal),
			domain.NutrientProtein:  domain.Float(protein),
			domain.NutrientCarbs:    domain.Float(carbs),
			domain.NutrientFat:      domain.Float(fat),
		}
	}

	s.entries = []entry{
		{
			recipe: domain.Recipe{
				Title:       "Vegetable Stir Fry",
				Description: "Fast, crunchy and customizable. The key is a screaming hot pan and not overcrowding it.",
				Source:      domain.SourceSample,
				Nutrition:   facts(310, 9, 42, 12),
				ServingSize: serving(350),
			},
			tags: []string{"asian", "chinese", "vegan", "vegetarian", "healthy", "quick", "light"},
		},
		{
			recipe: domain.Recipe{
				Title:       "Chicken Alfredo",
				Description: "Creamy spaghetti alfredo with pan-seared chicken. Rich, indulgent, and not from a jar.",
				Source:      domain.SourceSample,
				Nutrition:   facts(780, 48, 70, 34),
				ServingSize: serving(420),
			},
			tags: []string{"italian", "pasta", "chicken", "non-veg", "non-vegetarian", "creamy", "comfort"},
		},
		{
			recipe: domain.Recipe{
				Title:       "Red Lentil Dal",
				Description: "Red lentils simmered with turmeric, cumin and chili, finished with a garlic tadka.",
				Source:      domain.SourceSample,
				Nutrition:   facts(340, 18, 52, 7),
				ServingSize: serving(300),
			},
			tags: []string{"indian", "vegan", "vegetarian", "healthy", "spicy", "protein"},
		},
		{
			recipe: domain.Recipe{
				Title:       "Paneer Butter Masala",
				Description: "Soft paneer in a buttery tomato and cashew gravy. Mild heat, lots of cream.",
				Source:      domain.SourceSample,
				Nutrition:   facts(520, 21, 18, 40),
				ServingSize: serving(280),
			},
			tags: []string{"indian", "vegetarian", "creamy", "mild", "rich"},
		},
		{
			recipe: domain.Recipe{
				Title:       "Spicy Chicken Tikka",
				Description: "Yogurt and spice marinated chicken, charred under the grill.",
				Source:      domain.SourceSample,
				Nutrition:   facts(290, 36, 6, 13),
				ServingSize: serving(220),
			},
			tags: []string{"indian", "non-veg", "non-vegetarian", "chicken", "spicy", "grilled", "high protein", "healthy"},
		},
		{
			recipe: domain.Recipe{
				Title:       "Thai Green Curry with Tofu",
				Description: "Coconut milk curry with green chili paste, tofu, bamboo shoots and basil.",
				Source:      domain.SourceSample,
				Nutrition:   facts(450, 16, 24, 32),
				ServingSize: serving(350),
			},
			tags: []string{"thai", "asian", "vegan", "vegetarian", "spicy", "creamy"},
		},
		{
			recipe: domain.Recipe{
				Title:       "Mediterranean Quinoa Salad",
				Description: "Quinoa with cucumber, tomato, olives and feta in a lemon dressing. Ready in twenty minutes.",
				Source:      domain.SourceSample,
				Nutrition:   facts(380, 12, 45, 17),
				ServingSize: serving(300),
			},
			tags: []string{"mediterranean", "greek", "vegetarian", "healthy", "quick", "light", "fresh"},
		},
	}
	s.log.Debug("seeded %d recipes", len(s.entries))
}
