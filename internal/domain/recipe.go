// Package domain defines the core types and interfaces for the recipe
// discovery assistant. All other packages depend on domain; domain depends
// on nothing.
package domain

import (
	"fmt"
	"sort"
)

// Nutrient names used as keys in nutrition and confidence maps.
const (
	NutrientCalories = "calories"
	NutrientProtein  = "protein"
	NutrientCarbs    = "carbs"
	NutrientFat      = "fat"
)

// Nutrients lists the nutrient keys in display order.
var Nutrients = []string{NutrientCalories, NutrientProtein, NutrientCarbs, NutrientFat}

// Source labels attached to recipes.
const (
	SourceSpoonacular = "Spoonacular"
	SourceYouTube     = "YouTube"
	SourceBlog        = "Blog"
	SourceSample      = "Sample"
)

// Recipe is a single search result.
type Recipe struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	SourceURL   string `json:"sourceUrl,omitempty"`
	Source      string `json:"source"`
	ImageURL    string `json:"imageUrl,omitempty"`

	// Nutrition maps a nutrient name to its amount. A nil value means the
	// amount is unknown.
	Nutrition map[string]*float64 `json:"nutrition,omitempty"`

	ServingSize         *ServingSize       `json:"serving_size,omitempty"`
	NutritionConfidence map[string]float64 `json:"nutrition_confidence,omitempty"`
	NutritionNotes      []string           `json:"nutrition_notes,omitempty"`
}

// ServingSize is the portion the nutrition values refer to.
type ServingSize struct {
	Amount *float64 `json:"amount"`
	Unit   *string  `json:"unit"`
}

// String renders the serving size as "250 g". Empty when unknown.
func (s *ServingSize) String() string {
	if s == nil || s.Amount == nil {
		return ""
	}
	if s.Unit == nil || *s.Unit == "" {
		return trimFloat(*s.Amount)
	}
	return trimFloat(*s.Amount) + " " + *s.Unit
}

// Link returns the best URL to open for the recipe.
func (r *Recipe) Link() string {
	if r.SourceURL != "" {
		return r.SourceURL
	}
	return r.URL
}

// HasNutrition reports whether at least one nutrient amount is known.
func (r *Recipe) HasNutrition() bool {
	for _, v := range r.Nutrition {
		if v != nil {
			return true
		}
	}
	return false
}

// Validate checks the nutrition invariants: amounts are non-negative and
// confidence scores lie in [0,1].
func (r *Recipe) Validate() error {
	for _, k := range sortedKeys(r.Nutrition) {
		if v := r.Nutrition[k]; v != nil && *v < 0 {
			return fmt.Errorf("%w: %s amount %v is negative", ErrInvalidNutrition, k, *v)
		}
	}
	for _, k := range sortedConfidenceKeys(r.NutritionConfidence) {
		if c := r.NutritionConfidence[k]; c < 0 || c > 1 {
			return fmt.Errorf("%w: %s confidence %v outside [0,1]", ErrInvalidNutrition, k, c)
		}
	}
	return nil
}

// Sanitize drops nutrition values that break the invariants and notes what
// was removed. Returns the number of values dropped.
func (r *Recipe) Sanitize() int {
	dropped := 0
	for _, k := range sortedKeys(r.Nutrition) {
		if v := r.Nutrition[k]; v != nil && *v < 0 {
			r.Nutrition[k] = nil
			r.NutritionNotes = append(r.NutritionNotes, fmt.Sprintf("Discarded invalid %s value", k))
			dropped++
		}
	}
	for _, k := range sortedConfidenceKeys(r.NutritionConfidence) {
		if c := r.NutritionConfidence[k]; c < 0 || c > 1 {
			delete(r.NutritionConfidence, k)
			r.NutritionNotes = append(r.NutritionNotes, fmt.Sprintf("Discarded invalid %s confidence", k))
			dropped++
		}
	}
	return dropped
}

// Float returns a pointer to v. Handy for building nutrition maps.
func Float(v float64) *float64 { return &v }

func sortedKeys(m map[string]*float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedConfidenceKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func trimFloat(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}
