package recipe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hammamikhairi/recipevoice/internal/domain"
	"github.com/hammamikhairi/recipevoice/internal/logger"
)

// DefaultSpoonacularURL is the public Spoonacular API.
const DefaultSpoonacularURL = "https://api.spoonacular.com"

// Compile-time interface check.
var _ domain.RecipeSource = (*SpoonacularSource)(nil)

// spoonacularNutrients maps Spoonacular nutrient names to ours.
var spoonacularNutrients = map[string]string{
	"Calories":      domain.NutrientCalories,
	"Protein":       domain.NutrientProtein,
	"Carbohydrates": domain.NutrientCarbs,
	"Fat":           domain.NutrientFat,
}

// spoonacularDiets are the diet values the API understands.
var spoonacularDiets = map[string]string{
	"vegetarian":  "vegetarian",
	"vegan":       "vegan",
	"pescatarian": "pescetarian",
	"pescetarian": "pescetarian",
	"keto":        "ketogenic",
	"ketogenic":   "ketogenic",
	"paleo":       "paleo",
	"gluten free": "gluten free",
}

type spoonacularSearch struct {
	Results []struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
		Image string `json:"image"`
	} `json:"results"`
}

type spoonacularInfo struct {
	Title     string `json:"title"`
	SourceURL string `json:"sourceUrl"`
	Image     string `json:"image"`
	Summary   string `json:"summary"`
	Servings  int    `json:"servings"`
	Nutrition struct {
		Nutrients []struct {
			Name   string  `json:"name"`
			Amount float64 `json:"amount"`
			Unit   string  `json:"unit"`
		} `json:"nutrients"`
		WeightPerServing struct {
			Amount float64 `json:"amount"`
			Unit   string  `json:"unit"`
		} `json:"weightPerServing"`
	} `json:"nutrition"`
}

// SpoonacularOption configures the SpoonacularSource.
type SpoonacularOption func(*SpoonacularSource)

// WithSpoonacularURL points the source at another base URL.
func WithSpoonacularURL(u string) SpoonacularOption {
	return func(s *SpoonacularSource) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithSpoonacularHTTPClient replaces the underlying HTTP client.
func WithSpoonacularHTTPClient(h *http.Client) SpoonacularOption {
	return func(s *SpoonacularSource) { s.http = h }
}

// SpoonacularSource searches the Spoonacular recipe API. Nutrition comes
// straight from the API, so no estimate is needed.
type SpoonacularSource struct {
	apiKey  string
	baseURL string
	limit   int
	http    *http.Client
	log     *logger.Logger
}

// NewSpoonacularSource creates the source.
func NewSpoonacularSource(apiKey string, log *logger.Logger, opts ...SpoonacularOption) *SpoonacularSource {
	s := &SpoonacularSource{
		apiKey:  apiKey,
		baseURL: DefaultSpoonacularURL,
		limit:   3,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Name implements domain.RecipeSource.
func (s *SpoonacularSource) Name() string { return "spoonacular" }

// SetLimit caps how many recipes a search returns. Call it before the
// source is shared; values below one are ignored.
func (s *SpoonacularSource) SetLimit(n int) {
	if n > 0 {
		s.limit = n
	}
}

// Search runs complexSearch, then looks up each hit for its nutrition. A
// failed lookup drops that recipe only.
func (s *SpoonacularSource) Search(ctx context.Context, c *domain.Context) ([]domain.Recipe, error) {
	q := url.Values{}
	q.Set("apiKey", s.apiKey)
	q.Set("number", strconv.Itoa(s.limit))
	q.Set("addRecipeNutrition", "true")
	q.Set("fillIngredients", "true")
	q.Set("instructionsRequired", "true")
	if c != nil {
		if diet, ok := spoonacularDiets[strings.ToLower(known(c.DietType))]; ok {
			q.Set("diet", diet)
		}
		if v := known(c.Cuisine); v != "" {
			q.Set("cuisine", v)
		}
		if v := known(c.DishAttributes); v != "" {
			q.Set("query", v)
		}
	}

	var found spoonacularSearch
	if err := getJSON(ctx, s.http, s.baseURL+"/recipes/complexSearch?"+q.Encode(), &found); err != nil {
		return nil, fmt.Errorf("spoonacular search: %w", err)
	}
	s.log.Debug("spoonacular: %d hits", len(found.Results))

	out := []domain.Recipe{}
	for _, hit := range found.Results {
		info, err := s.information(ctx, hit.ID)
		if err != nil {
			s.log.Warn("spoonacular: lookup %d failed: %v", hit.ID, err)
			continue
		}
		r := domain.Recipe{
			Title:       firstNonEmpty(info.Title, hit.Title),
			Description: truncate(stripHTML(info.Summary), 280),
			SourceURL:   info.SourceURL,
			ImageURL:    firstNonEmpty(info.Image, hit.Image),
			Source:      domain.SourceSpoonacular,
			Nutrition:   make(map[string]*float64, len(domain.Nutrients)),
		}
		for _, k := range domain.Nutrients {
			r.Nutrition[k] = nil
		}
		for _, n := range info.Nutrition.Nutrients {
			if key, ok := spoonacularNutrients[n.Name]; ok {
				r.Nutrition[key] = domain.Float(n.Amount)
			}
		}
		if w := info.Nutrition.WeightPerServing; w.Amount > 0 {
			unit := w.Unit
			r.ServingSize = &domain.ServingSize{Amount: domain.Float(w.Amount), Unit: &unit}
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *SpoonacularSource) information(ctx context.Context, id int) (*spoonacularInfo, error) {
	q := url.Values{}
	q.Set("apiKey", s.apiKey)
	q.Set("includeNutrition", "true")

	var info spoonacularInfo
	if err := getJSON(ctx, s.http, fmt.Sprintf("%s/recipes/%d/information?%s", s.baseURL, id, q.Encode()), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// known returns the field value unless it is empty or "any".
func known(p *string) string {
	v := strings.TrimSpace(domain.Value(p))
	if strings.EqualFold(v, domain.AnyValue) {
		return ""
	}
	return v
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
