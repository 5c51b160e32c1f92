package recipe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/hammamikhairi/recipevoice/internal/domain"
	"github.com/hammamikhairi/recipevoice/internal/nutrition"
)

// Analyzer estimates nutrition from recipe text.
type Analyzer interface {
	Analyze(ctx context.Context, recipeText string) nutrition.Result
}

var _ Analyzer = (*nutrition.Analyzer)(nil)

// maxBody caps how much of an API response is read.
const maxBody = 4 << 20

// getJSON GETs url and decodes a 2xx JSON body into out.
func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "RecipeVoice/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("API %s: %s", resp.Status, truncate(strings.TrimSpace(string(body)), 200))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// SearchPhrase joins the known preferences of c into a search query
// ending in "recipe", e.g. "indian vegan spicy recipe".
func SearchPhrase(c *domain.Context) string {
	return strings.Join(append(c.Terms(), "recipe"), " ")
}

var htmlTag = regexp.MustCompile(`<[^>]*>`)

// stripHTML removes tags from the HTML snippets some APIs return.
func stripHTML(s string) string {
	return strings.Join(strings.Fields(htmlTag.ReplaceAllString(s, " ")), " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
