package recipe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hammamikhairi/recipevoice/internal/domain"
	"github.com/hammamikhairi/recipevoice/internal/logger"
)

// DefaultYouTubeURL is the YouTube Data API v3.
const DefaultYouTubeURL = "https://www.googleapis.com/youtube/v3"

// Compile-time interface check.
var _ domain.RecipeSource = (*YouTubeSource)(nil)

type youtubeThumbnails struct {
	High    *youtubeThumb `json:"high"`
	Medium  *youtubeThumb `json:"medium"`
	Default *youtubeThumb `json:"default"`
}

type youtubeThumb struct {
	URL string `json:"url"`
}

func (t youtubeThumbnails) best() string {
	for _, th := range []*youtubeThumb{t.High, t.Medium, t.Default} {
		if th != nil && th.URL != "" {
			return th.URL
		}
	}
	return ""
}

type youtubeSnippet struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Thumbnails  youtubeThumbnails `json:"thumbnails"`
}

type youtubeSearch struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet youtubeSnippet `json:"snippet"`
	} `json:"items"`
}

type youtubeVideos struct {
	Items []struct {
		ID      string         `json:"id"`
		Snippet youtubeSnippet `json:"snippet"`
	} `json:"items"`
}

// YouTubeOption configures the YouTubeSource.
type YouTubeOption func(*YouTubeSource)

// WithYouTubeURL points the source at another base URL.
func WithYouTubeURL(u string) YouTubeOption {
	return func(s *YouTubeSource) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithYouTubeHTTPClient replaces the underlying HTTP client.
func WithYouTubeHTTPClient(h *http.Client) YouTubeOption {
	return func(s *YouTubeSource) { s.http = h }
}

// YouTubeSource finds recipe videos. Videos carry no nutrition, so each
// description goes through the analyzer.
type YouTubeSource struct {
	apiKey   string
	baseURL  string
	limit    int
	analyzer Analyzer
	http     *http.Client
	log      *logger.Logger
}

// NewYouTubeSource creates the source.
func NewYouTubeSource(apiKey string, analyzer Analyzer, log *logger.Logger, opts ...YouTubeOption) *YouTubeSource {
	s := &YouTubeSource{
		apiKey:   apiKey,
		baseURL:  DefaultYouTubeURL,
		limit:    3,
		analyzer: analyzer,
		http:     &http.Client{Timeout: 15 * time.Second},
		log:      log,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Name implements domain.RecipeSource.
func (s *YouTubeSource) Name() string { return "youtube" }

// SetLimit caps how many recipes a search returns. Call it before the
// source is shared; values below one are ignored.
func (s *YouTubeSource) SetLimit(n int) {
	if n > 0 {
		s.limit = n
	}
}

// Search finds videos for the context's search phrase, fetches their full
// descriptions and estimates nutrition for each, in parallel.
func (s *YouTubeSource) Search(ctx context.Context, c *domain.Context) ([]domain.Recipe, error) {
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("q", SearchPhrase(c))
	q.Set("type", "video")
	q.Set("maxResults", strconv.Itoa(s.limit))
	q.Set("relevanceLanguage", "en")
	q.Set("key", s.apiKey)

	var found youtubeSearch
	if err := getJSON(ctx, s.http, s.baseURL+"/search?"+q.Encode(), &found); err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}

	ids := make([]string, 0, len(found.Items))
	snippets := make(map[string]youtubeSnippet, len(found.Items))
	for _, it := range found.Items {
		if it.ID.VideoID == "" {
			continue
		}
		ids = append(ids, it.ID.VideoID)
		snippets[it.ID.VideoID] = it.Snippet
	}
	if len(ids) == 0 {
		return []domain.Recipe{}, nil
	}
	s.log.Debug("youtube: %d videos for %q", len(ids), q.Get("q"))

	// Search snippets truncate the description; the videos endpoint has
	// it in full. Fall back to the snippet when that call fails.
	if full, err := s.videos(ctx, ids); err != nil {
		s.log.Warn("youtube: video details failed, using search snippets: %v", err)
	} else {
		for id, sn := range full {
			snippets[id] = sn
		}
	}

	out := make([]domain.Recipe, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		sn := snippets[id]
		out[i] = domain.Recipe{
			Title:       sn.Title,
			Description: truncate(firstLine(sn.Description), 200),
			SourceURL:   "https://www.youtube.com/watch?v=" + id,
			ImageURL:    sn.Thumbnails.best(),
			Source:      domain.SourceYouTube,
		}
		wg.Add(1)
		go func(r *domain.Recipe, text string) {
			defer wg.Done()
			s.analyzer.Analyze(ctx, text).Apply(r)
		}(&out[i], sn.Title+"\n"+sn.Description)
	}
	wg.Wait()
	return out, nil
}

func (s *YouTubeSource) videos(ctx context.Context, ids []string) (map[string]youtubeSnippet, error) {
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("id", strings.Join(ids, ","))
	q.Set("key", s.apiKey)

	var v youtubeVideos
	if err := getJSON(ctx, s.http, s.baseURL+"/videos?"+q.Encode(), &v); err != nil {
		return nil, err
	}
	out := make(map[string]youtubeSnippet, len(v.Items))
	for _, it := range v.Items {
		out[it.ID] = it.Snippet
	}
	return out, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i != -1 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
