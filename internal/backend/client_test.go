package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hammamikhairi/recipevoice/internal/domain"
	"github.com/hammamikhairi/recipevoice/internal/logger"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...ClientOption) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, logger.New(logger.LevelOff, nil), opts...)
}

func TestExtractContextRequestShape(t *testing.T) {
	var got map[string]json.RawMessage
	var gotSession string

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != PathExtractContext {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		gotSession = r.Header.Get(HeaderSessionID)
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"diet_type":"healthy","cuisine":null,"dish_attributes":null,"clarifying_questions":["spicy or mild?"]}`)
	}, WithSessionID("sess-1"))

	out, err := c.ExtractContext(context.Background(), "find me healthy dinner recipes", nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if string(got["previous_context"]) != "null" {
		t.Errorf("previous_context = %s, want null on first turn", got["previous_context"])
	}
	if string(got["clarification_count"]) != "0" {
		t.Errorf("clarification_count = %s", got["clarification_count"])
	}
	if string(got["text"]) != `"find me healthy dinner recipes"` {
		t.Errorf("text = %s", got["text"])
	}
	if gotSession != "sess-1" {
		t.Errorf("session header = %q", gotSession)
	}

	if domain.Value(out.DietType) != "healthy" || out.Cuisine != nil {
		t.Errorf("unexpected context: %+v", out)
	}
	if q, _ := out.FirstQuestion(); q != "spicy or mild?" {
		t.Errorf("first question = %q", q)
	}
}

func TestExtractContextCarriesPrevious(t *testing.T) {
	var req ExtractRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&req)
		io.WriteString(w, `{"diet_type":"healthy","cuisine":"any","dish_attributes":"mild","clarifying_questions":[]}`)
	})

	prev := &domain.Context{DietType: domain.Str("healthy"), ClarifyingQuestions: []string{"spicy or mild?"}}
	if _, err := c.ExtractContext(context.Background(), "mild", prev, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.ClarificationCount != 1 {
		t.Errorf("count = %d, want 1", req.ClarificationCount)
	}
	if req.PreviousContext == nil || domain.Value(req.PreviousContext.DietType) != "healthy" {
		t.Errorf("previous context lost: %+v", req.PreviousContext)
	}
}

func TestExtractContextFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantMsg string
	}{
		{
			name: "server error envelope",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				io.WriteString(w, `{"error":"model unavailable"}`)
			},
			wantMsg: "model unavailable",
		},
		{
			name: "bad request",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				io.WriteString(w, `{"error":"No text provided"}`)
			},
			wantMsg: "400",
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `<html>oops</html>`)
			},
		},
		{
			name: "wrong shape",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"diet_type":42}`)
			},
			wantMsg: "unexpected response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.ExtractContext(context.Background(), "hi", nil, 0)
			if !errors.Is(err, domain.ErrExtraction) {
				t.Fatalf("expected ErrExtraction, got %v", err)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Fatalf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestExtractContextTimeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, WithHTTPTimeout(50*time.Millisecond))
	defer close(release)

	_, err := c.ExtractContext(context.Background(), "hi", nil, 0)
	if !errors.Is(err, domain.ErrExtraction) || !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected extraction timeout, got %v", err)
	}
}

func TestGetRecipes(t *testing.T) {
	var got domain.Context
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != PathGetRecipes {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, `[
			{"title":"Dal","source":"Blog","sourceUrl":"https://example.com/dal",
			 "nutrition":{"calories":320,"protein":14,"carbs":40,"fat":-3},
			 "nutrition_confidence":{"calories":0.7,"fat":2},
			 "serving_size":{"amount":250,"unit":"g"},
			 "nutrition_notes":["estimated"]},
			{"title":"Tikka","source":"YouTube","url":"https://youtube.com/watch?v=1"},
			{"title":"Soup","source":"Spoonacular"}
		]`)
	})

	rc := &domain.Context{DietType: domain.Str("healthy"), Cuisine: domain.Str("any"), DishAttributes: domain.Str("mild"), ClarifyingQuestions: []string{}}
	recipes, err := c.GetRecipes(context.Background(), rc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recipes) != 3 {
		t.Fatalf("expected 3 recipes, got %d", len(recipes))
	}
	if domain.Value(got.DishAttributes) != "mild" {
		t.Errorf("context not sent: %+v", got)
	}

	dal := recipes[0]
	if dal.Nutrition[domain.NutrientFat] != nil {
		t.Error("negative fat should have been dropped")
	}
	if _, ok := dal.NutritionConfidence[domain.NutrientFat]; ok {
		t.Error("out of range confidence should have been dropped")
	}
	if err := dal.Validate(); err != nil {
		t.Errorf("recipe still invalid: %v", err)
	}
	if dal.ServingSize.String() != "250 g" {
		t.Errorf("serving size = %q", dal.ServingSize.String())
	}
	if recipes[1].Link() != "https://youtube.com/watch?v=1" {
		t.Errorf("link = %q", recipes[1].Link())
	}
}

func TestGetRecipesFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":"spoonacular quota exceeded"}`)
	})

	recipes, err := c.GetRecipes(context.Background(), &domain.Context{})
	if !errors.Is(err, domain.ErrRetrieval) {
		t.Fatalf("expected ErrRetrieval, got %v", err)
	}
	if recipes != nil {
		t.Fatalf("expected no recipes, got %v", recipes)
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error should carry the status: %v", err)
	}
}

func TestGetRecipesUnreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", logger.New(logger.LevelOff, nil), WithHTTPTimeout(time.Second))
	if _, err := c.GetRecipes(context.Background(), nil); !errors.Is(err, domain.ErrRetrieval) {
		t.Fatalf("expected ErrRetrieval, got %v", err)
	}
}
