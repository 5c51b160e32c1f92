package gpt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/hammamikhairi/recipevoice/internal/domain"
	"github.com/hammamikhairi/recipevoice/internal/logger"
)

func testLogger() *logger.Logger { return logger.New(logger.LevelOff, nil) }

func chatServer(t *testing.T, reply string, inspect func(*http.Request, payload)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p payload
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &p); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if inspect != nil {
			inspect(r, p)
		}
		resp := map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": reply}}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientChatAPIKeyHeader(t *testing.T) {
	srv := chatServer(t, "hello", func(r *http.Request, p payload) {
		if r.Header.Get("api-key") != "k1" {
			t.Errorf("api-key header = %q", r.Header.Get("api-key"))
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("unexpected Authorization header")
		}
		if len(p.Messages) != 1 || p.Messages[0].Content != "hi" {
			t.Errorf("messages = %+v", p.Messages)
		}
		if p.Model != "" {
			t.Errorf("model should be omitted, got %q", p.Model)
		}
	})

	c := NewClient(srv.URL, "k1", testLogger())
	got, err := c.Chat(context.Background(), []Message{NewMessage(RoleUser, "hi")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello" {
		t.Fatalf("reply = %q", got)
	}
}

func TestClientChatBearer(t *testing.T) {
	srv := chatServer(t, "ok", func(r *http.Request, p payload) {
		if r.Header.Get("Authorization") != "Bearer k2" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if p.Model != "gpt-4o-mini" || p.MaxTokens != 100 {
			t.Errorf("payload = %+v", p)
		}
	})

	c := NewClient(srv.URL, "k2", testLogger(), WithBearerAuth(), WithModel("gpt-4o-mini"), WithMaxTokens(100))
	if _, err := c.Chat(context.Background(), []Message{NewMessage(RoleUser, "hi")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClientChatErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
				io.WriteString(w, "slow down")
			},
			want: "429",
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"choices":[]}`)
			},
			want: "no choices",
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `<html>`)
			},
			want: "unmarshal",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			_, err := NewClient(srv.URL, "k", testLogger()).Chat(context.Background(), nil)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestClientChatStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, "  overloaded \n")
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k", testLogger()).Chat(context.Background(), nil)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.Code != http.StatusServiceUnavailable || se.Body != "overloaded" || !se.Temporary() {
		t.Errorf("status error = %+v", se)
	}
}

func TestClientChatTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"choices":[{"message":{"content":"{\"cuisine\":"},"finish_reason":"length"}]}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k", testLogger(), WithMaxTokens(5)).Chat(context.Background(), nil)
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestClientChatJSONMode(t *testing.T) {
	var got *responseFormat
	srv := chatServer(t, "{}", func(r *http.Request, p payload) { got = p.ResponseFormat })

	if _, err := NewClient(srv.URL, "k", testLogger()).Chat(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("response_format sent without JSON mode: %+v", got)
	}

	if _, err := NewClient(srv.URL, "k", testLogger(), WithJSONMode()).Chat(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.Type != "json_object" {
		t.Errorf("response_format = %+v", got)
	}
}

func TestDecodeReply(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"plain", `{"diet_type":"vegan"}`, false},
		{"fenced", "```json\n{\"diet_type\":\"vegan\"}\n```", false},
		{"chatter", "Sure! Here you go:\n{\"diet_type\":\"vegan\"}\nEnjoy.", false},
		{"no json", "I cannot help with that.", true},
		{"broken", `{"diet_type": }`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c domain.Context
			err := DecodeReply(tt.raw, &c)
			if tt.wantErr {
				if !errors.Is(err, ErrBadReply) {
					t.Fatalf("expected ErrBadReply, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if domain.Value(c.DietType) != "vegan" {
				t.Fatalf("diet = %q", domain.Value(c.DietType))
			}
		})
	}
}

func TestDecodeReplyArray(t *testing.T) {
	var items []struct {
		Title string `json:"title"`
	}
	raw := "```\n[{\"title\":\"a\"},{\"title\":\"b\"}]\n```"
	if err := DecodeReply(raw, &items); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 || items[1].Title != "b" {
		t.Fatalf("items = %+v", items)
	}
}

// ── Agent ────────────────────────────────────────────────────────

type fakeCompleter struct {
	mu    sync.Mutex
	reply string
	err   error
	seen  [][]Message
}

func (f *fakeCompleter) Chat(_ context.Context, msgs []Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, msgs)
	return f.reply, f.err
}

func TestAgentAskJSON(t *testing.T) {
	fc := &fakeCompleter{reply: "```json\n{\"cuisine\":\"indian\"}\n```"}
	a := NewAgent(fc, testLogger())

	var c domain.Context
	if err := a.AskJSON(context.Background(), ExtractFirstPrompt("spicy indian dinner"), &c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if domain.Value(c.Cuisine) != "indian" {
		t.Fatalf("cuisine = %q", domain.Value(c.Cuisine))
	}

	msgs := fc.seen[0]
	if msgs[0].Role != RoleSystem || msgs[1].Role != RoleUser {
		t.Fatalf("roles = %s, %s", msgs[0].Role, msgs[1].Role)
	}
	if !strings.Contains(msgs[1].Content, `"spicy indian dinner"`) {
		t.Errorf("prompt does not quote the request: %s", msgs[1].Content)
	}
}

func TestAgentAskJSONPropagatesChatError(t *testing.T) {
	boom := errors.New("boom")
	a := NewAgent(&fakeCompleter{err: boom}, testLogger())
	var out map[string]any
	if err := a.AskJSON(context.Background(), "x", &out); !errors.Is(err, boom) {
		t.Fatalf("expected chat error, got %v", err)
	}
}

func TestExtractFollowUpPrompt(t *testing.T) {
	prev := &domain.Context{DietType: domain.Str("vegan")}
	p := ExtractFollowUpPrompt("italian please", prev)
	for _, want := range []string{"Diet type: vegan", "Cuisine: null", `"italian please"`} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
