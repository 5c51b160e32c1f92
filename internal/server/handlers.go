package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/hammamikhairi/recipevoice/internal/backend"
	"github.com/hammamikhairi/recipevoice/internal/domain"
	"github.com/hammamikhairi/recipevoice/internal/metrics"
	"github.com/hammamikhairi/recipevoice/internal/schema"
)

// Error messages returned for unusable request bodies.
const (
	MsgNoText = "No text provided"
	MsgNoData = "No data provided"
)

// ── POST /extract_context ────────────────────────────────────────

func (s *Server) handleExtractContext(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil || isEmptyDoc(body) {
		s.log.Warn("server: extract_context without a body")
		writeError(w, http.StatusBadRequest, MsgNoText)
		return
	}

	var probe struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(body, &probe); err != nil || probe.Text == nil || strings.TrimSpace(*probe.Text) == "" {
		s.log.Warn("server: extract_context without text")
		writeError(w, http.StatusBadRequest, MsgNoText)
		return
	}
	if err := schema.Validate(schema.ExtractRequest, body); err != nil {
		s.log.Warn("server: extract_context rejected: %v", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req backend.ExtractRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	text := strings.ToLower(req.Text)
	s.log.Info("server: [%s] extract_context text=%q count=%d", sessionOf(r), text, req.ClarificationCount)

	c, err := s.extractor.ExtractContext(r.Context(), text, req.PreviousContext, req.ClarificationCount)
	if err != nil {
		metrics.ObserveExtraction(0, err)
		s.log.Error("server: extract_context failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.ObserveExtraction(len(c.ClarifyingQuestions), nil)

	s.log.Debug("server: context diet=%s cuisine=%s attrs=%s questions=%d",
		domain.Value(c.DietType), domain.Value(c.Cuisine), domain.Value(c.DishAttributes), len(c.ClarifyingQuestions))
	writeJSON(w, http.StatusOK, c)
}

// ── POST /get_recipes ────────────────────────────────────────────

func (s *Server) handleGetRecipes(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil || isEmptyDoc(body) {
		s.log.Warn("server: get_recipes without data")
		writeError(w, http.StatusBadRequest, MsgNoData)
		return
	}
	if err := schema.Validate(schema.Context, body); err != nil {
		s.log.Warn("server: get_recipes rejected: %v", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var c domain.Context
	if err := json.Unmarshal(body, &c); err != nil {
		writeError(w, http.StatusBadRequest, MsgNoData)
		return
	}

	s.log.Info("server: [%s] get_recipes %s", sessionOf(r), strings.Join(c.Terms(), ", "))

	recipes, err := s.retriever.GetRecipes(r.Context(), &c)
	if err != nil {
		s.log.Error("server: get_recipes failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recipes == nil {
		recipes = []domain.Recipe{}
	}
	s.log.Info("server: retrieved %d recipes", len(recipes))
	writeJSON(w, http.StatusOK, recipes)
}

// ── GET /healthz ─────────────────────────────────────────────────

// healthResponse is the body of GET /healthz.
type healthResponse struct {
	Status  string            `json:"status"`
	Sources []string          `json:"sources,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Sources: s.sources}
	status := http.StatusOK

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) > 0 {
		resp.Checks = make(map[string]string, len(names))
	}
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	writeJSON(w, status, resp)
}

// ── Helpers ──────────────────────────────────────────────────────

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, errors.New("no body")
	}
	return io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
}

// isEmptyDoc reports whether body carries no usable data: nothing, null,
// or an empty object.
func isEmptyDoc(body []byte) bool {
	b := bytes.TrimSpace(body)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return true
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err == nil && len(obj) == 0 {
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, backend.ErrorResponse{Error: msg})
}

func sessionOf(r *http.Request) string {
	if id := r.Header.Get(backend.HeaderSessionID); id != "" {
		return id
	}
	return "-"
}
