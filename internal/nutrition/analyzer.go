// Package nutrition estimates per-serving nutrition for recipes that come
// without it, by asking the language model and checking what it says.
package nutrition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hammamikhairi/recipevoice/internal/domain"
	"github.com/hammamikhairi/recipevoice/internal/gpt"
	"github.com/hammamikhairi/recipevoice/internal/logger"
)

// Notes attached when no estimate could be made.
const (
	NoteParseFailed = "Failed to analyze nutrition information"
	NoteCallFailed  = "Error occurred during nutrition analysis"
)

// errInvalid marks a reply that parsed but broke the value rules.
var errInvalid = errors.New("invalid nutrition reply")

// Asker sends a prompt to a language model and returns its raw reply.
type Asker interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

var _ Asker = (*gpt.Agent)(nil)

// Result is one nutrition estimate.
type Result struct {
	Nutrition   map[string]*float64
	Confidence  map[string]float64
	ServingSize *domain.ServingSize
	Notes       []string
}

// Apply copies the estimate onto r.
func (res Result) Apply(r *domain.Recipe) {
	r.Nutrition = res.Nutrition
	r.NutritionConfidence = res.Confidence
	r.ServingSize = res.ServingSize
	r.NutritionNotes = res.Notes
}

// Fallback is the estimate used when analysis fails: every amount unknown,
// zero confidence, and a note saying why.
func Fallback(note string) Result {
	res := Result{
		Nutrition:   make(map[string]*float64, len(domain.Nutrients)),
		Confidence:  make(map[string]float64, len(domain.Nutrients)),
		ServingSize: &domain.ServingSize{},
		Notes:       []string{note},
	}
	for _, k := range domain.Nutrients {
		res.Nutrition[k] = nil
		res.Confidence[k] = 0
	}
	return res
}

// Analyzer estimates nutrition from a recipe's text.
type Analyzer struct {
	llm Asker
	log *logger.Logger
}

// NewAnalyzer creates an analyzer backed by the given model.
func NewAnalyzer(llm Asker, log *logger.Logger) *Analyzer {
	return &Analyzer{llm: llm, log: log}
}

// Analyze never fails: a model error or a reply that breaks the rules
// yields the Fallback estimate.
func (a *Analyzer) Analyze(ctx context.Context, recipeText string) Result {
	a.log.Debug("nutrition: analyzing %q", truncate(recipeText, 80))

	raw, err := a.llm.Ask(ctx, gpt.NutritionPrompt(recipeText))
	if err != nil {
		a.log.Warn("nutrition: model call failed: %v", err)
		return Fallback(NoteCallFailed)
	}

	res, err := Parse(raw)
	if err != nil {
		a.log.Warn("nutrition: %v", err)
		return Fallback(NoteParseFailed)
	}
	return res
}

// reply is the JSON shape the model is asked for. Numbers arrive as any
// so that "320" and 320 are both accepted.
type reply struct {
	Nutrition   map[string]any `json:"nutrition"`
	Confidence  map[string]any `json:"confidence"`
	ServingSize *struct {
		Amount any     `json:"amount"`
		Unit   *string `json:"unit"`
	} `json:"serving_size"`
	Notes []string `json:"notes"`
}

// Parse validates a model reply. All four sections are required, amounts
// must be numeric and non-negative, confidence must lie in [0,1].
func Parse(raw string) (Result, error) {
	var fields map[string]json.RawMessage
	if err := gpt.DecodeReply(raw, &fields); err != nil {
		return Result{}, err
	}
	for _, f := range []string{"nutrition", "confidence", "serving_size", "notes"} {
		if _, ok := fields[f]; !ok {
			return Result{}, fmt.Errorf("%w: missing %q", errInvalid, f)
		}
	}

	var r reply
	if err := gpt.DecodeReply(raw, &r); err != nil {
		return Result{}, err
	}

	res := Result{
		Nutrition:  make(map[string]*float64, len(domain.Nutrients)),
		Confidence: make(map[string]float64, len(domain.Nutrients)),
		Notes:      r.Notes,
	}
	if res.Notes == nil {
		res.Notes = []string{}
	}

	for _, k := range domain.Nutrients {
		v, err := number(r.Nutrition[k])
		if err != nil {
			return Result{}, fmt.Errorf("%w: %s: %w", errInvalid, k, err)
		}
		if v != nil && *v < 0 {
			return Result{}, fmt.Errorf("%w: %s is negative", errInvalid, k)
		}
		res.Nutrition[k] = v
	}

	for _, k := range domain.Nutrients {
		c, err := number(r.Confidence[k])
		if err != nil {
			return Result{}, fmt.Errorf("%w: %s confidence: %w", errInvalid, k, err)
		}
		if c == nil {
			continue
		}
		if *c < 0 || *c > 1 {
			return Result{}, fmt.Errorf("%w: %s confidence %v out of range", errInvalid, k, *c)
		}
		res.Confidence[k] = *c
	}

	res.ServingSize = &domain.ServingSize{}
	if r.ServingSize != nil {
		amount, err := number(r.ServingSize.Amount)
		if err != nil {
			return Result{}, fmt.Errorf("%w: serving size: %w", errInvalid, err)
		}
		res.ServingSize.Amount = amount
		res.ServingSize.Unit = r.ServingSize.Unit
	}
	return res, nil
}

// number coerces a JSON value to a float. nil stays nil.
func number(v any) (*float64, error) {
	switch n := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return &n, nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" || strings.EqualFold(s, "null") {
			return nil, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", n)
		}
		return &f, nil
	default:
		return nil, fmt.Errorf("not a number: %v", v)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
