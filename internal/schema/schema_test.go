package schema

import (
	"errors"
	"testing"

	"github.com/hammamikhairi/recipevoice/internal/domain"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		schema  string
		doc     string
		wantErr bool
	}{
		{"context ok", Context, `{"diet_type":"vegan","cuisine":null,"dish_attributes":null,"clarifying_questions":["q?"]}`, false},
		{"context wrong type", Context, `{"diet_type":3}`, true},
		{"context not object", Context, `[]`, true},
		{"recipes ok", Recipes, `[{"title":"Dal","source":"Blog","nutrition":{"calories":320,"fat":null}}]`, false},
		{"recipes empty", Recipes, `[]`, false},
		{"recipes missing title", Recipes, `[{"source":"Blog"}]`, true},
		{"recipes error envelope", Recipes, `{"error":"boom"}`, true},
		{"request ok", ExtractRequest, `{"text":"healthy dinner","previous_context":null,"clarification_count":0}`, false},
		{"request no text", ExtractRequest, `{"clarification_count":0}`, true},
		{"request empty text", ExtractRequest, `{"text":""}`, true},
		{"request negative count", ExtractRequest, `{"text":"x","clarification_count":-1}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.schema, []byte(tt.doc))
			if tt.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected *ValidationError, got %T", err)
				}
			}
		})
	}
}

func TestValidateValue(t *testing.T) {
	recipes := []domain.Recipe{{
		Title:     "Paneer tikka",
		Source:    domain.SourceSample,
		Nutrition: map[string]*float64{domain.NutrientCalories: domain.Float(410)},
	}}
	if err := ValidateValue(Recipes, recipes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUnknownSchema(t *testing.T) {
	if err := Validate("nope", []byte(`{}`)); err == nil {
		t.Fatal("expected error for unknown schema")
	}
}
