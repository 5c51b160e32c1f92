package domain

import "strings"

// MaxClarifications is the clarification budget: the number of rounds the
// assistant may ask before it must retrieve recipes.
const MaxClarifications = 3

// AnyValue marks a field the user has no preference for.
const AnyValue = "any"

// Context field names, as they appear on the wire.
const (
	FieldDietType       = "diet_type"
	FieldCuisine        = "cuisine"
	FieldDishAttributes = "dish_attributes"
)

// ContextFields lists the preference fields in question order.
var ContextFields = []string{FieldDietType, FieldCuisine, FieldDishAttributes}

// Context is the accumulated understanding of what the user wants to cook.
// Nil preference fields are unknown; AnyValue means "no preference".
type Context struct {
	DietType            *string  `json:"diet_type"`
	Cuisine             *string  `json:"cuisine"`
	DishAttributes      *string  `json:"dish_attributes"`
	ClarifyingQuestions []string `json:"clarifying_questions"`
	AudioResponse       string   `json:"audio_response,omitempty"`
}

// FirstQuestion returns the first clarifying question, if any. The rest of
// the list is never surfaced.
func (c *Context) FirstQuestion() (string, bool) {
	if c == nil {
		return "", false
	}
	for _, q := range c.ClarifyingQuestions {
		if q = strings.TrimSpace(q); q != "" {
			return q, true
		}
	}
	return "", false
}

// Field returns a pointer to the named preference field, or nil for an
// unknown name.
func (c *Context) Field(name string) **string {
	switch name {
	case FieldDietType:
		return &c.DietType
	case FieldCuisine:
		return &c.Cuisine
	case FieldDishAttributes:
		return &c.DishAttributes
	}
	return nil
}

// Clone returns a deep copy. Safe on nil.
func (c *Context) Clone() *Context {
	if c == nil {
		return nil
	}
	out := &Context{
		DietType:       cloneStr(c.DietType),
		Cuisine:        cloneStr(c.Cuisine),
		DishAttributes: cloneStr(c.DishAttributes),
		AudioResponse:  c.AudioResponse,
	}
	if c.ClarifyingQuestions != nil {
		out.ClarifyingQuestions = append([]string{}, c.ClarifyingQuestions...)
	}
	return out
}

// Terms returns the known, non-"any" preference values in query order
// (cuisine, diet, attributes), as used to build search phrases.
func (c *Context) Terms() []string {
	if c == nil {
		return nil
	}
	var out []string
	for _, p := range []*string{c.Cuisine, c.DietType, c.DishAttributes} {
		if v := Value(p); v != "" && !strings.EqualFold(v, AnyValue) {
			out = append(out, v)
		}
	}
	return out
}

// Str returns a pointer to s.
func Str(s string) *string { return &s }

// Value dereferences p, returning "" for nil.
func Value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
