// Package schema holds the JSON schemas of the backend contract and
// validates documents against them. Both the client and the server use it,
// so the two sides cannot drift apart silently.
package schema

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Schema names.
const (
	Context        = "context"
	Recipes        = "recipes"
	ExtractRequest = "extract_request"
)

//go:embed schemas/*.json
var files embed.FS

var (
	mu       sync.Mutex
	compiled = map[string]*gojsonschema.Schema{}
)

// ValidationError lists every violation found in a document.
type ValidationError struct {
	Schema   string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Schema, strings.Join(e.Problems, "; "))
}

// Validate checks a raw JSON document against the named schema. It returns
// a *ValidationError when the document does not conform.
func Validate(name string, doc []byte) error {
	return validate(name, gojsonschema.NewBytesLoader(doc))
}

// ValidateValue checks an in-memory value (marshalled the way encoding/json
// would) against the named schema.
func ValidateValue(name string, v any) error {
	return validate(name, gojsonschema.NewGoLoader(v))
}

func validate(name string, doc gojsonschema.JSONLoader) error {
	s, err := load(name)
	if err != nil {
		return err
	}

	result, err := s.Validate(doc)
	if err != nil {
		return fmt.Errorf("schema %s: %w", name, err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		problems[i] = desc.String()
	}
	return &ValidationError{Schema: name, Problems: problems}
}

func load(name string) (*gojsonschema.Schema, error) {
	mu.Lock()
	defer mu.Unlock()

	if s, ok := compiled[name]; ok {
		return s, nil
	}

	raw, err := files.ReadFile("schemas/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("schema %s: compile: %w", name, err)
	}
	compiled[name] = s
	return s, nil
}
