package schema

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"

	"github.com/awslabs/game-analytics-pipeline/internal/domain"
)

//go:embed event_schema.json
var defaultEventSchema []byte

// Result is the outcome of validating a document
type Result struct {
	Valid  bool
	Errors []domain.ValidationError
}

// Validator checks documents against a compiled JSON Schema. It holds no mutable state
// and is safe for concurrent use.
type Validator struct {
	schema *gojsonschema.Schema
}

// New compiles the given JSON Schema document
func New(document []byte) (*Validator, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return nil, fmt.Errorf("failed to compile event schema: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

// NewDefault compiles the embedded event schema
func NewDefault() (*Validator, error) {
	return New(defaultEventSchema)
}

// Load compiles the schema at path, or the embedded schema when path is empty
func Load(path string) (*Validator, error) {
	if path == "" {
		return NewDefault()
	}

	document, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read event schema %s: %w", path, err)
	}
	return New(document)
}

// Validate checks a decoded JSON document
func (v *Validator) Validate(document map[string]interface{}) (Result, error) {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(document))
	if err != nil {
		return Result{}, fmt.Errorf("failed to validate document: %w", err)
	}

	if result.Valid() {
		return Result{Valid: true}, nil
	}

	errs := make([]domain.ValidationError, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		errs = append(errs, domain.ValidationError{
			Field:   resultErr.Field(),
			Type:    resultErr.Type(),
			Message: resultErr.Description(),
		})
	}

	return Result{Valid: false, Errors: errs}, nil
}
