package transform

import (
	"context"

	"github.com/awslabs/game-analytics-pipeline/internal/domain"
	"github.com/awslabs/game-analytics-pipeline/internal/schema"
)

// Directory resolves registered applications
type Directory interface {
	Get(ctx context.Context, applicationID string) (domain.Application, bool, error)
}

// Validator checks raw events against the event schema
type Validator interface {
	Validate(document map[string]interface{}) (schema.Result, error)
}
