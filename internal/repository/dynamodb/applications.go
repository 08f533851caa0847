package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/awslabs/game-analytics-pipeline/internal/domain"
)

// GetApplication fetches a registered application by id
func (r *Repository) GetApplication(ctx context.Context, applicationID string) (domain.Application, bool, error) {
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tables.Applications),
		Key: map[string]types.AttributeValue{
			"application_id": &types.AttributeValueMemberS{Value: applicationID},
		},
	})
	if err != nil {
		return domain.Application{}, false, dependencyError(r.tables.Applications, "GetItem", err)
	}

	if len(out.Item) == 0 {
		r.log.Info("Application not found in DynamoDB",
			zap.String("application_id", applicationID))
		return domain.Application{}, false, nil
	}

	var app domain.Application
	if err := attributevalue.UnmarshalMap(out.Item, &app); err != nil {
		return domain.Application{}, false, fmt.Errorf("failed to unmarshal application %s: %w", applicationID, err)
	}

	return app, true, nil
}
