package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/awslabs/game-analytics-pipeline/internal/domain"
)

const activeIndex = "active-index"

// ListActive returns all active remote configs, optionally restricted to one application
func (r *Repository) ListActive(ctx context.Context, applicationID string) ([]domain.RemoteConfig, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tables.RemoteConfigs),
		IndexName:              aws.String(activeIndex),
		KeyConditionExpression: aws.String("active = :active"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":active": &types.AttributeValueMemberN{Value: "1"},
		},
	}
	if applicationID != "" {
		input.FilterExpression = aws.String("application_ID = :application_ID")
		input.ExpressionAttributeValues[":application_ID"] = &types.AttributeValueMemberS{Value: applicationID}
	}

	var configs []domain.RemoteConfig
	paginator := dynamodb.NewQueryPaginator(r.api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, dependencyError(r.tables.RemoteConfigs, "Query", err)
		}

		var items []domain.RemoteConfig
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal remote configs: %w", err)
		}
		configs = append(configs, items...)
	}

	return configs, nil
}
