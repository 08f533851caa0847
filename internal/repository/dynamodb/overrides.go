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

const (
	overridesIndex    = "remote_config_name-active-index"
	audienceTypeIndex = "type-index"
)

// ActiveOverrides returns the active overrides of a remote config in table order
func (r *Repository) ActiveOverrides(ctx context.Context, remoteConfigName string) ([]domain.RemoteConfigOverride, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tables.Overrides),
		IndexName:              aws.String(overridesIndex),
		KeyConditionExpression: aws.String("remote_config_name = :remote_config_name AND active = :active"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":remote_config_name": &types.AttributeValueMemberS{Value: remoteConfigName},
			":active":             &types.AttributeValueMemberN{Value: "1"},
		},
	}

	var overrides []domain.RemoteConfigOverride
	paginator := dynamodb.NewQueryPaginator(r.api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, dependencyError(r.tables.Overrides, "Query", err)
		}

		var items []domain.RemoteConfigOverride
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal overrides of remote config %s: %w", remoteConfigName, err)
		}
		overrides = append(overrides, items...)
	}

	return overrides, nil
}

// AudiencesByType returns every audience of the given type
func (r *Repository) AudiencesByType(ctx context.Context, audienceType string) ([]domain.Audience, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tables.Audiences),
		IndexName:              aws.String(audienceTypeIndex),
		KeyConditionExpression: aws.String("#type = :type"),
		ExpressionAttributeNames: map[string]string{
			"#type": "type",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":type": &types.AttributeValueMemberS{Value: audienceType},
		},
	}

	var audiences []domain.Audience
	paginator := dynamodb.NewQueryPaginator(r.api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, dependencyError(r.tables.Audiences, "Query", err)
		}

		var items []domain.Audience
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s audiences: %w", audienceType, err)
		}
		audiences = append(audiences, items...)
	}

	return audiences, nil
}
