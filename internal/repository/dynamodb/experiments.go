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

// ActiveExperiment returns the first active, non-paused experiment of a remote config
func (r *Repository) ActiveExperiment(ctx context.Context, remoteConfigID string) (domain.Experiment, bool, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tables.Experiments),
		IndexName:              aws.String(activeIndex),
		KeyConditionExpression: aws.String("active = :active"),
		FilterExpression:       aws.String("remote_config_ID = :remote_config_ID AND paused = :paused"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":active":           &types.AttributeValueMemberN{Value: "1"},
			":remote_config_ID": &types.AttributeValueMemberS{Value: remoteConfigID},
			":paused":           &types.AttributeValueMemberBOOL{Value: false},
		},
	}

	// Filters apply per page, so a match can sit behind empty pages
	paginator := dynamodb.NewQueryPaginator(r.api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return domain.Experiment{}, false, dependencyError(r.tables.Experiments, "Query", err)
		}
		if len(page.Items) == 0 {
			continue
		}

		var experiment domain.Experiment
		if err := attributevalue.UnmarshalMap(page.Items[0], &experiment); err != nil {
			return domain.Experiment{}, false, fmt.Errorf("failed to unmarshal experiment for remote config %s: %w", remoteConfigID, err)
		}
		return experiment, true, nil
	}

	return domain.Experiment{}, false, nil
}
