package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/awslabs/game-analytics-pipeline/internal/domain"
)

// GetAssignment reads the assignment of a user in an experiment
func (r *Repository) GetAssignment(ctx context.Context, userID, experimentID string) (domain.UserAssignment, bool, error) {
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tables.Assignments),
		Key: map[string]types.AttributeValue{
			"uid":       &types.AttributeValueMemberS{Value: userID},
			"abtest_ID": &types.AttributeValueMemberS{Value: experimentID},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.UserAssignment{}, false, dependencyError(r.tables.Assignments, "GetItem", err)
	}

	if len(out.Item) == 0 {
		return domain.UserAssignment{}, false, nil
	}

	var assignment domain.UserAssignment
	if err := attributevalue.UnmarshalMap(out.Item, &assignment); err != nil {
		return domain.UserAssignment{}, false, fmt.Errorf("failed to unmarshal assignment for user %s: %w", userID, err)
	}

	return assignment, true, nil
}

// CreateAssignment writes a new assignment only if none exists for the user and experiment.
// When another writer got there first, the stored assignment is returned instead.
func (r *Repository) CreateAssignment(ctx context.Context, assignment domain.UserAssignment) (domain.UserAssignment, error) {
	item, err := attributevalue.MarshalMap(assignment)
	if err != nil {
		return domain.UserAssignment{}, fmt.Errorf("failed to marshal assignment: %w", err)
	}

	_, err = r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tables.Assignments),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(uid)"),
	})
	if err == nil {
		return assignment, nil
	}

	var conflict *types.ConditionalCheckFailedException
	if !errors.As(err, &conflict) {
		return domain.UserAssignment{}, dependencyError(r.tables.Assignments, "PutItem", err)
	}

	r.log.Info("Assignment already created by a concurrent request",
		zap.String("user_id", assignment.UserID),
		zap.String("experiment_id", assignment.ExperimentID))

	existing, found, err := r.GetAssignment(ctx, assignment.UserID, assignment.ExperimentID)
	if err != nil {
		return domain.UserAssignment{}, err
	}
	if !found {
		return domain.UserAssignment{}, fmt.Errorf("assignment for user %s in experiment %s vanished after conflict",
			assignment.UserID, assignment.ExperimentID)
	}

	return existing, nil
}
