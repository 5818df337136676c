package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/qcom/authapi/internal/models"
)

// SetOTP stores the code and its expiry on the user's profile item.
func (r *UserRepository) SetOTP(ctx context.Context, userID, code string, expiresAt time.Time) error {
	user := &models.User{ID: userID}

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              key(user.GetPK(), user.GetSK()),
		UpdateExpression: aws.String("SET otp = :otp, otp_expires_at = :expires_at, updated_at = :updated_at"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":otp":        &types.AttributeValueMemberS{Value: code},
			":expires_at": &types.AttributeValueMemberS{Value: expiresAt.UTC().Format(time.RFC3339Nano)},
			":updated_at": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})

	if err != nil {
		if isConditionFailure(err) {
			return ErrUserNotFound
		}
		r.logger.WithError(err).Error("Failed to store OTP in DynamoDB")
		return fmt.Errorf("failed to store OTP: %w", err)
	}

	return nil
}

// ClearOTP removes the code and expiry from the user's profile item.
func (r *UserRepository) ClearOTP(ctx context.Context, userID string) error {
	user := &models.User{ID: userID}

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 key(user.GetPK(), user.GetSK()),
		UpdateExpression:    aws.String("REMOVE otp, otp_expires_at"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})

	if err != nil {
		if isConditionFailure(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to clear OTP: %w", err)
	}

	return nil
}
