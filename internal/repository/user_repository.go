package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/qcom/authapi/internal/models"
	"github.com/sirupsen/logrus"
)

const emailLockSK = "LOCK"

// DynamoDBAPI is the subset of *dynamodb.Client the repositories use.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// UserRepository stores users in a single DynamoDB table. Each user owns a
// profile item plus one lock item per email address, written in the same
// transaction so two users can never hold the same email.
type UserRepository struct {
	client    DynamoDBAPI
	tableName string
	logger    *logrus.Logger
}

func NewUserRepository(client DynamoDBAPI, tableName string, logger *logrus.Logger) *UserRepository {
	return &UserRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	item, err := attributevalue.MarshalMap(user)
	if err != nil {
		r.logger.WithError(err).Error("Failed to marshal user for DynamoDB")
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	item["PK"] = &types.AttributeValueMemberS{Value: user.GetPK()}
	item["SK"] = &types.AttributeValueMemberS{Value: user.GetSK()}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: r.emailLockPut(user.Email, user.ID)},
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(PK)"),
			}},
		},
	})

	if err != nil {
		if isConditionFailure(err) {
			return ErrDuplicateEmail
		}
		r.logger.WithError(err).Error("Failed to create user in DynamoDB")
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{ID: id}

	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       key(user.GetPK(), user.GetSK()),
	})

	if err != nil {
		r.logger.WithError(err).Error("Failed to get user from DynamoDB")
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if result.Item == nil {
		return nil, ErrUserNotFound
	}

	var dbUser models.User
	if err := attributevalue.UnmarshalMap(result.Item, &dbUser); err != nil {
		r.logger.WithError(err).Error("Failed to unmarshal user from DynamoDB")
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}

	return &dbUser, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       key(models.EmailLockPK(email), emailLockSK),
	})

	if err != nil {
		r.logger.WithError(err).Error("Failed to get email lock from DynamoDB")
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	if result.Item == nil {
		return nil, ErrUserNotFound
	}

	var lock struct {
		UserID string `dynamodbav:"user_id"`
	}
	if err := attributevalue.UnmarshalMap(result.Item, &lock); err != nil {
		return nil, fmt.Errorf("failed to unmarshal email lock: %w", err)
	}

	return r.GetByID(ctx, lock.UserID)
}

func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User, previousEmail string) error {
	user.UpdatedAt = time.Now().UTC()

	update := &types.Update{
		TableName:        aws.String(r.tableName),
		Key:              key(user.GetPK(), user.GetSK()),
		UpdateExpression: aws.String("SET #name = :name, email = :email, updated_at = :updated_at"),
		ExpressionAttributeNames: map[string]string{
			"#name": "name",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":name":       &types.AttributeValueMemberS{Value: user.Name},
			":email":      &types.AttributeValueMemberS{Value: user.Email},
			":updated_at": &types.AttributeValueMemberS{Value: user.UpdatedAt.Format(time.RFC3339Nano)},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}

	items := []types.TransactWriteItem{{Update: update}}
	if models.NormalizeEmail(previousEmail) != models.NormalizeEmail(user.Email) {
		items = append(items,
			types.TransactWriteItem{Put: r.emailLockPut(user.Email, user.ID)},
			types.TransactWriteItem{Delete: &types.Delete{
				TableName:           aws.String(r.tableName),
				Key:                 key(models.EmailLockPK(previousEmail), emailLockSK),
				ConditionExpression: aws.String("user_id = :user_id"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":user_id": &types.AttributeValueMemberS{Value: user.ID},
				},
			}},
		)
	}

	_, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})

	if err != nil {
		if isConditionFailure(err) {
			return ErrDuplicateEmail
		}
		r.logger.WithError(err).Error("Failed to update user in DynamoDB")
		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}

func (r *UserRepository) emailLockPut(email, userID string) *types.Put {
	return &types.Put{
		TableName: aws.String(r.tableName),
		Item: map[string]types.AttributeValue{
			"PK":      &types.AttributeValueMemberS{Value: models.EmailLockPK(email)},
			"SK":      &types.AttributeValueMemberS{Value: emailLockSK},
			"user_id": &types.AttributeValueMemberS{Value: userID},
		},
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	}
}

func key(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

func isConditionFailure(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}

	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		for _, reason := range canceled.CancellationReasons {
			if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
				return true
			}
		}
	}
	return false
}
