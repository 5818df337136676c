package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/qcom/authapi/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// TokenRepository keeps token records in Redis. Each record lives under
// token:<jti> until it expires, and user_tokens:<user_id> indexes the JTIs a
// user holds so all of them can be revoked at once.
type TokenRepository struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewTokenRepository(client *redis.Client, logger *logrus.Logger) *TokenRepository {
	return &TokenRepository{
		client: client,
		logger: logger,
	}
}

func tokenKey(jti string) string {
	return fmt.Sprintf("token:%s", jti)
}

func userTokensKey(userID string) string {
	return fmt.Sprintf("user_tokens:%s", userID)
}

func (r *TokenRepository) Save(ctx context.Context, token models.Token) error {
	dataJSON, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token data: %w", err)
	}

	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("token %s already expired", token.JTI)
	}

	indexKey := userTokensKey(token.UserID)

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, tokenKey(token.JTI), dataJSON, ttl)
	pipe.SAdd(ctx, indexKey, token.JTI)
	// Tokens share one lifetime, so the newest token's TTL covers the whole index.
	pipe.Expire(ctx, indexKey, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.WithError(err).Error("Failed to store token")
		return fmt.Errorf("failed to store token: %w", err)
	}

	return nil
}

func (r *TokenRepository) Get(ctx context.Context, jti string) (*models.Token, error) {
	dataJSON, err := r.client.Get(ctx, tokenKey(jti)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	var token models.Token
	if err := json.Unmarshal([]byte(dataJSON), &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token data: %w", err)
	}

	return &token, nil
}

// DeleteAllForUser removes every token record of the user and returns how many
// live records were deleted.
func (r *TokenRepository) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	indexKey := userTokensKey(userID)

	jtis, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list user tokens: %w", err)
	}

	keys := make([]string, 0, len(jtis)+1)
	for _, jti := range jtis {
		keys = append(keys, tokenKey(jti))
	}

	deleted := 0
	if len(keys) > 0 {
		n, err := r.client.Del(ctx, keys...).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to delete user tokens: %w", err)
		}
		deleted = int(n)
	}

	// Only the members read above; tokens saved meanwhile stay indexed.
	if len(jtis) > 0 {
		members := make([]interface{}, len(jtis))
		for i, jti := range jtis {
			members[i] = jti
		}
		if err := r.client.SRem(ctx, indexKey, members...).Err(); err != nil {
			return deleted, fmt.Errorf("failed to clean user token index: %w", err)
		}
	}

	return deleted, nil
}
