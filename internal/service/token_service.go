package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/qcom/authapi/internal/config"
	"github.com/qcom/authapi/internal/models"
	"github.com/qcom/authapi/internal/repository"
	"github.com/sirupsen/logrus"
)

const (
	TokenTypeBearer = "Bearer"
	tokenIssuer     = "authapi"
)

// TokenIssuer mints, resolves and revokes bearer tokens.
type TokenIssuer interface {
	Issue(ctx context.Context, userID string) (*models.TokenResponse, error)
	Resolve(ctx context.Context, token string) (string, error)
	RevokeAll(ctx context.Context, userID string) error
}

// TokenService signs HS256 tokens and records each JTI in the token store. A
// token with a valid signature is still rejected once its record is gone.
type TokenService struct {
	store     repository.TokenStore
	secretKey []byte
	expiry    time.Duration
	logger    *logrus.Logger
	now       func() time.Time
}

func NewTokenService(store repository.TokenStore, cfg *config.JWTConfig, logger *logrus.Logger) (*TokenService, error) {
	secretKey := []byte(cfg.SecretKey)
	if len(secretKey) < 32 {
		return nil, fmt.Errorf("secret key must be at least 32 bytes")
	}

	return &TokenService{
		store:     store,
		secretKey: secretKey,
		expiry:    cfg.AccessExpiry,
		logger:    logger,
		now:       time.Now,
	}, nil
}

type Claims struct {
	jwt.RegisteredClaims
}

func (s *TokenService) Issue(ctx context.Context, userID string) (*models.TokenResponse, error) {
	now := s.now().UTC()
	jti := uuid.New().String()
	expiresAt := now.Add(s.expiry)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
	if err != nil {
		s.logger.WithError(err).Error("Failed to sign access token")
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	if err := s.store.Save(ctx, models.Token{
		JTI:       jti,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}); err != nil {
		return nil, fmt.Errorf("failed to record access token: %w", err)
	}

	return &models.TokenResponse{
		AccessToken: signed,
		TokenType:   TokenTypeBearer,
	}, nil
}

// Resolve returns the user a token belongs to. Invalid, expired or revoked
// tokens yield ErrUnauthenticated; store failures are returned as is.
func (s *TokenService) Resolve(ctx context.Context, tokenString string) (string, error) {
	claims, err := s.verify(tokenString)
	if err != nil {
		s.logger.WithError(err).Debug("Token verification failed")
		return "", ErrUnauthenticated
	}

	record, err := s.store.Get(ctx, claims.ID)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return "", ErrUnauthenticated
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up token: %w", err)
	}

	if record.UserID != claims.Subject {
		s.logger.WithField("jti", claims.ID).Warn("Token subject does not match its record")
		return "", ErrUnauthenticated
	}

	return record.UserID, nil
}

func (s *TokenService) RevokeAll(ctx context.Context, userID string) error {
	n, err := s.store.DeleteAllForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"revoked": n,
	}).Debug("Tokens revoked")
	return nil
}

func (s *TokenService) verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(s.now))

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	if claims.ID == "" || claims.Subject == "" {
		return nil, fmt.Errorf("token is missing jti or subject")
	}

	return claims, nil
}
