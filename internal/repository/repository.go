package repository

import (
	"context"
	"errors"
	"time"

	"github.com/qcom/authapi/internal/models"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
	ErrTokenNotFound  = errors.New("token not found")
)

// UserStore persists users. Implementations must keep email unique across users.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// UpdateProfile persists user.Name and user.Email. previousEmail is the
	// address the user held before the change.
	UpdateProfile(ctx context.Context, user *models.User, previousEmail string) error
	SetOTP(ctx context.Context, userID, code string, expiresAt time.Time) error
	ClearOTP(ctx context.Context, userID string) error
}

// TokenStore keeps the records of issued bearer tokens.
type TokenStore interface {
	Save(ctx context.Context, token models.Token) error
	Get(ctx context.Context, jti string) (*models.Token, error)
	DeleteAllForUser(ctx context.Context, userID string) (int, error)
}
