// Package seed fills an empty store with demo users.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/qcom/authapi/internal/models"
	"github.com/qcom/authapi/internal/repository"
	"github.com/qcom/authapi/internal/service"
	"github.com/sirupsen/logrus"
)

const (
	DefaultCount    = 3
	DefaultPassword = "password"
)

type Seeder struct {
	users     repository.UserStore
	passwords *service.PasswordService
	logger    *logrus.Logger
}

func NewSeeder(users repository.UserStore, passwords *service.PasswordService, logger *logrus.Logger) *Seeder {
	return &Seeder{
		users:     users,
		passwords: passwords,
		logger:    logger,
	}
}

// Run creates User1..Usern with emails user<i>@example.com. Users whose email
// already exists are left untouched. It returns how many users were created.
func (s *Seeder) Run(ctx context.Context, n int) (int, error) {
	hash, err := s.passwords.Hash(DefaultPassword)
	if err != nil {
		return 0, err
	}

	created := 0
	for i := 1; i <= n; i++ {
		email := fmt.Sprintf("user%d@example.com", i)

		_, err := s.users.GetByEmail(ctx, email)
		if err == nil {
			s.logger.WithField("email", email).Debug("Seed user exists, skipping")
			continue
		}
		if !errors.Is(err, repository.ErrUserNotFound) {
			return created, fmt.Errorf("failed to look up %s: %w", email, err)
		}

		user := &models.User{
			ID:           uuid.New().String(),
			Name:         fmt.Sprintf("User%d", i),
			Email:        email,
			PasswordHash: hash,
		}
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicateEmail) {
				continue
			}
			return created, fmt.Errorf("failed to create %s: %w", email, err)
		}

		s.logger.WithFields(logrus.Fields{
			"user_id": user.ID,
			"email":   email,
		}).Info("Seed user created")
		created++
	}

	return created, nil
}
