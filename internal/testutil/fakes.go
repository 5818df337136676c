// Package testutil provides in-memory stand-ins for the stores and notifier.
package testutil

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/qcom/authapi/internal/models"
	"github.com/qcom/authapi/internal/repository"
	"github.com/sirupsen/logrus"
)

func DiscardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// UserStore is an in-memory repository.UserStore.
type UserStore struct {
	mu    sync.Mutex
	users map[string]models.User

	// Err, when set, is returned by every method.
	Err error
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]models.User)}
}

func (s *UserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	for _, u := range s.users {
		if models.NormalizeEmail(u.Email) == models.NormalizeEmail(user.Email) {
			return repository.ErrDuplicateEmail
		}
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = *user
	return nil
}

func (s *UserStore) GetByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	for _, u := range s.users {
		if models.NormalizeEmail(u.Email) == models.NormalizeEmail(email) {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *UserStore) UpdateProfile(_ context.Context, user *models.User, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	current, ok := s.users[user.ID]
	if !ok {
		return repository.ErrUserNotFound
	}
	for id, u := range s.users {
		if id != user.ID && models.NormalizeEmail(u.Email) == models.NormalizeEmail(user.Email) {
			return repository.ErrDuplicateEmail
		}
	}

	user.UpdatedAt = time.Now().UTC()
	current.Name = user.Name
	current.Email = user.Email
	current.UpdatedAt = user.UpdatedAt
	s.users[user.ID] = current
	return nil
}

func (s *UserStore) SetOTP(_ context.Context, userID, code string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	u, ok := s.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.OTP = &code
	u.OTPExpiresAt = &expiresAt
	s.users[userID] = u
	return nil
}

func (s *UserStore) ClearOTP(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	u, ok := s.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.OTP = nil
	u.OTPExpiresAt = nil
	s.users[userID] = u
	return nil
}

// Count returns the number of stored users.
func (s *UserStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// TokenStore is an in-memory repository.TokenStore. Expiry is not enforced.
type TokenStore struct {
	mu     sync.Mutex
	tokens map[string]models.Token
}

func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[string]models.Token)}
}

func (s *TokenStore) Save(_ context.Context, token models.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.JTI] = token
	return nil
}

func (s *TokenStore) Get(_ context.Context, jti string) (*models.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[jti]
	if !ok {
		return nil, repository.ErrTokenNotFound
	}
	return &t, nil
}

func (s *TokenStore) DeleteAllForUser(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for jti, t := range s.tokens {
		if t.UserID == userID {
			delete(s.tokens, jti)
			n++
		}
	}
	return n, nil
}

// CountForUser returns how many live tokens the user holds.
func (s *TokenStore) CountForUser(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tokens {
		if t.UserID == userID {
			n++
		}
	}
	return n
}

// Notifier records every notification it is asked to send.
type Notifier struct {
	mu      sync.Mutex
	Welcome []models.User
	OTPs    []models.OTP

	Err error
}

func (n *Notifier) SendWelcome(_ context.Context, user *models.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.Welcome = append(n.Welcome, *user)
	return nil
}

func (n *Notifier) SendOTP(_ context.Context, _ *models.User, otp *models.OTP) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.OTPs = append(n.OTPs, *otp)
	return nil
}

// LastOTP returns the most recently sent code.
func (n *Notifier) LastOTP() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.OTPs) == 0 {
		return ""
	}
	return n.OTPs[len(n.OTPs)-1].Code
}
