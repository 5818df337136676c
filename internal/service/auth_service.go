package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qcom/authapi/internal/config"
	"github.com/qcom/authapi/internal/models"
	"github.com/qcom/authapi/internal/repository"
	"github.com/qcom/authapi/internal/validation"
	"github.com/sirupsen/logrus"
)

// AuthService implements registration, OTP issuance, OTP-gated login and
// profile management on top of the user store, token issuer and notifier.
type AuthService struct {
	users     repository.UserStore
	tokens    TokenIssuer
	passwords *PasswordService
	otps      *OTPService
	notifier  Notifier
	validator *validation.Validator
	singleUse bool
	logger    *logrus.Logger
	now       func() time.Time
}

func NewAuthService(
	users repository.UserStore,
	tokens TokenIssuer,
	passwords *PasswordService,
	otps *OTPService,
	notifier Notifier,
	validator *validation.Validator,
	cfg *config.OTPConfig,
	logger *logrus.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		otps:      otps,
		notifier:  notifier,
		validator: validator,
		singleUse: cfg.SingleUse,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock replaces the clock used for OTP expiry checks.
func (s *AuthService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.TokenResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)

	verrs, err := s.validate(req)
	if err != nil {
		return nil, err
	}
	if !verrs.Has("email") {
		if err := s.requireEmailFree(ctx, verrs, req.Email, ""); err != nil {
			return nil, err
		}
	}
	if err := verrs.Err(); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, emailTaken()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.WithField("user_id", user.ID).Info("User registered")

	if err := s.notifier.SendWelcome(ctx, user); err != nil {
		return nil, err
	}

	return s.tokens.Issue(ctx, user.ID)
}

func (s *AuthService) RequestOTP(ctx context.Context, req models.OTPRequest) error {
	req.Email = strings.TrimSpace(req.Email)

	verrs, err := s.validate(req)
	if err != nil {
		return err
	}

	var user *models.User
	if !verrs.Has("email") {
		user, err = s.existingUser(ctx, verrs, req.Email)
		if err != nil {
			return err
		}
	}
	if err := verrs.Err(); err != nil {
		return err
	}

	otp, err := s.otps.GenerateOTP()
	if err != nil {
		return err
	}

	if err := s.users.SetOTP(ctx, user.ID, otp.Code, otp.ExpiresAt); err != nil {
		return fmt.Errorf("failed to store OTP: %w", err)
	}
	user.OTP = &otp.Code
	user.OTPExpiresAt = &otp.ExpiresAt

	s.logger.WithField("user_id", user.ID).Info("OTP issued")

	return s.notifier.SendOTP(ctx, user, otp)
}

// Login checks the password, then the OTP, then its expiry. On success every
// earlier token of the user is revoked before a new one is issued.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error) {
	req.Email = strings.TrimSpace(req.Email)

	verrs, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	var user *models.User
	if !verrs.Has("email") {
		user, err = s.existingUser(ctx, verrs, req.Email)
		if err != nil {
			return nil, err
		}
	}
	if err := verrs.Err(); err != nil {
		return nil, err
	}

	ok, err := s.passwords.Verify(user.PasswordHash, req.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPasswordMismatch
	}

	// No issued code compares as an empty code with an already passed expiry.
	otp := user.OTPState()
	if otp == nil {
		otp = &models.OTP{}
	}
	if !otp.Matches(strings.TrimSpace(string(req.OTP))) {
		return nil, ErrOTPMismatch
	}
	if otp.ExpiredAt(s.now()) {
		return nil, ErrOTPExpired
	}

	if err := s.tokens.RevokeAll(ctx, user.ID); err != nil {
		return nil, err
	}

	if s.singleUse {
		if err := s.users.ClearOTP(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("failed to consume OTP: %w", err)
		}
	}

	s.logger.WithField("user_id", user.ID).Info("User logged in")

	return s.tokens.Issue(ctx, user.ID)
}

// Authenticate resolves a bearer token to its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	return user, nil
}

func (s *AuthService) Profile(_ context.Context, user *models.User) models.UserResponse {
	return user.Public()
}

func (s *AuthService) UpdateProfile(ctx context.Context, user *models.User, req models.UpdateProfileRequest) (*models.UserResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)

	verrs, err := s.validate(req)
	if err != nil {
		return nil, err
	}
	if !verrs.Has("email") {
		if err := s.requireEmailFree(ctx, verrs, req.Email, user.ID); err != nil {
			return nil, err
		}
	}
	if err := verrs.Err(); err != nil {
		return nil, err
	}

	updated := *user
	updated.Name = req.Name
	updated.Email = req.Email

	if err := s.users.UpdateProfile(ctx, &updated, user.Email); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, emailTaken()
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	*user = updated

	resp := user.Public()
	return &resp, nil
}

func (s *AuthService) Logout(ctx context.Context, user *models.User) error {
	if err := s.tokens.RevokeAll(ctx, user.ID); err != nil {
		return err
	}

	s.logger.WithField("user_id", user.ID).Info("User logged out")
	return nil
}

// validate runs the struct rules. Store-backed rules are added by the caller.
func (s *AuthService) validate(req interface{}) (*validation.Errors, error) {
	err := s.validator.Struct(req)
	if err == nil {
		return &validation.Errors{}, nil
	}

	var verrs *validation.Errors
	if errors.As(err, &verrs) {
		return verrs, nil
	}
	return nil, err
}

// requireEmailFree records a validation error when email belongs to a user
// other than ownerID.
func (s *AuthService) requireEmailFree(ctx context.Context, verrs *validation.Errors, email, ownerID string) error {
	existing, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}

	if existing.ID != ownerID {
		verrs.Add("email", validation.Taken("email"))
	}
	return nil
}

// existingUser loads the user for email or records a validation error.
func (s *AuthService) existingUser(ctx context.Context, verrs *validation.Errors, email string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		verrs.Add("email", validation.Invalid("email"))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return user, nil
}

func emailTaken() error {
	verrs := &validation.Errors{}
	verrs.Add("email", validation.Taken("email"))
	return verrs
}
