package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/qcom/authapi/internal/config"
	"github.com/qcom/authapi/internal/models"
)

const (
	otpMin = 100000
	otpMax = 999999
)

// RandomSource returns a uniformly distributed integer in [0, n).
type RandomSource interface {
	Int63n(n int64) (int64, error)
}

type cryptoSource struct{}

func (cryptoSource) Int63n(n int64) (int64, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0, err
	}
	return v.Int64(), nil
}

// CryptoSource draws from crypto/rand.
func CryptoSource() RandomSource {
	return cryptoSource{}
}

// OTPService generates six-digit codes and stamps their expiry.
type OTPService struct {
	rnd    RandomSource
	expiry time.Duration
	now    func() time.Time
}

func NewOTPService(rnd RandomSource, cfg *config.OTPConfig, now func() time.Time) *OTPService {
	if rnd == nil {
		rnd = CryptoSource()
	}
	if now == nil {
		now = time.Now
	}
	return &OTPService{
		rnd:    rnd,
		expiry: cfg.Expiry,
		now:    now,
	}
}

func (s *OTPService) GenerateOTP() (*models.OTP, error) {
	n, err := s.rnd.Int63n(otpMax - otpMin + 1)
	if err != nil {
		return nil, fmt.Errorf("failed to generate OTP: %w", err)
	}

	return &models.OTP{
		Code:      strconv.FormatInt(otpMin+n, 10),
		ExpiresAt: s.now().UTC().Add(s.expiry),
	}, nil
}
