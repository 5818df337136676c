package service

import "errors"

// Login rejections. Each maps to its own 401 message.
var (
	ErrPasswordMismatch = errors.New("password mismatch")
	ErrOTPMismatch      = errors.New("otp mismatch")
	ErrOTPExpired       = errors.New("otp expired")
)

// ErrUnauthenticated is returned when a bearer token cannot be resolved to a user.
var ErrUnauthenticated = errors.New("unauthenticated")
