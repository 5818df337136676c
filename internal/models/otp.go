package models

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"time"
)

// OTP is the code/expiry pair stored on a user.
type OTP struct {
	Code      string
	ExpiresAt time.Time
}

// OTPState returns the OTP currently stored on the user, or nil if none was issued.
func (u *User) OTPState() *OTP {
	if u.OTP == nil || u.OTPExpiresAt == nil {
		return nil
	}
	return &OTP{Code: *u.OTP, ExpiresAt: *u.OTPExpiresAt}
}

// Matches compares codes in constant time.
func (o *OTP) Matches(code string) bool {
	return subtle.ConstantTimeCompare([]byte(o.Code), []byte(code)) == 1
}

// ExpiredAt reports whether the code is no longer usable at now.
func (o *OTP) ExpiredAt(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// OTPInput accepts the submitted code either as a JSON string or a JSON number.
type OTPInput string

func (o *OTPInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*o = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*o = OTPInput(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("otp must be a string or a number: %w", err)
	}
	*o = OTPInput(n.String())
	return nil
}
