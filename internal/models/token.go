package models

import "time"

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Token is the server-side record of an issued bearer token. A bearer token is
// valid only while its record exists.
type Token struct {
	JTI       string    `json:"jti"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
