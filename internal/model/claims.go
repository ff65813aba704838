package model

import "time"

// SessionClaims is the identity carried inside an access token.
type SessionClaims struct {
	UserID    int64     `json:"sub"`
	Email     string    `json:"email"`
	TokenID   string    `json:"jti,omitempty"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
