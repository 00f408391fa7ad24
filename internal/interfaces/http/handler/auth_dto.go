package handler

import "time"

// TokenRequest represents the request body for an admin token
type TokenRequest struct {
	Username string `json:"username" binding:"required,min=3,max=100"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// TokenResponse represents an issued bearer token
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// RevokeResponse reports a revoked token
type RevokeResponse struct {
	Revoked bool      `json:"revoked"`
	Until   time.Time `json:"until"`
}
