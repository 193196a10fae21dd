// Package admins manages back-office users and issues their session tokens.
package admins

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound           = errors.New("admin not found")
	ErrDuplicate          = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrLastAdmin          = errors.New("the last admin cannot be deleted")
	ErrAuthDisabled       = errors.New("admin auth is not configured")
)

// Admin is a back-office user. The hash never leaves the server.
type Admin struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateRequest is the body for POST /admin/users.
type CreateRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// PasswordRequest is the body for PUT /admin/users/{id}/password.
type PasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest is the body for POST /admin/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func normalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
