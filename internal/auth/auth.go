// Package auth identifies the user whose collections are synchronized.
package auth

import (
	"context"
	"errors"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotSignedIn        = errors.New("not signed in")
	ErrSessionExpired     = errors.New("session expired")
)

// User is a signed-in identity. ID scopes every remote collection.
type User struct {
	ID    string
	Email string
}

// Provider signs users in and out and reports the current user.
type Provider interface {
	CurrentUser() *User
	SignIn(ctx context.Context, email, password string) (*User, error)
	SignOut() error
}
