package domain

import (
	"errors"
	"time"
)

var (
	ErrMissingFields   = errors.New("missing fields")
	ErrUserExists      = errors.New("user already exists")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidPassword = errors.New("invalid password")
)

// User is a single membership record. Email is the identity and is matched
// exactly, case included. Name is nil when the member never gave one; an empty
// name is kept as given.
type User struct {
	Email        string    `json:"email"`
	Name         *string   `json:"name,omitempty"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	Registered   time.Time `json:"registered"`
}

// Activate marks the member as paid. Activating an active member is a no-op.
func (u *User) Activate() {
	u.Active = true
}
