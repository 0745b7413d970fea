package entity

import (
	"time"
)

// Sign-in providers a user account can originate from.
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

// User is the aggregate root for user domain
// Passwords are stored as bcrypt hashes in Password field; accounts created
// through Google sign-in have an empty hash and cannot sign in with a password.
type User struct {
	ID        string
	Email     string
	Password  string
	Name      string
	Provider  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPassword reports whether the account can authenticate with email/password.
func (u *User) HasPassword() bool {
	return u.Password != ""
}
