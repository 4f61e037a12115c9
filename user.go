package authcore

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// Role describes a user's access level.
type Role string

const (
	// RoleUser is a regular account.
	RoleUser Role = "USER"
	// RoleAdmin is an administrative account.
	RoleAdmin Role = "ADMIN"
)

// UserStatus describes whether an account may authenticate.
type UserStatus string

const (
	// UserActive accounts may log in.
	UserActive UserStatus = "ACTIVE"
	// UserSuspended accounts are refused authentication.
	UserSuspended UserStatus = "SUSPENDED"
)

// User is an identity record. It is owned by the surrounding
// application's user store; the auth core reads it and only ever
// writes the password hash during a completed reset flow.
type User struct {
	ID        string
	Email     string
	Password  string
	Role      Role
	Status    UserStatus
	OrgID     sql.NullString
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive reports whether the account may authenticate.
func (u *User) IsActive() bool {
	return u.Status == UserActive
}

// NormalizeEmail canonicalizes an email address for storage
// and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserRepository represents a local storage for User.
type UserRepository interface {
	// ByEmail retrieves a User by their normalized email address.
	ByEmail(ctx context.Context, email string) (*User, error)
	// GetForUpdate retrieves a User to be updated, locking the row.
	GetForUpdate(ctx context.Context, userID string) (*User, error)
	// Create persists a new User to local storage.
	Create(ctx context.Context, u *User) error
	// UpdatePassword overwrites a User's password hash.
	UpdatePassword(ctx context.Context, userID string, passwordHash string) error
}

// PasswordService manages password hashing and validation.
type PasswordService interface {
	// Hash hashes a password for storage.
	Hash(password string) (string, error)
	// Validate checks if a submitted password matches a User's
	// stored hash.
	Validate(user *User, password string) error
	// OKForUser checks if a password meets minimum requirements
	// to be set for any user.
	OKForUser(password string) error
}
