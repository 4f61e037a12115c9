// Package password manages password hashing and validation.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	auth "github.com/geomark/authcore"
)

// Password is a credential validator for password authentication.
type Password struct {
	// cost is the bcrypt hash repetition. Higher cost results
	// in slower computations.
	cost int
	// minLength is the minimum length of a password.
	minLength int
	// maxLength is the maximum length of a password.
	// We enforce a maximum length to mitigate DOS attacks.
	maxLength int
}

// Hash hashes a password for storage.
func (p *Password) Hash(password string) (string, error) {
	// bcrypt will manage its own salt
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// Validate validates if a submitted password is valid for a
// stored password hash. bcrypt's comparison is constant time.
func (p *Password) Validate(user *auth.User, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password))
	if err != nil {
		return auth.ErrBadRequest("invalid password")
	}

	return nil
}

// OKForUser tells us if a password meets minimum requirements to
// be set for any users.
func (p *Password) OKForUser(password string) error {
	if len(password) < p.minLength {
		return auth.ErrInvalidField(
			fmt.Sprintf("password must be at least %d characters long", p.minLength),
		)
	}

	if len(password) > p.maxLength {
		return auth.ErrInvalidField(
			fmt.Sprintf("password cannot be longer than %d characters", p.maxLength),
		)
	}

	return nil
}
