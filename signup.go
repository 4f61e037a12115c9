package authcore

import (
	"context"
	"time"
)

// PendingSignup is staged registration data. The real User record
// is materialized from it only after the REGISTER OTP is verified;
// until then the account does not exist in the user store.
type PendingSignup struct {
	Email     string
	Name      string
	Phone     string
	OrgID     string
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PendingSignupRepository represents a local storage for PendingSignup.
type PendingSignupRepository interface {
	// Upsert stages registration data, replacing any prior staging
	// for the same email.
	Upsert(ctx context.Context, signup *PendingSignup) error
	// ByEmail retrieves staged registration data.
	ByEmail(ctx context.Context, email string) (*PendingSignup, error)
	// Delete removes staged registration data after the account is
	// materialized.
	Delete(ctx context.Context, email string) error
}

// Organization is the external organization directory record the
// auth core consults during registration.
type Organization struct {
	ID   string
	Name string
}

// OrgRepository represents a read-only lookup into the organization
// directory.
type OrgRepository interface {
	// ByID retrieves an Organization.
	ByID(ctx context.Context, orgID string) (*Organization, error)
}
