package authcore

import (
	"context"
	"database/sql"
	"time"
)

// Purpose describes which flow an OTP code was issued for.
// Codes are never valid across purposes.
type Purpose string

const (
	// PurposeRegister verifies ownership of an email address
	// before an account is materialized.
	PurposeRegister Purpose = "REGISTER"
	// PurposeReset verifies ownership of an email address before
	// a password overwrite.
	PurposeReset Purpose = "RESET"
	// PurposeDevice confirms a login attempt from an unrecognized
	// device.
	PurposeDevice Purpose = "DEVICE"
)

// OtpToken is a single issued OTP code. Only the one-way hash of
// the code is persisted. At most one unverified token exists per
// (purpose, email) at any time.
type OtpToken struct {
	ID         string
	Purpose    Purpose
	Email      string
	CodeHash   string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	FailCount  int
	VerifiedAt sql.NullTime
	IP         sql.NullString
	UserAgent  sql.NullString
}

// OtpTokenRepository represents a local storage for OtpToken.
type OtpTokenRepository interface {
	// Create persists a new OtpToken.
	Create(ctx context.Context, token *OtpToken) error
	// LatestUnverified retrieves the most recent unverified token
	// for a purpose and email.
	LatestUnverified(ctx context.Context, purpose Purpose, email string) (*OtpToken, error)
	// GetForUpdate retrieves the most recent unverified token for a
	// purpose and email, locking the row for the transaction.
	GetForUpdate(ctx context.Context, purpose Purpose, email string) (*OtpToken, error)
	// InvalidateUnverified removes any unverified tokens for a
	// purpose and email so a new issuance supersedes them.
	InvalidateUnverified(ctx context.Context, purpose Purpose, email string) error
	// IncrementFailCount atomically increments a token's fail
	// counter and returns the post-increment value.
	IncrementFailCount(ctx context.Context, tokenID string) (int, error)
	// MarkVerified consumes a token. It fails if the token was
	// already consumed.
	MarkVerified(ctx context.Context, tokenID string) error
	// PurgeExpired removes tokens whose expiry predates the cutoff.
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// OTPService manages the issuance and verification of short-lived
// numeric codes. Repositories are passed per call so that issuance
// and verification participate in a caller's transaction.
type OTPService interface {
	// Issue invalidates any unverified token for the purpose and
	// email, persists a new token, and returns the plaintext code
	// exactly once for delivery.
	Issue(ctx context.Context, repo RepositoryManager, purpose Purpose, email string, meta RequestMeta) (string, error)
	// Verify consumes the latest unverified token for the purpose
	// and email if the candidate code matches.
	Verify(ctx context.Context, repo RepositoryManager, purpose Purpose, email string, code string) error
}

// RequestMeta carries client metadata recorded with security
// relevant writes.
type RequestMeta struct {
	IP        string
	UserAgent string
}
